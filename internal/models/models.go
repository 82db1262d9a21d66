package models

import "time"

// Role is the account type chosen at sign-up
type Role string

const (
	RoleAthlete  Role = "athlete"
	RoleSponsor  Role = "sponsor"
	RoleRetailer Role = "retailer"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleAthlete, RoleSponsor, RoleRetailer:
		return true
	}
	return false
}

// IsBacker reports whether r can sponsor athletes
func (r Role) IsBacker() bool {
	return r == RoleSponsor || r == RoleRetailer
}

// User represents an account in the system
type User struct {
	ID          string  `json:"id"`
	Role        Role    `json:"role"`
	Email       string  `json:"email"`
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	AgeGroup    *string `json:"age_group,omitempty"`
	CompanyName *string `json:"company_name,omitempty"`

	// Athlete side of the relationship graph
	SponsorIDs      []string `json:"sponsor_ids"`
	PendingSponsors []string `json:"pending_sponsors"`

	// Sponsor and retailer side of the relationship graph
	SponsoredAthletes []string `json:"sponsored_athletes"`
	PendingAthletes   []string `json:"pending_athletes"`

	ProfileImageURL *string   `json:"profile_image_url,omitempty"`
	EmailForRewards *string   `json:"email_for_rewards,omitempty"`
	ShippingAddress *string   `json:"shipping_address,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// DisplayName returns the name shown next to challenges and submissions
func (u *User) DisplayName() string {
	if u.Role == RoleRetailer && u.CompanyName != nil && *u.CompanyName != "" {
		return *u.CompanyName
	}
	return u.FirstName + " " + u.LastName
}

// Event represents an athlete-owned calendar entry
type Event struct {
	ID         string    `json:"id"`
	EventTitle string    `json:"event_title"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	AthleteID  string    `json:"athlete_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// ChallengeType tells how a challenge selects its athletes
type ChallengeType string

const (
	ChallengeSponsor  ChallengeType = "sponsor"
	ChallengeRetailer ChallengeType = "retailer"
)

// Achievement is one goal of a challenge, e.g. 2 x "HR"
type Achievement struct {
	Type     string `json:"type"`
	Quantity int    `json:"quantity"`
}

// Challenge represents a sponsor- or retailer-authored goal
type Challenge struct {
	ID               string        `json:"id"`
	Title            string        `json:"title"`
	Reward           string        `json:"reward"`
	Achievements     []Achievement `json:"achievements"`
	StartDate        time.Time     `json:"start_date"`
	EndDate          time.Time     `json:"end_date"`
	SponsorID        string        `json:"sponsor_id"`
	CreatedBy        string        `json:"created_by"`
	AssignedAthletes []string      `json:"assigned_athletes"`
	DesiredAgeGroups []string      `json:"desired_age_groups"`
	Type             ChallengeType `json:"type"`
	EventID          *string       `json:"event_id,omitempty"`
	LogoURL          *string       `json:"logo_url,omitempty"`
	PromoVideoURL    *string       `json:"promo_video_url,omitempty"`
	TournamentName   *string       `json:"tournament_name,omitempty"`
	TournamentLink   *string       `json:"tournament_link,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
}

// SubmissionStatus is the review state of a submission
type SubmissionStatus string

const (
	StatusPending  SubmissionStatus = "Pending"
	StatusApproved SubmissionStatus = "Approved"
	StatusRejected SubmissionStatus = "Rejected"
	StatusRewarded SubmissionStatus = "Rewarded"
)

// DeliveryMethod is how a reward reaches the athlete
type DeliveryMethod string

const (
	DeliveryDigital  DeliveryMethod = "Digital"
	DeliveryPhysical DeliveryMethod = "Physical"
	DeliveryHand     DeliveryMethod = "Hand-delivered"
)

// Delivery holds the reward-delivery metadata captured on reward
type Delivery struct {
	Method                DeliveryMethod `json:"delivery_method"`
	RedemptionCode        *string        `json:"redemption_code,omitempty"`
	TrackingNumber        *string        `json:"tracking_number,omitempty"`
	Carrier               *string        `json:"carrier,omitempty"`
	EstimatedDeliveryDate *time.Time     `json:"estimated_delivery_date,omitempty"`
	Notes                 *string        `json:"notes,omitempty"`
}

// Submission represents an athlete's proof of completion for a challenge
type Submission struct {
	ID          string           `json:"id"`
	AthleteID   string           `json:"athlete_id"`
	ChallengeID string           `json:"challenge_id"`
	ImageURLs   []string         `json:"image_urls"`
	Status      SubmissionStatus `json:"status"`
	SubmittedAt time.Time        `json:"submitted_at"`
	Delivery    *Delivery        `json:"delivery,omitempty"`
	RewardedAt  *time.Time       `json:"rewarded_at,omitempty"`
}
