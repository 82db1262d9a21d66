package importer

import (
	"fmt"
	"strings"
	"time"

	"sponup-backend/internal/models"
	"sponup-backend/internal/workflow"
)

// Firestore layouts of the legacy collections. Every field is optional in
// the source data, so conversions fill gaps and reject only what the
// relational schema cannot hold.

type userDoc struct {
	Role              string    `firestore:"role"`
	Email             string    `firestore:"email"`
	FirstName         string    `firestore:"firstName"`
	LastName          string    `firestore:"lastName"`
	AgeGroup          *string   `firestore:"ageGroup"`
	CompanyName       *string   `firestore:"companyName"`
	SponsorIDs        []string  `firestore:"sponsorIDs"`
	ApprovedSponsors  []string  `firestore:"approvedSponsors"`
	PendingSponsors   []string  `firestore:"pendingSponsors"`
	SponsoredAthletes []string  `firestore:"sponsoredAthletes"`
	ApprovedAthletes  []string  `firestore:"approvedAthletes"`
	PendingAthletes   []string  `firestore:"pendingAthletes"`
	ProfileImageURL   *string   `firestore:"profileImageURL"`
	EmailForRewards   *string   `firestore:"emailForRewards"`
	ShippingAddress   *string   `firestore:"shippingAddress"`
	CreatedAt         time.Time `firestore:"createdAt"`
}

type eventDoc struct {
	EventTitle string    `firestore:"eventTitle"`
	StartDate  time.Time `firestore:"startDate"`
	EndDate    time.Time `firestore:"endDate"`
	AthleteID  string    `firestore:"athleteID"`
}

type achievementDoc struct {
	Type     string `firestore:"type"`
	Quantity int    `firestore:"quantity"`
}

type challengeDoc struct {
	Title            string           `firestore:"title"`
	Reward           string           `firestore:"reward"`
	Achievements     []achievementDoc `firestore:"achievements"`
	StartDate        time.Time        `firestore:"startDate"`
	EndDate          time.Time        `firestore:"endDate"`
	SponsorID        string           `firestore:"sponsorID"`
	CreatedBy        string           `firestore:"createdBy"`
	AssignedAthletes []string         `firestore:"assignedAthletes"`
	EventID          *string          `firestore:"eventID"`
	DesiredAgeGroups []string         `firestore:"desiredAgeGroups"`
	Type             *string          `firestore:"type"`
	LogoURL          *string          `firestore:"logoURL"`
	PromoVideoURL    *string          `firestore:"promoVideoURL"`
	TournamentName   *string          `firestore:"tournamentName"`
	TournamentLink   *string          `firestore:"tournamentLink"`
}

type submissionDoc struct {
	AthleteID             string     `firestore:"athleteID"`
	ChallengeID           string     `firestore:"challengeID"`
	ImageURLs             []string   `firestore:"imageURLs"`
	Status                string     `firestore:"status"`
	SubmittedAt           time.Time  `firestore:"submittedAt"`
	DeliveryMethod        *string    `firestore:"deliveryMethod"`
	RedemptionCode        *string    `firestore:"redemptionCode"`
	TrackingNumber        *string    `firestore:"trackingNumber"`
	Carrier               *string    `firestore:"carrier"`
	EstimatedDeliveryDate *time.Time `firestore:"estimatedDeliveryDate"`
	Notes                 *string    `firestore:"notes"`
	RewardedAt            *time.Time `firestore:"rewardedAt"`
}

// merge joins the current list with its legacy alias, keeping order
func merge(lists ...[]string) []string {
	var out []string
	for _, list := range lists {
		for _, id := range list {
			if id = strings.TrimSpace(id); id != "" {
				out = workflow.AddID(out, id)
			}
		}
	}
	return out
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func (d userDoc) toModel(id string, fallbackCreated time.Time) (*models.User, error) {
	role := models.Role(strings.ToLower(strings.TrimSpace(d.Role)))
	if !role.Valid() {
		return nil, fmt.Errorf("user %s: unknown role %q", id, d.Role)
	}

	u := &models.User{
		ID:                id,
		Role:              role,
		Email:             strings.TrimSpace(d.Email),
		FirstName:         strings.TrimSpace(d.FirstName),
		LastName:          strings.TrimSpace(d.LastName),
		AgeGroup:          blankToNil(d.AgeGroup),
		CompanyName:       blankToNil(d.CompanyName),
		SponsorIDs:        merge(d.SponsorIDs, d.ApprovedSponsors),
		PendingSponsors:   merge(d.PendingSponsors),
		SponsoredAthletes: merge(d.SponsoredAthletes, d.ApprovedAthletes),
		PendingAthletes:   merge(d.PendingAthletes),
		ProfileImageURL:   blankToNil(d.ProfileImageURL),
		EmailForRewards:   blankToNil(d.EmailForRewards),
		ShippingAddress:   blankToNil(d.ShippingAddress),
		CreatedAt:         d.CreatedAt,
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = fallbackCreated
	}
	if u.AgeGroup != nil {
		g := workflow.NormalizeAgeGroup(*u.AgeGroup)
		u.AgeGroup = &g
	}
	return u, nil
}

func (d eventDoc) toModel(id string, fallbackCreated time.Time) (*models.Event, error) {
	if d.AthleteID == "" {
		return nil, fmt.Errorf("event %s: missing athleteID", id)
	}
	if d.StartDate.IsZero() || d.EndDate.IsZero() {
		return nil, fmt.Errorf("event %s: missing dates", id)
	}
	end := d.EndDate
	if end.Before(d.StartDate) {
		end = d.StartDate
	}
	return &models.Event{
		ID:         id,
		EventTitle: strings.TrimSpace(d.EventTitle),
		StartDate:  d.StartDate,
		EndDate:    end,
		AthleteID:  d.AthleteID,
		CreatedAt:  fallbackCreated,
	}, nil
}

func (d challengeDoc) toModel(id string, fallbackCreated time.Time) (*models.Challenge, error) {
	if d.CreatedBy == "" {
		return nil, fmt.Errorf("challenge %s: missing createdBy", id)
	}
	if d.StartDate.IsZero() || d.EndDate.IsZero() {
		return nil, fmt.Errorf("challenge %s: missing dates", id)
	}

	kind := models.ChallengeSponsor
	if d.Type != nil && strings.EqualFold(strings.TrimSpace(*d.Type), string(models.ChallengeRetailer)) {
		kind = models.ChallengeRetailer
	}

	achievements := make([]models.Achievement, 0, len(d.Achievements))
	for _, a := range d.Achievements {
		if strings.TrimSpace(a.Type) == "" || a.Quantity < 1 {
			continue
		}
		achievements = append(achievements, models.Achievement{Type: strings.TrimSpace(a.Type), Quantity: a.Quantity})
	}

	sponsorID := d.SponsorID
	if sponsorID == "" {
		sponsorID = d.CreatedBy
	}

	return &models.Challenge{
		ID:               id,
		Title:            strings.TrimSpace(d.Title),
		Reward:           strings.TrimSpace(d.Reward),
		Achievements:     achievements,
		StartDate:        d.StartDate,
		EndDate:          d.EndDate,
		SponsorID:        sponsorID,
		CreatedBy:        d.CreatedBy,
		AssignedAthletes: merge(d.AssignedAthletes),
		DesiredAgeGroups: merge(d.DesiredAgeGroups),
		Type:             kind,
		EventID:          blankToNil(d.EventID),
		LogoURL:          blankToNil(d.LogoURL),
		PromoVideoURL:    blankToNil(d.PromoVideoURL),
		TournamentName:   blankToNil(d.TournamentName),
		TournamentLink:   blankToNil(d.TournamentLink),
		CreatedAt:        fallbackCreated,
	}, nil
}

func (d submissionDoc) toModel(id string, fallbackSubmitted time.Time) (*models.Submission, error) {
	if d.AthleteID == "" || d.ChallengeID == "" {
		return nil, fmt.Errorf("submission %s: missing athleteID or challengeID", id)
	}
	status, ok := workflow.ParseStatus(d.Status)
	if !ok {
		return nil, fmt.Errorf("submission %s: unknown status %q", id, d.Status)
	}

	s := &models.Submission{
		ID:          id,
		AthleteID:   d.AthleteID,
		ChallengeID: d.ChallengeID,
		ImageURLs:   merge(d.ImageURLs),
		Status:      status,
		SubmittedAt: d.SubmittedAt,
		RewardedAt:  d.RewardedAt,
	}
	if s.SubmittedAt.IsZero() {
		s.SubmittedAt = fallbackSubmitted
	}

	if method := blankToNil(d.DeliveryMethod); method != nil && status == models.StatusRewarded {
		s.Delivery = &models.Delivery{
			Method:                models.DeliveryMethod(*method),
			RedemptionCode:        blankToNil(d.RedemptionCode),
			TrackingNumber:        blankToNil(d.TrackingNumber),
			Carrier:               blankToNil(d.Carrier),
			EstimatedDeliveryDate: d.EstimatedDeliveryDate,
			Notes:                 blankToNil(d.Notes),
		}
	}
	return s, nil
}
