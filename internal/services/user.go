package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sponup-backend/internal/models"
	"sponup-backend/internal/workflow"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload of an app session token
type Claims struct {
	UserID string      `json:"user_id"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// UserService handles user-related business logic
type UserService struct {
	users     UserStore
	verifier  IdentityVerifier
	jwtSecret []byte
	jwtExpiry time.Duration
	now       func() time.Time
}

// NewUserService creates a new user service
func NewUserService(users UserStore, verifier IdentityVerifier, jwtSecret string, jwtExpiry time.Duration) *UserService {
	return &UserService{
		users:     users,
		verifier:  verifier,
		jwtSecret: []byte(jwtSecret),
		jwtExpiry: jwtExpiry,
		now:       time.Now,
	}
}

// RegisterInput is what a new account is created from
type RegisterInput struct {
	IDToken     string      `json:"id_token" validate:"required"`
	Role        models.Role `json:"role" validate:"required,oneof=athlete sponsor retailer"`
	FirstName   string      `json:"first_name" validate:"required"`
	LastName    string      `json:"last_name" validate:"required"`
	AgeGroup    *string     `json:"age_group"`
	CompanyName *string     `json:"company_name"`
}

// ProfileUpdate holds the editable profile fields. Nil leaves a field as is.
type ProfileUpdate struct {
	FirstName       *string `json:"first_name"`
	LastName        *string `json:"last_name"`
	AgeGroup        *string `json:"age_group"`
	CompanyName     *string `json:"company_name"`
	ProfileImageURL *string `json:"profile_image_url" validate:"omitempty,url"`
	EmailForRewards *string `json:"email_for_rewards" validate:"omitempty,email"`
	ShippingAddress *string `json:"shipping_address"`
}

// PublicUser is the part of a profile other users may see
type PublicUser struct {
	ID              string      `json:"id"`
	Role            models.Role `json:"role"`
	FirstName       string      `json:"first_name"`
	LastName        string      `json:"last_name"`
	DisplayName     string      `json:"display_name"`
	AgeGroup        *string     `json:"age_group,omitempty"`
	CompanyName     *string     `json:"company_name,omitempty"`
	ProfileImageURL *string     `json:"profile_image_url,omitempty"`
}

// Public strips private fields from u
func Public(u *models.User) *PublicUser {
	return &PublicUser{
		ID:              u.ID,
		Role:            u.Role,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		DisplayName:     u.DisplayName(),
		AgeGroup:        u.AgeGroup,
		CompanyName:     u.CompanyName,
		ProfileImageURL: u.ProfileImageURL,
	}
}

// GenerateJWT generates a JWT token for a user
func (s *UserService) GenerateJWT(user *models.User) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtExpiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateJWT validates a JWT token and returns its claims
func (s *UserService) ValidateJWT(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" || !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: missing user_id or role", ErrInvalidToken)
	}

	return claims, nil
}

// Register creates the account for a verified identity and returns it with
// a session token
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, string, error) {
	identity, err := s.verifier.Verify(ctx, in.IDToken)
	if err != nil {
		return nil, "", err
	}

	if !in.Role.Valid() {
		return nil, "", invalid("role", "role must be athlete, sponsor or retailer")
	}

	user := &models.User{
		ID:        identity.UID,
		Role:      in.Role,
		Email:     identity.Email,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		CreatedAt: s.now(),
	}
	if user.FirstName == "" {
		return nil, "", invalid("first_name", "first name is required")
	}
	if user.LastName == "" {
		return nil, "", invalid("last_name", "last name is required")
	}

	switch in.Role {
	case models.RoleAthlete:
		group, err := validAgeGroup(in.AgeGroup)
		if err != nil {
			return nil, "", err
		}
		user.AgeGroup = &group
	case models.RoleRetailer:
		company, err := validCompany(in.CompanyName)
		if err != nil {
			return nil, "", err
		}
		user.CompanyName = &company
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, "", fmt.Errorf("account already registered: %w", err)
		}
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.GenerateJWT(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// SignIn exchanges a verified identity of an existing user for a session
// token
func (s *UserService) SignIn(ctx context.Context, idToken string) (*models.User, string, error) {
	identity, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		return nil, "", err
	}

	user, err := s.users.GetByID(ctx, identity.UID)
	if err != nil {
		return nil, "", err
	}

	token, err := s.GenerateJWT(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// GetUser returns the full profile of a user
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// GetPublicProfile returns what other users may see of a user
func (s *UserService) GetPublicProfile(ctx context.Context, id string) (*PublicUser, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return Public(user), nil
}

// UpdateProfile applies the non-nil fields of update. The role and the
// relationship lists cannot be changed here.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if update.FirstName != nil {
		name := strings.TrimSpace(*update.FirstName)
		if name == "" {
			return nil, invalid("first_name", "first name cannot be empty")
		}
		user.FirstName = name
	}
	if update.LastName != nil {
		name := strings.TrimSpace(*update.LastName)
		if name == "" {
			return nil, invalid("last_name", "last name cannot be empty")
		}
		user.LastName = name
	}
	if update.AgeGroup != nil {
		if user.Role != models.RoleAthlete {
			return nil, invalid("age_group", "only athletes have an age group")
		}
		group, err := validAgeGroup(update.AgeGroup)
		if err != nil {
			return nil, err
		}
		user.AgeGroup = &group
	}
	if update.CompanyName != nil {
		if user.Role != models.RoleRetailer {
			return nil, invalid("company_name", "only retailers have a company name")
		}
		company, err := validCompany(update.CompanyName)
		if err != nil {
			return nil, err
		}
		user.CompanyName = &company
	}
	if update.ProfileImageURL != nil {
		user.ProfileImageURL = optional(*update.ProfileImageURL)
	}
	if update.EmailForRewards != nil {
		user.EmailForRewards = optional(*update.EmailForRewards)
	}
	if update.ShippingAddress != nil {
		user.ShippingAddress = optional(*update.ShippingAddress)
	}

	if err := s.users.UpdateProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}

func validAgeGroup(group *string) (string, error) {
	if group == nil || !workflow.IsAgeGroup(*group) {
		return "", invalid("age_group", "age group must be one of "+strings.Join(workflow.AgeGroups, ", "))
	}
	return workflow.NormalizeAgeGroup(*group), nil
}

func validCompany(company *string) (string, error) {
	if company == nil || strings.TrimSpace(*company) == "" {
		return "", invalid("company_name", "company name is required for retailers")
	}
	return strings.TrimSpace(*company), nil
}

// optional trims s and maps blank to nil
func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
