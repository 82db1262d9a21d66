package services

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"sponup-backend/internal/models"
	"sponup-backend/internal/workflow"

	"github.com/rs/zerolog/log"
)

// RelationshipService runs the link handshake between athletes and their
// sponsors or retailers. Every change to the two users involved is written
// in one transaction.
type RelationshipService struct {
	users UserStore
}

// NewRelationshipService creates a new relationship service
func NewRelationshipService(users UserStore) *RelationshipService {
	return &RelationshipService{users: users}
}

// LinksView is a user's side of the relationship graph with names resolved.
// Pending excludes anyone already confirmed.
type LinksView struct {
	Confirmed    []*PublicUser `json:"confirmed"`
	Pending      []*PublicUser `json:"pending"`
	PendingCount int           `json:"pending_count"`
}

// approvedList and pendingList point at the lists owned by the user's role
func approvedList(u *models.User) *[]string {
	if u.Role == models.RoleAthlete {
		return &u.SponsorIDs
	}
	return &u.SponsoredAthletes
}

func pendingList(u *models.User) *[]string {
	if u.Role == models.RoleAthlete {
		return &u.PendingSponsors
	}
	return &u.PendingAthletes
}

// Request links requesterID to targetID. The requester sees the link as
// confirmed right away; the target sees it as pending until they accept.
func (s *RelationshipService) Request(ctx context.Context, requesterID, targetID string) error {
	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		return invalid("target_id", "user id is required")
	}
	if targetID == requesterID {
		return invalid("target_id", "you cannot link with yourself")
	}

	err := s.users.UpdateLinks(ctx, []string{requesterID, targetID}, func(users map[string]*models.User) error {
		requester, ok := users[requesterID]
		if !ok {
			return fmt.Errorf("user %s: %w", requesterID, ErrNotFound)
		}
		target, ok := users[targetID]
		if !ok {
			return invalid("target_id", "no user found with this id")
		}
		if !workflow.CanLink(requester.Role, target.Role) {
			if requester.Role == models.RoleAthlete {
				return invalid("target_id", "athletes can only link with sponsors or retailers")
			}
			return invalid("target_id", "sponsors and retailers can only link with athletes")
		}

		approved, pending := workflow.ResolvedLinks(requester)
		if slices.Contains(approved, targetID) {
			return fmt.Errorf("%s: %w", targetID, ErrAlreadyLinked)
		}
		if slices.Contains(pending, targetID) {
			return fmt.Errorf("%s already asked to link, accept their request instead: %w", targetID, ErrAlreadyPending)
		}
		_, targetPending := workflow.ResolvedLinks(target)
		if slices.Contains(targetPending, requesterID) {
			return fmt.Errorf("%s: %w", targetID, ErrAlreadyPending)
		}

		*approvedList(requester) = workflow.AddID(*approvedList(requester), targetID)
		*pendingList(target) = workflow.AddID(*pendingList(target), requesterID)
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().Str("requester_id", requesterID).Str("target_id", targetID).Msg("Link requested")
	return nil
}

// Accept confirms the pending request requesterID sent to userID
func (s *RelationshipService) Accept(ctx context.Context, userID, requesterID string) error {
	err := s.users.UpdateLinks(ctx, []string{userID, requesterID}, func(users map[string]*models.User) error {
		user, ok := users[userID]
		if !ok {
			return fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		_, pending := workflow.ResolvedLinks(user)
		if !slices.Contains(pending, requesterID) {
			return fmt.Errorf("no pending request from %s: %w", requesterID, ErrNotFound)
		}

		*approvedList(user) = workflow.AddID(*approvedList(user), requesterID)
		*pendingList(user) = workflow.RemoveID(*pendingList(user), requesterID)

		if requester, ok := users[requesterID]; ok {
			*approvedList(requester) = workflow.AddID(*approvedList(requester), userID)
			*pendingList(requester) = workflow.RemoveID(*pendingList(requester), userID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().Str("user_id", userID).Str("requester_id", requesterID).Msg("Link accepted")
	return nil
}

// Unlink removes every trace of the link between userID and otherID on both
// sides. It serves declining a request, cancelling one, and removing a
// confirmed link.
func (s *RelationshipService) Unlink(ctx context.Context, userID, otherID string) error {
	err := s.users.UpdateLinks(ctx, []string{userID, otherID}, func(users map[string]*models.User) error {
		user, ok := users[userID]
		if !ok {
			return fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		approved, pending := workflow.Links(user)
		if !slices.Contains(approved, otherID) && !slices.Contains(pending, otherID) {
			return fmt.Errorf("no link with %s: %w", otherID, ErrNotFound)
		}

		*approvedList(user) = workflow.RemoveID(*approvedList(user), otherID)
		*pendingList(user) = workflow.RemoveID(*pendingList(user), otherID)
		if other, ok := users[otherID]; ok {
			*approvedList(other) = workflow.RemoveID(*approvedList(other), userID)
			*pendingList(other) = workflow.RemoveID(*pendingList(other), userID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().Str("user_id", userID).Str("other_id", otherID).Msg("Link removed")
	return nil
}

// List returns the user's confirmed and pending links with their profiles
func (s *RelationshipService) List(ctx context.Context, userID string) (*LinksView, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	approved, pending := workflow.ResolvedLinks(user)
	others, err := s.users.GetByIDs(ctx, append(slices.Clone(approved), pending...))
	if err != nil {
		return nil, err
	}
	byID := usersByID(others)

	view := &LinksView{
		Confirmed: make([]*PublicUser, 0, len(approved)),
		Pending:   make([]*PublicUser, 0, len(pending)),
	}
	for _, id := range approved {
		if u, ok := byID[id]; ok {
			view.Confirmed = append(view.Confirmed, Public(u))
		}
	}
	for _, id := range pending {
		if u, ok := byID[id]; ok {
			view.Pending = append(view.Pending, Public(u))
		}
	}
	view.PendingCount = len(pending)
	return view, nil
}
