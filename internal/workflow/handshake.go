package workflow

import (
	"slices"

	"sponup-backend/internal/models"
)

// ResolvePending drops pending ids that are already approved. Only the
// resolved list is shown as pending.
func ResolvePending(pending, approved []string) []string {
	out := make([]string, 0, len(pending))
	for _, id := range pending {
		if !slices.Contains(approved, id) && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// Links returns the approved and pending lists for the side of the graph the
// user's role owns
func Links(u *models.User) (approved, pending []string) {
	if u.Role == models.RoleAthlete {
		return u.SponsorIDs, u.PendingSponsors
	}
	return u.SponsoredAthletes, u.PendingAthletes
}

// ResolvedLinks is Links with the pending list resolved against approved
func ResolvedLinks(u *models.User) (approved, pending []string) {
	approved, pending = Links(u)
	return approved, ResolvePending(pending, approved)
}

// CanLink reports whether a user with role from may send a link request to a
// user with role to
func CanLink(from, to models.Role) bool {
	if from == models.RoleAthlete {
		return to.IsBacker()
	}
	return from.IsBacker() && to == models.RoleAthlete
}

// AddID appends id to list unless it is already there
func AddID(list []string, id string) []string {
	if slices.Contains(list, id) {
		return list
	}
	return append(list, id)
}

// RemoveID returns list without any occurrence of id
func RemoveID(list []string, id string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
