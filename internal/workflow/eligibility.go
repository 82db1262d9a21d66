// Package workflow holds the rules of the challenge lifecycle. Everything here
// is pure: callers pass in the clock and the documents they loaded.
package workflow

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"sponup-backend/internal/models"
)

// AllAgeGroups is the retailer targeting option that matches every athlete
const AllAgeGroups = "All Age Groups"

// AgeGroups lists the age groups an athlete can sign up with
var AgeGroups = func() []string {
	groups := make([]string, 0, 13)
	for age := 6; age <= 18; age++ {
		groups = append(groups, fmt.Sprintf("%du", age))
	}
	return groups
}()

// NormalizeAgeGroup trims and lower-cases an age group for comparison
func NormalizeAgeGroup(group string) string {
	return strings.ToLower(strings.TrimSpace(group))
}

// IsAgeGroup reports whether group is a known athlete age group
func IsAgeGroup(group string) bool {
	return slices.Contains(AgeGroups, NormalizeAgeGroup(group))
}

// MatchesAgeGroups reports whether an athlete in ageGroup is targeted by
// desired. An empty target list matches everyone.
func MatchesAgeGroups(desired []string, ageGroup string) bool {
	if len(desired) == 0 {
		return true
	}
	normalized := NormalizeAgeGroup(ageGroup)
	for _, group := range desired {
		g := NormalizeAgeGroup(group)
		if g == strings.ToLower(AllAgeGroups) {
			return true
		}
		if normalized != "" && g == normalized {
			return true
		}
	}
	return false
}

// IsEligible decides whether a challenge belongs in an athlete's list.
// Retailer challenges match on age group, all others on explicit assignment.
func IsEligible(challenge *models.Challenge, athlete *models.User) bool {
	if challenge == nil || athlete == nil || athlete.ID == "" {
		return false
	}
	if challenge.Type == models.ChallengeRetailer {
		ageGroup := ""
		if athlete.AgeGroup != nil {
			ageGroup = *athlete.AgeGroup
		}
		return MatchesAgeGroups(challenge.DesiredAgeGroups, ageGroup)
	}
	return slices.Contains(challenge.AssignedAthletes, athlete.ID)
}

// IsVisible reports whether an eligible challenge has started and should show
// up in the athlete's list
func IsVisible(challenge *models.Challenge, athlete *models.User, now time.Time) bool {
	return IsEligible(challenge, athlete) && !now.Before(challenge.StartDate)
}

// NormalizeTargetGroups cleans the age groups a retailer picked. Selecting
// AllAgeGroups replaces every other choice.
func NormalizeTargetGroups(groups []string) ([]string, error) {
	seen := make(map[string]bool, len(groups))
	out := make([]string, 0, len(groups))
	for _, group := range groups {
		g := NormalizeAgeGroup(group)
		if g == "" {
			continue
		}
		if g == strings.ToLower(AllAgeGroups) {
			return []string{AllAgeGroups}, nil
		}
		if !IsAgeGroup(g) {
			return nil, &ValidationError{Field: "desired_age_groups", Message: fmt.Sprintf("unknown age group %q", group)}
		}
		if !seen[g] {
			seen[g] = true
			out = append(out, g)
		}
	}
	if len(out) == 0 {
		return nil, &ValidationError{Field: "desired_age_groups", Message: "at least one age group is required"}
	}
	return out, nil
}
