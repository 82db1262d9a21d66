package services

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"sponup-backend/internal/models"
)

// memDB is an in-memory stand-in for PostgreSQL. Reads return copies, and
// the transactional methods only commit when the callback succeeds.
type memDB struct {
	mu          sync.Mutex
	users       map[string]*models.User
	events      map[string]*models.Event
	challenges  map[string]*models.Challenge
	submissions map[string]*models.Submission
}

func newMemDB() *memDB {
	return &memDB{
		users:       map[string]*models.User{},
		events:      map[string]*models.Event{},
		challenges:  map[string]*models.Challenge{},
		submissions: map[string]*models.Submission{},
	}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.SponsorIDs = slices.Clone(u.SponsorIDs)
	c.PendingSponsors = slices.Clone(u.PendingSponsors)
	c.SponsoredAthletes = slices.Clone(u.SponsoredAthletes)
	c.PendingAthletes = slices.Clone(u.PendingAthletes)
	return &c
}

func cloneChallenge(ch *models.Challenge) *models.Challenge {
	c := *ch
	c.Achievements = slices.Clone(ch.Achievements)
	c.AssignedAthletes = slices.Clone(ch.AssignedAthletes)
	c.DesiredAgeGroups = slices.Clone(ch.DesiredAgeGroups)
	return &c
}

func cloneSubmission(s *models.Submission) *models.Submission {
	c := *s
	c.ImageURLs = slices.Clone(s.ImageURLs)
	if s.Delivery != nil {
		d := *s.Delivery
		c.Delivery = &d
	}
	return &c
}

// users

type memUsers struct{ db *memDB }

func (m memUsers) Create(_ context.Context, user *models.User) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.users[user.ID]; ok {
		return fmt.Errorf("user %s already exists: %w", user.ID, ErrConflict)
	}
	m.db.users[user.ID] = cloneUser(user)
	return nil
}

func (m memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	u, ok := m.db.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return cloneUser(u), nil
}

func (m memUsers) GetByIDs(_ context.Context, ids []string) ([]*models.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []*models.User
	for id, u := range m.db.users {
		if slices.Contains(ids, id) {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (m memUsers) UpdateProfile(_ context.Context, user *models.User) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	u, ok := m.db.users[user.ID]
	if !ok {
		return fmt.Errorf("user %s: %w", user.ID, ErrNotFound)
	}
	u.FirstName, u.LastName = user.FirstName, user.LastName
	u.AgeGroup, u.CompanyName = user.AgeGroup, user.CompanyName
	u.ProfileImageURL = user.ProfileImageURL
	u.EmailForRewards, u.ShippingAddress = user.EmailForRewards, user.ShippingAddress
	return nil
}

func (m memUsers) CountAthletes(_ context.Context, groups []string, all bool) (int, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	n := 0
	for _, u := range m.db.users {
		if u.Role != models.RoleAthlete {
			continue
		}
		if all || (u.AgeGroup != nil && slices.Contains(groups, *u.AgeGroup)) {
			n++
		}
	}
	return n, nil
}

func (m memUsers) UpdateLinks(_ context.Context, ids []string, fn func(map[string]*models.User) error) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	locked := map[string]*models.User{}
	for _, id := range ids {
		if u, ok := m.db.users[id]; ok {
			locked[id] = cloneUser(u)
		}
	}
	if err := fn(locked); err != nil {
		return err
	}
	for id, u := range locked {
		m.db.users[id] = u
	}
	return nil
}

// events

type memEvents struct{ db *memDB }

func (m memEvents) Create(_ context.Context, e *models.Event) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	c := *e
	m.db.events[e.ID] = &c
	return nil
}

func (m memEvents) GetByID(_ context.Context, id string) (*models.Event, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	e, ok := m.db.events[id]
	if !ok {
		return nil, fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	c := *e
	return &c, nil
}

func (m memEvents) ListByAthlete(_ context.Context, athleteID string) ([]*models.Event, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []*models.Event
	for _, e := range m.db.events {
		if e.AthleteID == athleteID {
			c := *e
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (m memEvents) Delete(_ context.Context, id, athleteID string) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	e, ok := m.db.events[id]
	if !ok || e.AthleteID != athleteID {
		return fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	delete(m.db.events, id)
	return nil
}

// challenges

type memChallenges struct{ db *memDB }

func (m memChallenges) Create(_ context.Context, c *models.Challenge) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	m.db.challenges[c.ID] = cloneChallenge(c)
	return nil
}

func (m memChallenges) GetByID(_ context.Context, id string) (*models.Challenge, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	c, ok := m.db.challenges[id]
	if !ok {
		return nil, fmt.Errorf("challenge %s: %w", id, ErrNotFound)
	}
	return cloneChallenge(c), nil
}

func (m memChallenges) GetByIDs(_ context.Context, ids []string) ([]*models.Challenge, error) {
	return m.filter(func(c *models.Challenge) bool { return slices.Contains(ids, c.ID) }), nil
}

func (m memChallenges) ListByCreator(_ context.Context, userID string) ([]*models.Challenge, error) {
	return m.filter(func(c *models.Challenge) bool { return c.CreatedBy == userID }), nil
}

func (m memChallenges) ListCandidates(_ context.Context, athleteID string) ([]*models.Challenge, error) {
	return m.filter(func(c *models.Challenge) bool {
		return c.Type == models.ChallengeRetailer || slices.Contains(c.AssignedAthletes, athleteID)
	}), nil
}

func (m memChallenges) DeleteUnused(_ context.Context, id, createdBy string) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	c, ok := m.db.challenges[id]
	if !ok || c.CreatedBy != createdBy {
		return fmt.Errorf("challenge %s: %w", id, ErrConflict)
	}
	for _, s := range m.db.submissions {
		if s.ChallengeID == id {
			return fmt.Errorf("challenge %s has submissions: %w", id, ErrConflict)
		}
	}
	delete(m.db.challenges, id)
	return nil
}

func (m memChallenges) filter(keep func(*models.Challenge) bool) []*models.Challenge {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []*models.Challenge
	for _, c := range m.db.challenges {
		if keep(c) {
			out = append(out, cloneChallenge(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out
}

// submissions

type memSubmissions struct{ db *memDB }

func (m memSubmissions) GetByID(_ context.Context, id string) (*models.Submission, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	s, ok := m.db.submissions[id]
	if !ok {
		return nil, fmt.Errorf("submission %s: %w", id, ErrNotFound)
	}
	return cloneSubmission(s), nil
}

func (m memSubmissions) GetByAthleteAndChallenge(_ context.Context, athleteID, challengeID string) (*models.Submission, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if s := m.byKey(athleteID, challengeID); s != nil {
		return cloneSubmission(s), nil
	}
	return nil, fmt.Errorf("submission: %w", ErrNotFound)
}

func (m memSubmissions) byKey(athleteID, challengeID string) *models.Submission {
	for _, s := range m.db.submissions {
		if s.AthleteID == athleteID && s.ChallengeID == challengeID {
			return s
		}
	}
	return nil
}

func (m memSubmissions) ListByAthlete(_ context.Context, athleteID string) ([]*models.Submission, error) {
	return m.filter(func(s *models.Submission) bool { return s.AthleteID == athleteID }), nil
}

func (m memSubmissions) ListByChallenge(_ context.Context, challengeID string) ([]*models.Submission, error) {
	return m.filter(func(s *models.Submission) bool { return s.ChallengeID == challengeID }), nil
}

func (m memSubmissions) CountByChallenges(_ context.Context, ids []string) (map[string]map[models.SubmissionStatus]int, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	out := map[string]map[models.SubmissionStatus]int{}
	for _, s := range m.db.submissions {
		if !slices.Contains(ids, s.ChallengeID) {
			continue
		}
		if out[s.ChallengeID] == nil {
			out[s.ChallengeID] = map[models.SubmissionStatus]int{}
		}
		out[s.ChallengeID][s.Status]++
	}
	return out, nil
}

func (m memSubmissions) Submit(
	_ context.Context,
	athleteID, challengeID, email, address string,
	fn func(*models.Submission) (*models.Submission, error),
) (*models.Submission, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	var existing *models.Submission
	if s := m.byKey(athleteID, challengeID); s != nil {
		existing = cloneSubmission(s)
	}
	next, err := fn(existing)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		next.ID = existing.ID
	}
	next.AthleteID, next.ChallengeID = athleteID, challengeID
	m.db.submissions[next.ID] = cloneSubmission(next)

	if u, ok := m.db.users[athleteID]; ok {
		u.EmailForRewards, u.ShippingAddress = &email, &address
	}
	return next, nil
}

func (m memSubmissions) Transition(
	_ context.Context,
	id string,
	fn func(*models.Submission) (*models.Submission, error),
) (*models.Submission, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	current, ok := m.db.submissions[id]
	if !ok {
		return nil, fmt.Errorf("submission %s: %w", id, ErrNotFound)
	}
	next, err := fn(cloneSubmission(current))
	if err != nil {
		return nil, err
	}
	m.db.submissions[id] = cloneSubmission(next)
	return next, nil
}

func (m memSubmissions) filter(keep func(*models.Submission) bool) []*models.Submission {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []*models.Submission
	for _, s := range m.db.submissions {
		if keep(s) {
			out = append(out, cloneSubmission(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	return out
}

// recordingPublisher keeps every published change

type recordingPublisher struct {
	mu      sync.Mutex
	changes []Change
}

func (p *recordingPublisher) Publish(_ context.Context, change Change) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, change)
	return nil
}

func (p *recordingPublisher) published() []Change {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.changes)
}

// fakeVerifier accepts tokens of the form "token:<uid>"

type fakeVerifier struct{}

func (fakeVerifier) Verify(_ context.Context, idToken string) (*Identity, error) {
	uid, ok := strings.CutPrefix(idToken, "token:")
	if !ok || uid == "" {
		return nil, ErrInvalidToken
	}
	return &Identity{UID: uid, Email: uid + "@example.com"}, nil
}

// seed helpers

func strPtr(s string) *string { return &s }

func (db *memDB) addUser(u *models.User) *models.User {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.users[u.ID] = cloneUser(u)
	return u
}

func (db *memDB) user(id string) *models.User {
	db.mu.Lock()
	defer db.mu.Unlock()
	return cloneUser(db.users[id])
}

func (db *memDB) submissionCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.submissions)
}

func athlete(id, ageGroup string) *models.User {
	return &models.User{ID: id, Role: models.RoleAthlete, FirstName: "Ath", LastName: id, AgeGroup: strPtr(ageGroup)}
}

func sponsor(id string) *models.User {
	return &models.User{ID: id, Role: models.RoleSponsor, FirstName: "Spon", LastName: id}
}

func retailer(id, company string) *models.User {
	return &models.User{ID: id, Role: models.RoleRetailer, FirstName: "Ret", LastName: id, CompanyName: strPtr(company)}
}
