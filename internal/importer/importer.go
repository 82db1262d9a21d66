// Package importer copies the legacy Firestore collections into PostgreSQL.
package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sponup-backend/internal/models"

	"cloud.google.com/go/firestore"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/iterator"
)

// Legacy collection names
const (
	CollectionUsers       = "users"
	CollectionEvents      = "events"
	CollectionChallenges  = "challenges"
	CollectionSubmissions = "submissions"
)

// Document is one record of a legacy collection
type Document interface {
	ID() string
	Created() time.Time
	DataTo(v interface{}) error
}

// Source walks the documents of a collection
type Source interface {
	Each(ctx context.Context, collection string, fn func(Document) error) error
}

// UserWriter stores imported users
type UserWriter interface {
	Upsert(ctx context.Context, user *models.User) error
}

// EventWriter stores imported events
type EventWriter interface {
	Create(ctx context.Context, event *models.Event) error
}

// ChallengeWriter stores imported challenges
type ChallengeWriter interface {
	Create(ctx context.Context, challenge *models.Challenge) error
}

// SubmissionWriter stores imported submissions
type SubmissionWriter interface {
	Upsert(ctx context.Context, submission *models.Submission) error
}

// Counts tallies one collection's import
type Counts struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// Stats is the outcome of a full import
type Stats struct {
	Users       Counts `json:"users"`
	Events      Counts `json:"events"`
	Challenges  Counts `json:"challenges"`
	Submissions Counts `json:"submissions"`
}

// Importer copies every legacy collection in dependency order
type Importer struct {
	source      Source
	users       UserWriter
	events      EventWriter
	challenges  ChallengeWriter
	submissions SubmissionWriter
}

// New creates a new importer
func New(source Source, users UserWriter, events EventWriter, challenges ChallengeWriter, submissions SubmissionWriter) *Importer {
	return &Importer{
		source:      source,
		users:       users,
		events:      events,
		challenges:  challenges,
		submissions: submissions,
	}
}

// Run imports users, events, challenges and submissions. Documents that do
// not decode or do not fit the schema are logged and skipped; only a failure
// to read a collection stops the run.
func (i *Importer) Run(ctx context.Context) (*Stats, error) {
	var stats Stats

	err := i.copy(ctx, CollectionUsers, &stats.Users, func(doc Document) error {
		var d userDoc
		if err := doc.DataTo(&d); err != nil {
			return err
		}
		u, err := d.toModel(doc.ID(), doc.Created())
		if err != nil {
			return err
		}
		return i.users.Upsert(ctx, u)
	})
	if err != nil {
		return &stats, err
	}

	err = i.copy(ctx, CollectionEvents, &stats.Events, func(doc Document) error {
		var d eventDoc
		if err := doc.DataTo(&d); err != nil {
			return err
		}
		e, err := d.toModel(doc.ID(), doc.Created())
		if err != nil {
			return err
		}
		return i.events.Create(ctx, e)
	})
	if err != nil {
		return &stats, err
	}

	err = i.copy(ctx, CollectionChallenges, &stats.Challenges, func(doc Document) error {
		var d challengeDoc
		if err := doc.DataTo(&d); err != nil {
			return err
		}
		c, err := d.toModel(doc.ID(), doc.Created())
		if err != nil {
			return err
		}
		return i.challenges.Create(ctx, c)
	})
	if err != nil {
		return &stats, err
	}

	err = i.copy(ctx, CollectionSubmissions, &stats.Submissions, func(doc Document) error {
		var d submissionDoc
		if err := doc.DataTo(&d); err != nil {
			return err
		}
		s, err := d.toModel(doc.ID(), doc.Created())
		if err != nil {
			return err
		}
		return i.submissions.Upsert(ctx, s)
	})
	if err != nil {
		return &stats, err
	}

	return &stats, nil
}

func (i *Importer) copy(ctx context.Context, collection string, counts *Counts, store func(Document) error) error {
	err := i.source.Each(ctx, collection, func(doc Document) error {
		if err := store(doc); err != nil {
			counts.Skipped++
			log.Warn().
				Err(err).
				Str("collection", collection).
				Str("document_id", doc.ID()).
				Msg("Skipping document")
			return nil
		}
		counts.Imported++
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", collection, err)
	}

	log.Info().
		Str("collection", collection).
		Int("imported", counts.Imported).
		Int("skipped", counts.Skipped).
		Msg("Collection imported")
	return nil
}

// FirestoreSource reads collections from a Firestore client
type FirestoreSource struct {
	client *firestore.Client
}

// NewFirestoreSource creates a source over client
func NewFirestoreSource(client *firestore.Client) *FirestoreSource {
	return &FirestoreSource{client: client}
}

// Each calls fn for every document of collection
func (s *FirestoreSource) Each(ctx context.Context, collection string, fn func(Document) error) error {
	iter := s.client.Collection(collection).Documents(ctx)
	defer iter.Stop()

	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(snapshot{snap}); err != nil {
			return err
		}
	}
}

type snapshot struct {
	snap *firestore.DocumentSnapshot
}

func (s snapshot) ID() string { return s.snap.Ref.ID }

func (s snapshot) Created() time.Time { return s.snap.CreateTime }

func (s snapshot) DataTo(v interface{}) error { return s.snap.DataTo(v) }
