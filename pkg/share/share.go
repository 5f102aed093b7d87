// Package share stores rendered heatmaps under random ids so they can be
// linked to and viewed later.
//
// Backends:
//   - [MemoryStore]: in-process, for development and tests
//   - [FileStore]: JSON files, for a single-node server or the CLI
//   - [MongoStore]: MongoDB collection with a TTL index, for production
//
// Lookups of unknown ids fail with code NOT_FOUND, lookups of ids past their
// expiry with EXPIRED, and malformed ids with INVALID_INPUT.
package share

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/revenuemap/pkg/errors"
	"github.com/matzehuels/revenuemap/pkg/sink"
)

// Default lifetimes.
const (
	DefaultTTL = 30 * 24 * time.Hour
	MaxTTL     = 365 * 24 * time.Hour
)

// Share is a stored heatmap snapshot.
type Share struct {
	ID        string        `json:"id" bson:"_id"`
	Title     string        `json:"title,omitempty" bson:"title,omitempty"`
	Document  sink.Document `json:"document" bson:"document"`
	CreatedAt time.Time     `json:"created_at" bson:"created_at"`
	ExpiresAt time.Time     `json:"expires_at" bson:"expires_at"`
	Views     int           `json:"views" bson:"views"`
}

// IsExpired reports whether the share is past its expiry at now.
func (s *Share) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Store persists shares.
type Store interface {
	// Save stores a new share.
	Save(ctx context.Context, s *Share) error

	// Get returns the share with the given id.
	Get(ctx context.Context, id string) (*Share, error)

	// RecordView increments the view counter and returns the updated share.
	RecordView(ctx context.Context, id string) (*Share, error)

	// Delete removes a share. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error

	// Cleanup removes expired shares and returns how many were removed.
	Cleanup(ctx context.Context) (int, error)

	Close() error
}

// New creates a share for doc with a random id. ttl <= 0 selects
// [DefaultTTL]; values above [MaxTTL] are clamped.
func New(doc sink.Document, ttl time.Duration) (*Share, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "generate share id")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	ttl = min(ttl, MaxTTL)

	now := time.Now().UTC()
	return &Share{
		ID:        id.String(),
		Title:     doc.Title,
		Document:  doc,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// ValidateID rejects ids that are not canonical UUIDs, which also keeps them
// safe as file names and database keys.
func ValidateID(id string) error {
	u, err := uuid.Parse(id)
	if err != nil || u.String() != id {
		return errors.New(errors.ErrCodeInvalidInput, "invalid share id %q", id)
	}
	return nil
}

func notFound(id string) error {
	return errors.New(errors.ErrCodeNotFound, "share %s not found", id)
}

func expired(id string) error {
	return errors.New(errors.ErrCodeExpired, "share %s has expired", id)
}
