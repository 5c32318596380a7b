// Package repository holds the link and click-history stores.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/darkodi/shortlinks/internal/model"
)

var (
	ErrNotFound  = errors.New("link not found")
	ErrDuplicate = errors.New("shortcode already stored")
	ErrExpired   = errors.New("link expired")
)

// LinkStore keeps one LinkRecord per shortcode
type LinkStore interface {
	// Insert stores rec, failing with ErrDuplicate if the key exists (expired or not)
	Insert(ctx context.Context, rec *model.LinkRecord) error
	// Get returns a copy of the record or ErrNotFound
	Get(ctx context.Context, shortcode string) (*model.LinkRecord, error)
	// IncrementClicks checks expiry at now and bumps the counter in one step.
	// An expired record is left untouched and ErrExpired is returned.
	IncrementClicks(ctx context.Context, shortcode string, now time.Time) (*model.LinkRecord, error)
	// Remove deletes the record if present
	Remove(ctx context.Context, shortcode string) error
	// DeleteExpired removes records whose ExpiresAt is before cutoff
	DeleteExpired(ctx context.Context, cutoff time.Time) ([]string, error)
	Close() error
}

// HistoryStore keeps the ordered click history per shortcode
type HistoryStore interface {
	// Init leaves an empty history under shortcode, discarding any earlier events
	Init(ctx context.Context, shortcode string) error
	Append(ctx context.Context, shortcode string, event model.ClickEvent) error
	// List returns the events in insertion order; unknown keys give an empty slice
	List(ctx context.Context, shortcode string) ([]model.ClickEvent, error)
	Delete(ctx context.Context, shortcode string) error
	Close() error
}
