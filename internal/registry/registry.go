// Package registry owns short link records: creation with collision
// handling, lazy expiry checks and click counting.
package registry

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/darkodi/shortlinks/internal/encoder"
	"github.com/darkodi/shortlinks/internal/model"
	"github.com/darkodi/shortlinks/internal/repository"
)

var (
	ErrInvalidURL          = errors.New("invalid URL format")
	ErrShortcodeConflict   = errors.New("shortcode already exists")
	ErrGenerationExhausted = errors.New("could not generate a free shortcode")
	ErrNotFound            = errors.New("short URL not found")
	ErrExpired             = errors.New("short URL has expired")
)

const (
	DefaultValidity    = 30 * time.Minute
	DefaultMaxAttempts = 10
)

// HistoryInitializer prepares an empty click history for a new link
type HistoryInitializer interface {
	Init(ctx context.Context, shortcode string) error
}

// Options tunes a Registry. Zero values pick the defaults.
type Options struct {
	CodeLength      int
	MaxAttempts     int
	DefaultValidity time.Duration
	Now             func() time.Time
	Generate        func(length int) string
}

// Registry maps shortcodes to link records
type Registry struct {
	store     repository.LinkStore
	histories HistoryInitializer
	opts      Options
}

// New creates a registry on top of store
func New(store repository.LinkStore, histories HistoryInitializer, opts Options) *Registry {
	if opts.CodeLength <= 0 {
		opts.CodeLength = encoder.DefaultLength
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.DefaultValidity <= 0 {
		opts.DefaultValidity = DefaultValidity
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Generate == nil {
		opts.Generate = encoder.Generate
	}

	return &Registry{
		store:     store,
		histories: histories,
		opts:      opts,
	}
}

// Create stores a new link. An empty customCode means "generate one";
// validity <= 0 means the default validity.
func (r *Registry) Create(ctx context.Context, originalURL string, validity time.Duration, customCode string) (*model.LinkRecord, error) {
	if err := validateURL(originalURL); err != nil {
		return nil, err
	}
	if validity <= 0 {
		validity = r.opts.DefaultValidity
	}

	now := r.opts.Now()
	rec := &model.LinkRecord{
		OriginalURL: originalURL,
		CreatedAt:   now,
		ExpiresAt:   now.Add(validity),
	}

	if customCode != "" {
		rec.Shortcode = customCode
		if err := r.insert(ctx, rec); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return nil, ErrShortcodeConflict
			}
			return nil, err
		}
	} else if err := r.insertGenerated(ctx, rec); err != nil {
		return nil, err
	}

	if r.histories != nil {
		if err := r.histories.Init(ctx, rec.Shortcode); err != nil {
			// give the code back so a retry isn't answered with a conflict
			if rmErr := r.store.Remove(ctx, rec.Shortcode); rmErr != nil {
				return nil, errors.Join(err, fmt.Errorf("release %s: %w", rec.Shortcode, rmErr))
			}
			return nil, err
		}
	}

	out := *rec
	return &out, nil
}

// Get returns a snapshot of the record
func (r *Registry) Get(ctx context.Context, shortcode string) (*model.LinkRecord, error) {
	rec, err := r.store.Get(ctx, shortcode)
	if err != nil {
		return nil, translate(err)
	}
	if rec.ExpiredAt(r.opts.Now()) {
		return nil, ErrExpired
	}
	return rec, nil
}

// RecordVisit counts one click and returns the URL to redirect to
func (r *Registry) RecordVisit(ctx context.Context, shortcode string) (string, error) {
	rec, err := r.store.IncrementClicks(ctx, shortcode, r.opts.Now())
	if err != nil {
		return "", translate(err)
	}
	return rec.OriginalURL, nil
}

// Sweep deletes links that expired more than grace ago and returns their codes
func (r *Registry) Sweep(ctx context.Context, grace time.Duration) ([]string, error) {
	removed, err := r.store.DeleteExpired(ctx, r.opts.Now().Add(-grace))
	if err != nil {
		return nil, fmt.Errorf("sweep expired links: %w", err)
	}
	return removed, nil
}

// ============ HELPERS ============

func (r *Registry) insertGenerated(ctx context.Context, rec *model.LinkRecord) error {
	for attempt := 0; attempt < r.opts.MaxAttempts; attempt++ {
		rec.Shortcode = r.opts.Generate(r.opts.CodeLength)

		err := r.insert(ctx, rec)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return err
		}
	}
	return ErrGenerationExhausted
}

func (r *Registry) insert(ctx context.Context, rec *model.LinkRecord) error {
	err := r.store.Insert(ctx, rec)
	if err != nil && !errors.Is(err, repository.ErrDuplicate) {
		return fmt.Errorf("insert link %s: %w", rec.Shortcode, err)
	}
	return err
}

func translate(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrExpired):
		return ErrExpired
	default:
		return fmt.Errorf("link store: %w", err)
	}
}

func validateURL(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return ErrInvalidURL
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ErrInvalidURL
	}

	// Must have scheme and host, scheme http or https
	if parsed.Host == "" {
		return ErrInvalidURL
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
		return nil
	default:
		return ErrInvalidURL
	}
}
