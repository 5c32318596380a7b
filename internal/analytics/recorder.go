// Package analytics records per-visit click history for short links.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/darkodi/shortlinks/internal/model"
	"github.com/darkodi/shortlinks/internal/repository"
)

// UnknownLocation is recorded when the transport layer can't identify the visitor
const UnknownLocation = "Unknown"

// Recorder owns the click histories. It does not check that a shortcode
// exists in the link registry; callers append only after a successful visit.
type Recorder struct {
	store repository.HistoryStore
}

// NewRecorder creates a recorder backed by store
func NewRecorder(store repository.HistoryStore) *Recorder {
	return &Recorder{store: store}
}

// Init creates an empty history for shortcode if there is none yet
func (r *Recorder) Init(ctx context.Context, shortcode string) error {
	if err := r.store.Init(ctx, shortcode); err != nil {
		return fmt.Errorf("init history %s: %w", shortcode, err)
	}
	return nil
}

// Append adds event to the end of the shortcode's history
func (r *Recorder) Append(ctx context.Context, shortcode string, event model.ClickEvent) error {
	if err := r.store.Append(ctx, shortcode, event); err != nil {
		return fmt.Errorf("append click %s: %w", shortcode, err)
	}
	return nil
}

// GetHistory returns the history in visit order, empty if nothing was recorded
func (r *Recorder) GetHistory(ctx context.Context, shortcode string) ([]model.ClickEvent, error) {
	events, err := r.store.List(ctx, shortcode)
	if err != nil {
		return nil, fmt.Errorf("list clicks %s: %w", shortcode, err)
	}
	if events == nil {
		events = []model.ClickEvent{}
	}
	return events, nil
}

// Forget drops the history of a swept link
func (r *Recorder) Forget(ctx context.Context, shortcode string) error {
	return r.store.Delete(ctx, shortcode)
}

// NewClickEvent builds the event for a visit at now.
// Missing referrer and user agent stay nil, a missing location becomes "Unknown".
func NewClickEvent(now time.Time, meta model.VisitMetadata) model.ClickEvent {
	event := model.ClickEvent{
		Timestamp: now,
		Location:  meta.Location,
	}
	if event.Location == "" {
		event.Location = UnknownLocation
	}
	if meta.Referrer != "" {
		referrer := meta.Referrer
		event.Referrer = &referrer
	}
	if meta.UserAgent != "" {
		userAgent := meta.UserAgent
		event.UserAgent = &userAgent
	}
	return event
}
