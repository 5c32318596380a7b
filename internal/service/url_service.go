package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/darkodi/shortlinks/internal/analytics"
	"github.com/darkodi/shortlinks/internal/logger"
	"github.com/darkodi/shortlinks/internal/model"
	"github.com/darkodi/shortlinks/internal/registry"
)

// ErrInvalidValidity is returned for a validity window that isn't positive
var ErrInvalidValidity = errors.New("validityMinutes must be a positive number")

// RedirectPath is the prefix short links are served under
const RedirectPath = "/s/"

// DefaultPublishTimeout bounds how long a redirect waits on the click publisher
const DefaultPublishTimeout = 250 * time.Millisecond

// ClickPublisher forwards visits to an external consumer
type ClickPublisher interface {
	PublishClick(ctx context.Context, shortcode string, event model.ClickEvent) error
}

// URLService handles business logic for URL operations
type URLService struct {
	registry  *registry.Registry
	recorder  *analytics.Recorder
	publisher ClickPublisher
	pubWait   time.Duration
	baseURL   string // e.g., "http://localhost:5000"
	log       *logger.Logger
	now       func() time.Time
}

// Option configures optional URLService collaborators
type Option func(*URLService)

// WithPublisher sends every recorded click to p as well
func WithPublisher(p ClickPublisher) Option {
	return func(s *URLService) { s.publisher = p }
}

// WithPublishTimeout caps each publish; d <= 0 keeps the default
func WithPublishTimeout(d time.Duration) Option {
	return func(s *URLService) {
		if d > 0 {
			s.pubWait = d
		}
	}
}

// WithClock overrides time.Now for click timestamps
func WithClock(now func() time.Time) Option {
	return func(s *URLService) { s.now = now }
}

// NewURLService creates a new service instance
func NewURLService(reg *registry.Registry, rec *analytics.Recorder, baseURL string, log *logger.Logger, opts ...Option) *URLService {
	s := &URLService{
		registry: reg,
		recorder: rec,
		pubWait:  DefaultPublishTimeout,
		baseURL:  strings.TrimRight(baseURL, "/"),
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateShortLink registers a new short link and composes its public URL
func (s *URLService) CreateShortLink(ctx context.Context, req model.CreateURLRequest) (*model.CreateURLResponse, error) {
	var validity time.Duration
	if req.ValidityMinutes != nil {
		v, err := validityDuration(*req.ValidityMinutes)
		if err != nil {
			return nil, err
		}
		validity = v
	}

	rec, err := s.registry.Create(ctx, req.OriginalURL, validity, req.CustomCode)
	if err != nil {
		if !isClientError(err) {
			s.log.Error("create short link failed", "error", err)
		}
		return nil, err
	}

	s.log.Info("short link created",
		"shortcode", rec.Shortcode,
		"original_url", rec.OriginalURL,
		"expires_at", rec.ExpiresAt,
		"custom", req.CustomCode != "")

	return &model.CreateURLResponse{
		ShortURL:    s.ShortURL(rec.Shortcode),
		OriginalURL: rec.OriginalURL,
		Shortcode:   rec.Shortcode,
		CreatedAt:   rec.CreatedAt,
		ExpiresAt:   rec.ExpiresAt,
	}, nil
}

// GetAnalytics returns the link with its full click history
func (s *URLService) GetAnalytics(ctx context.Context, shortcode string) (*model.AnalyticsResponse, error) {
	rec, err := s.registry.Get(ctx, shortcode)
	if err != nil {
		return nil, err
	}

	history, err := s.recorder.GetHistory(ctx, shortcode)
	if err != nil {
		s.log.Error("load click history failed", "shortcode", shortcode, "error", err)
		return nil, err
	}

	return &model.AnalyticsResponse{
		Shortcode:    rec.Shortcode,
		ShortURL:     s.ShortURL(rec.Shortcode),
		OriginalURL:  rec.OriginalURL,
		CreatedAt:    rec.CreatedAt,
		ExpiresAt:    rec.ExpiresAt,
		ClickCount:   rec.ClickCount,
		ClickHistory: history,
	}, nil
}

// Redirect counts the visit, records it and returns the target URL.
// Counting is the source of truth: a failed history append is logged
// and the redirect still goes ahead.
func (s *URLService) Redirect(ctx context.Context, shortcode string, meta model.VisitMetadata) (string, error) {
	target, err := s.registry.RecordVisit(ctx, shortcode)
	if err != nil {
		return "", err
	}

	event := analytics.NewClickEvent(s.now(), meta)
	if err := s.recorder.Append(ctx, shortcode, event); err != nil {
		s.log.Warn("click counted but not recorded", "shortcode", shortcode, "error", err)
	}

	if s.publisher != nil {
		pubCtx, cancel := context.WithTimeout(ctx, s.pubWait)
		err := s.publisher.PublishClick(pubCtx, shortcode, event)
		cancel()
		if err != nil {
			s.log.Warn("publish click failed", "shortcode", shortcode, "error", err)
		}
	}

	s.log.Debug("redirect", "shortcode", shortcode, "location", event.Location)
	return target, nil
}

// ShortURL composes the public URL of a shortcode
func (s *URLService) ShortURL(shortcode string) string {
	return s.baseURL + RedirectPath + shortcode
}

// validityDuration converts a possibly fractional minute count. Anything that
// doesn't come out as at least one nanosecond, or overflows a Duration, is rejected.
func validityDuration(minutes float64) (time.Duration, error) {
	ns := minutes * float64(time.Minute)
	if !(ns >= 1) || ns >= math.MaxInt64 {
		return 0, ErrInvalidValidity
	}
	return time.Duration(ns), nil
}

func isClientError(err error) bool {
	return errors.Is(err, registry.ErrInvalidURL) ||
		errors.Is(err, registry.ErrShortcodeConflict)
}
