package model

import "time"

// LinkRecord represents a shortened URL mapping
type LinkRecord struct {
	Shortcode   string    `json:"shortcode"`
	OriginalURL string    `json:"originalUrl"`
	CreatedAt   time.Time `json:"createdAt"`
	ExpiresAt   time.Time `json:"expiresAt"`  // fixed at creation
	ClickCount  uint64    `json:"clickCount"` // only RecordVisit touches this
}

// ExpiredAt reports whether the record no longer resolves at now.
// The record is still valid at exactly ExpiresAt.
func (l *LinkRecord) ExpiredAt(now time.Time) bool {
	return now.After(l.ExpiresAt)
}

// ClickEvent is one recorded visit to a short link
type ClickEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Referrer  *string   `json:"referrer"`
	Location  string    `json:"location"`
	UserAgent *string   `json:"userAgent"`
}

// VisitMetadata is what the transport layer knows about a visitor.
// Empty fields mean "not supplied".
type VisitMetadata struct {
	Referrer  string
	Location  string
	UserAgent string
}

// CreateURLRequest is the API request body
type CreateURLRequest struct {
	OriginalURL     string   `json:"originalUrl"`
	ValidityMinutes *float64 `json:"validityMinutes,omitempty"` // nil means default; fractions allowed
	CustomCode      string   `json:"customCode,omitempty"`
}

// CreateURLResponse is the API response
type CreateURLResponse struct {
	ShortURL    string    `json:"shortUrl"`
	OriginalURL string    `json:"originalUrl"`
	Shortcode   string    `json:"shortcode"`
	CreatedAt   time.Time `json:"createdAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// AnalyticsResponse is the inspect view of a short link
type AnalyticsResponse struct {
	Shortcode    string       `json:"shortcode"`
	ShortURL     string       `json:"shortUrl"`
	OriginalURL  string       `json:"originalUrl"`
	CreatedAt    time.Time    `json:"createdAt"`
	ExpiresAt    time.Time    `json:"expiresAt"`
	ClickCount   uint64       `json:"clickCount"`
	ClickHistory []ClickEvent `json:"clickHistory"`
}
