package handler

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/darkodi/shortlinks/internal/errors"
	"github.com/darkodi/shortlinks/internal/logger"
	"github.com/darkodi/shortlinks/internal/middleware"
	"github.com/darkodi/shortlinks/internal/model"
	"github.com/darkodi/shortlinks/internal/registry"
	"github.com/darkodi/shortlinks/internal/service"
	"github.com/darkodi/shortlinks/internal/validator"
)

// URLHandler handles HTTP requests for URL operations
type URLHandler struct {
	service   *service.URLService
	validator *validator.URLValidator
	log       *logger.Logger
}

// NewURLHandler creates a new handler instance
func NewURLHandler(svc *service.URLService, v *validator.URLValidator, log *logger.Logger) *URLHandler {
	if v == nil {
		v = validator.NewURLValidator()
	}
	return &URLHandler{
		service:   svc,
		validator: v,
		log:       log,
	}
}

// ============ HANDLERS ============

// HandleShorten creates a new short URL
// POST /shorturls
func (h *URLHandler) HandleShorten(w http.ResponseWriter, r *http.Request) {
	var req model.CreateURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.InvalidJSON(err.Error()).WriteJSON(w)
		return
	}

	if appErr := h.validator.ValidateURL(req.OriginalURL); appErr != nil {
		appErr.WriteJSON(w)
		return
	}
	if appErr := h.validator.ValidateCustomCode(req.CustomCode); appErr != nil {
		appErr.WriteJSON(w)
		return
	}

	resp, err := h.service.CreateShortLink(r.Context(), req)
	if err != nil {
		switch {
		case stderrors.Is(err, registry.ErrInvalidURL):
			errors.InvalidURL("URL must be an absolute http or https URL").WriteJSON(w)
		case stderrors.Is(err, service.ErrInvalidValidity):
			errors.InvalidValidity(err.Error()).WriteJSON(w)
		case stderrors.Is(err, registry.ErrShortcodeConflict):
			errors.ShortcodeExists(req.CustomCode).WriteJSON(w)
		case stderrors.Is(err, registry.ErrGenerationExhausted):
			errors.GenerationExhausted().WriteJSON(w)
		default:
			errors.Internal("").WriteJSON(w)
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, resp)
}

// HandleAnalytics returns the link and its click history
// GET /shorturls/{shortcode}
func (h *URLHandler) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	shortcode := r.PathValue("shortcode")
	if appErr := h.validator.ValidateShortCode(shortcode); appErr != nil {
		appErr.WriteJSON(w)
		return
	}

	stats, err := h.service.GetAnalytics(r.Context(), shortcode)
	if err != nil {
		h.lookupError(w, shortcode, err)
		return
	}

	h.writeJSON(w, http.StatusOK, stats)
}

// HandleRedirect redirects to the original URL
// GET /s/{shortcode}
func (h *URLHandler) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	shortcode := r.PathValue("shortcode")
	if appErr := h.validator.ValidateShortCode(shortcode); appErr != nil {
		appErr.WriteJSON(w)
		return
	}

	target, err := h.service.Redirect(r.Context(), shortcode, visitMetadata(r))
	if err != nil {
		h.lookupError(w, shortcode, err)
		return
	}

	// 302 so every visit comes back through here and gets counted
	http.Redirect(w, r, target, http.StatusFound)
}

// HandleHealth returns service health status
// GET /health
func (h *URLHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "healthy"}`))
}

// ============ ROUTER SETUP ============

// SetupRoutes configures all HTTP routes
func (h *URLHandler) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /shorturls", h.HandleShorten)
	mux.HandleFunc("GET /shorturls/{shortcode}", h.HandleAnalytics)
	mux.HandleFunc("GET "+service.RedirectPath+"{shortcode}", h.HandleRedirect)
	mux.HandleFunc("GET /health", h.HandleHealth)

	// anything else on /shorturls gets a JSON 405 instead of the mux's plain text one
	mux.HandleFunc("/shorturls", h.methodNotAllowed)

	return mux
}

// ============ HELPERS ============

func (h *URLHandler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", http.MethodPost)
	errors.MethodNotAllowed(r.Method).WriteJSON(w)
}

func (h *URLHandler) lookupError(w http.ResponseWriter, shortcode string, err error) {
	switch {
	case stderrors.Is(err, registry.ErrNotFound):
		errors.URLNotFound(shortcode).WriteJSON(w)
	case stderrors.Is(err, registry.ErrExpired):
		errors.URLExpired(shortcode).WriteJSON(w)
	default:
		h.log.Error("lookup failed", "shortcode", shortcode, "error", err)
		errors.Internal("").WriteJSON(w)
	}
}

func (h *URLHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error("encode response failed", "error", err)
	}
}

func visitMetadata(r *http.Request) model.VisitMetadata {
	return model.VisitMetadata{
		Referrer:  r.Referer(),
		Location:  middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}
