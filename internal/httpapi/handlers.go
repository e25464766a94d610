package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"studyhall.org/internal/audit"
	"studyhall.org/internal/auth"
	"studyhall.org/internal/campus"
	"studyhall.org/internal/obs"
	"studyhall.org/internal/validate"
)

const serviceName = "studyhall-api"

// ReadyProbe pings the database when one is configured.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

type readinessChecker interface {
	Check(ctx context.Context) error
}

// Options tunes the middleware chain.
type Options struct {
	RateBurst     int
	RatePerSecond int
	MaxBodyBytes  int64

	// TrustedProxies lists peers whose X-Forwarded-For header is believed.
	TrustedProxies []netip.Prefix
}

func (o *Options) withDefaults() {
	if o.RateBurst <= 0 {
		o.RateBurst = 40
	}
	if o.RatePerSecond <= 0 {
		o.RatePerSecond = 20
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = 1 << 20
	}
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe readinessChecker
	version    string
	users      *auth.Service
	campus     *campus.Service
	opts       Options
}

func New(rp readinessChecker, version string, users *auth.Service, svc *campus.Service, opts Options) *API {
	opts.withDefaults()
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		users:      users,
		campus:     svc,
		opts:       opts,
	}
	a.routes()
	return a
}

func (a *API) routes() {
	a.mux.HandleFunc("GET /healthz", a.Healthz)
	a.mux.HandleFunc("GET /readyz", a.Ready)
	a.mux.HandleFunc("GET /v1/info", a.Info)
	a.mux.Handle("GET /metrics", obs.Handler())

	a.mux.HandleFunc("POST /register/{$}", a.register)
	a.mux.HandleFunc("POST /login/{$}", a.login)
	a.mux.HandleFunc("POST /session/{$}", a.renewSession)
	a.mux.HandleFunc("POST /logout/{$}", a.logout)
	a.mux.HandleFunc("GET /users/{$}", a.listUsers)
	a.mux.HandleFunc("GET /users/{net_id}/{$}", a.getUser)
	a.mux.HandleFunc("GET /users/{id}/groups/{$}", a.myGroups)
	a.mux.HandleFunc("GET /users/{id}/events/{$}", a.myEvents)

	a.mux.HandleFunc("POST /courses/{$}", a.createCourse)
	a.mux.HandleFunc("GET /courses/{$}", a.listCourses)
	a.mux.HandleFunc("GET /courses/{id}/{$}", a.getCourse)
	a.mux.HandleFunc("DELETE /courses/{id}/{$}", a.deleteCourse)

	a.mux.HandleFunc("POST /groups/{$}", a.createGroup)
	a.mux.HandleFunc("GET /groups/{$}", a.listGroups)
	a.mux.HandleFunc("GET /groups/{id}/{$}", a.getGroup)
	a.mux.HandleFunc("POST /groups/{id}/accepting/{$}", a.setAccepting)
	a.mux.HandleFunc("POST /groups/{id}/requests/{$}", a.createRequest)
	a.mux.HandleFunc("GET /groups/{id}/requests/{$}", a.listRequests)
	a.mux.HandleFunc("POST /requests/{id}/{$}", a.resolveRequest)
	a.mux.HandleFunc("GET /requests/{id}/{$}", a.getRequest)

	a.mux.HandleFunc("POST /groups/{id}/events/{$}", a.createEvent)
	a.mux.HandleFunc("GET /groups/{id}/events/{$}", a.listGroupEvents)
	a.mux.HandleFunc("GET /events/{id}/{$}", a.getEvent)
	a.mux.HandleFunc("POST /events/{id}/join/{$}", a.joinEvent)
	a.mux.HandleFunc("DELETE /events/{id}/{$}", a.deleteEvent)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not found")
	})
}

// Handler returns the mux wrapped in the full middleware chain.
func (a *API) Handler() http.Handler {
	var h http.Handler = obs.Instrument(a.mux)
	h = MaxBodyBytes(h, a.opts.MaxBodyBytes)
	clientIP := ClientIP(a.opts.TrustedProxies)
	h = RateLimit(h, a.opts.RateBurst, a.opts.RatePerSecond, clientIP)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h, clientIP)
	return RequestID(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	body := map[string]any{"error": msg}
	if rid := audit.RequestIDFromContext(r.Context()); rid != "" {
		body["request_id"] = rid
	}
	writeJSON(w, code, body)
}

// decodeJSON reads exactly one JSON object into dst and runs its validate
// tags.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		}
		return fmt.Errorf("invalid JSON: %v", err)
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return validate.Struct(dst)
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// handleError maps domain errors onto the wire: missing entities are 404,
// every other client mistake is 400, anything unexpected is a logged 500.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, campus.ErrNotFound), errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, message(err))
	case errors.Is(err, campus.ErrValidation),
		errors.Is(err, campus.ErrUnauthorized),
		errors.Is(err, campus.ErrForbidden),
		errors.Is(err, campus.ErrConflict),
		errors.Is(err, auth.ErrInvalidInput),
		errors.Is(err, auth.ErrAlreadyExists),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		writeError(w, r, http.StatusBadRequest, message(err))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, r, http.StatusServiceUnavailable, "request cancelled")
	default:
		obs.Error("request failed", err, map[string]any{
			"request_id": audit.RequestIDFromContext(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
		})
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func message(err error) string {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "incorrect username or password"
	case errors.Is(err, auth.ErrAlreadyExists):
		return "user already exists"
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, campus.ErrUnauthorized):
		return "invalid or expired token"
	case errors.Is(err, auth.ErrNotFound):
		return "user not found"
	}
	msg := err.Error()
	for _, prefix := range []string{"campus: ", "auth: "} {
		msg = strings.TrimPrefix(msg, prefix)
	}
	return msg
}
