package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/base2-shop/api/internal/service"
)

const (
	defaultReadTimeout = 5 * time.Second
	msgInternal        = "internal server error"
	msgUnavailable     = "service temporarily unavailable"
)

// exposeDetail controls whether raw internal error text is sent to clients.
var exposeDetail atomic.Bool

// SetErrorDetail enables the "detail" field on error responses. Never enable
// it in production.
func SetErrorDetail(on bool) { exposeDetail.Store(on) }

// --- Envelope ---

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Data    interface{}       `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
	Detail  string            `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.S().Errorf("failed to encode JSON response: %v", err)
	}
}

func writeData(w http.ResponseWriter, status int, message string, data interface{}) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

func writeFail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

// writeInternal logs err under op and writes a generic 500.
func writeInternal(w http.ResponseWriter, op string, err error) {
	zap.S().Errorw(op, "error", err)
	env := envelope{Success: false, Message: msgInternal}
	if exposeDetail.Load() {
		env.Detail = err.Error()
	}
	writeJSON(w, http.StatusInternalServerError, env)
}

// errorStatus maps a service error kind to an HTTP status. Zero means the
// error is internal.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized
	default:
		return 0
	}
}

// writeServiceError writes the response for an error returned by a service.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	if status := errorStatus(err); status != 0 {
		writeFail(w, status, err.Error())
		return
	}
	writeInternal(w, op, err)
}

// writeReadError handles errors from direct store reads. notFound is the
// message for pgx.ErrNoRows.
func writeReadError(w http.ResponseWriter, op, notFound string, err error) {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		writeFail(w, http.StatusNotFound, notFound)
	case errors.Is(err, context.DeadlineExceeded):
		zap.S().Warnw(op+" timed out", "error", err)
		writeFail(w, http.StatusServiceUnavailable, msgUnavailable)
	default:
		writeInternal(w, op, err)
	}
}

func readContext(r *http.Request, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultReadTimeout
	}
	return context.WithTimeout(r.Context(), timeout)
}

// --- Request validation ---

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
}

// formatValidationErrors converts validator errors into field -> message,
// keyed by the JSON path of the offending field.
func formatValidationErrors(err error) map[string]string {
	errs := make(map[string]string)
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return errs
	}
	for _, e := range ve {
		errs[fieldPath(e.Namespace())] = formatFieldError(e)
	}
	return errs
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func formatFieldError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "min":
		return "Must have at least " + e.Param() + " entries"
	case "max":
		return "Maximum length is " + e.Param()
	case "email":
		return "Must be a valid email address"
	case "gt":
		return "Must be greater than " + e.Param()
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "lte":
		return "Must be less than or equal to " + e.Param()
	default:
		return "Validation failed on '" + e.Tag() + "'"
	}
}

// decodeRequest decodes the JSON body into T and validates it, writing a
// 400 response and returning false on failure.
func decodeRequest[T any](w http.ResponseWriter, r *http.Request) (*T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if err := validate.Struct(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{
			Success: false,
			Message: "validation failed",
			Errors:  formatValidationErrors(err),
		})
		return nil, false
	}
	return &req, true
}

// --- Params ---

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeFail(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// parsePaging reads limit/offset. Bad or missing values fall back to the
// defaults; limit is capped at maxLimit and offset at math.MaxInt32.
func parsePaging(r *http.Request, defaultLimit, maxLimit int) (limit, offset int) {
	limit = defaultLimit
	if v, ok := parseCount(r.URL.Query().Get("limit")); ok && v > 0 {
		limit = v
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if v, ok := parseCount(r.URL.Query().Get("offset")); ok {
		offset = v
	}
	return limit, offset
}

// parseCount parses a non-negative int32, saturating at math.MaxInt32.
func parseCount(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil && !(errors.Is(err, strconv.ErrRange) && v > 0) {
		return 0, false
	}
	if v < 0 {
		return 0, false
	}
	return int(v), true
}

// parseDate reads an optional YYYY-MM-DD query parameter.
func parseDate(w http.ResponseWriter, r *http.Request, name string) (*time.Time, bool) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, true
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		writeFail(w, http.StatusBadRequest, "invalid "+name+" format, use YYYY-MM-DD")
		return nil, false
	}
	return &t, true
}

// looseNumber accepts a JSON number or string and keeps its raw text.
// Parsing is left to the service so it can apply its own fallbacks.
type looseNumber string

func (n *looseNumber) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = looseNumber(s)
		return nil
	}
	*n = looseNumber(b)
	return nil
}

// ptr returns nil for an absent value.
func (n *looseNumber) ptr() *string {
	if n == nil {
		return nil
	}
	s := string(*n)
	return &s
}
