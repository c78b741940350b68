package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/MJE43/moonrock-orbs/internal/game"
	"github.com/MJE43/moonrock-orbs/internal/replay"
	"github.com/MJE43/moonrock-orbs/internal/session"
	"github.com/MJE43/moonrock-orbs/internal/store"
)

// errorClasses maps domain sentinels to responses, first match wins.
var errorClasses = []struct {
	target  error
	status  int
	errType string
	message string
}{
	{store.ErrRunNotFound, http.StatusNotFound, ErrTypeRunNotFound, "Run not found"},
	{replay.ErrMismatch, http.StatusConflict, ErrTypeReplayMismatch, "Journal does not replay"},
	{session.ErrJournalDiverged, http.StatusConflict, ErrTypeReplayMismatch, "Stored journal diverged from its run"},
	{session.ErrNonceOutOfRange, http.StatusBadRequest, ErrTypeInvalidParams, "Nonce out of range"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, ErrTypeTimeout, "Request timed out"},
}

// redactedKeys never reach the log in the clear.
var redactedKeys = map[string]bool{"server_seed": true, "client_seed": true, "token": true}

// ErrorBuilder accumulates the fields of an EngineError.
type ErrorBuilder struct {
	err EngineError
}

// NewError starts an error of the given type.
func NewError(errType, message string) *ErrorBuilder {
	return &ErrorBuilder{err: EngineError{Type: errType, Message: message, Context: map[string]interface{}{}}}
}

// WithContext attaches one key to the error body.
func (eb *ErrorBuilder) WithContext(key string, value interface{}) *ErrorBuilder {
	eb.err.Context[key] = value
	return eb
}

// WithRequestID tags the error with the chi request id.
func (eb *ErrorBuilder) WithRequestID(requestID string) *ErrorBuilder {
	eb.err.RequestID = requestID
	return eb
}

// WithCause keeps the underlying error text under "cause".
func (eb *ErrorBuilder) WithCause(err error) *ErrorBuilder {
	if err != nil {
		eb.err.Context["cause"] = err.Error()
	}
	return eb
}

// Build stamps and returns the error.
func (eb *ErrorBuilder) Build() EngineError {
	out := eb.err
	out.Timestamp = time.Now().UTC().Format(time.RFC3339)
	return out
}

// ErrorHandler turns errors into JSON responses and log lines.
type ErrorHandler struct {
	logger         *log.Logger
	securityLogger *SecurityLogger
}

// NewErrorHandler returns a handler writing to the given loggers.
func NewErrorHandler(logger *log.Logger, securityLogger *SecurityLogger) *ErrorHandler {
	return &ErrorHandler{logger: logger, securityLogger: securityLogger}
}

// HandleError classifies err. Rejected actions and the sentinels in
// errorClasses get their own status; anything else is a 500.
func (eh *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	var actionErr *game.ActionError
	if errors.As(err, &actionErr) {
		eh.HandleActionError(w, r, actionErr)
		return
	}

	for _, c := range errorClasses {
		if errors.Is(err, c.target) {
			eh.send(w, r, c.status, NewError(c.errType, c.message).WithCause(err))
			return
		}
	}

	eh.send(w, r, http.StatusInternalServerError, NewError(ErrTypeInternal, "Internal server error").
		WithCause(err).
		WithContext("method", r.Method))
}

// HandleValidationError rejects a malformed request body or field.
func (eh *ErrorHandler) HandleValidationError(w http.ResponseWriter, r *http.Request, field, message string) {
	eh.HandleInputError(w, r, ErrTypeValidation, field, message)
}

// HandleInputError rejects bad input with a specific validation type.
func (eh *ErrorHandler) HandleInputError(w http.ResponseWriter, r *http.Request, errType, field, message string) {
	eh.securityLogger.LogSecurityEvent(
		middleware.GetReqID(r.Context()),
		"validation_failure",
		message,
		map[string]interface{}{"field": field, "path": r.URL.Path, "type": errType},
		r.RemoteAddr,
	)
	eh.send(w, r, http.StatusBadRequest, NewError(errType, "Validation failed: "+message).WithContext("field", field))
}

// HandleActionError reports an action the run refused. The run is unchanged,
// so this is a conflict rather than a bad request.
func (eh *ErrorHandler) HandleActionError(w http.ResponseWriter, r *http.Request, actionErr *game.ActionError) {
	eh.send(w, r, http.StatusConflict, NewError(ErrTypeActionRejected, actionErr.Error()).
		WithContext("action", actionErr.Action.Kind.String()).
		WithContext("phase", actionErr.Phase.String()).
		WithContext("reason", actionErr.Err.Error()))
}

// HandleUnauthorized rejects a request without a valid bearer token.
func (eh *ErrorHandler) HandleUnauthorized(w http.ResponseWriter, r *http.Request) {
	eh.securityLogger.LogSecurityEvent(
		middleware.GetReqID(r.Context()),
		"auth_failure",
		"missing or invalid bearer token",
		map[string]interface{}{"path": r.URL.Path},
		r.RemoteAddr,
	)
	w.Header().Set("WWW-Authenticate", `Bearer realm="orbs"`)
	eh.send(w, r, http.StatusUnauthorized, NewError(ErrTypeUnauthorized, "Missing or invalid bearer token"))
}

func (eh *ErrorHandler) send(w http.ResponseWriter, r *http.Request, status int, eb *ErrorBuilder) {
	engineErr := eb.
		WithRequestID(middleware.GetReqID(r.Context())).
		WithContext("path", r.URL.Path).
		Build()
	eh.logError(r, engineErr, status)
	eh.writeErrorResponse(w, status, engineErr)
}

func (eh *ErrorHandler) logError(r *http.Request, engineErr EngineError, status int) {
	category := GetErrorCategory(engineErr.Type)
	level := "ERROR"
	if status < http.StatusInternalServerError {
		level = "WARN"
	}

	keys := make([]string, 0, len(engineErr.Context))
	for k := range engineErr.Context {
		if !redactedKeys[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	var ctx strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&ctx, " ctx.%s=%q", k, fmt.Sprint(engineErr.Context[k]))
	}

	eh.logger.Printf("request_failed level=%s type=%s category=%s status=%d request_id=%s method=%s message=%q%s",
		level, engineErr.Type, category, status, engineErr.RequestID, r.Method, engineErr.Message, ctx.String())
}

func (eh *ErrorHandler) writeErrorResponse(w http.ResponseWriter, status int, engineErr EngineError) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("X-Engine-Version", EngineVersion)
	h.Set("X-Error-Type", engineErr.Type)
	h.Set("X-Error-Category", string(GetErrorCategory(engineErr.Type)))
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(engineErr); err != nil {
		eh.logger.Printf("error_encode_failed type=%s err=%v", engineErr.Type, err)
	}
}

// RecoveryHandler converts a handler panic into a 500 response.
func (eh *ErrorHandler) RecoveryHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}
			eh.logger.Printf("panic_recovered request_id=%s method=%s path=%s panic=%v",
				middleware.GetReqID(r.Context()), r.Method, r.URL.Path, rvr)
			eh.send(w, r, http.StatusInternalServerError, NewError(ErrTypeInternal, "Internal server error").
				WithContext("panic", fmt.Sprint(rvr)))
		}()

		next.ServeHTTP(w, r)
	})
}
