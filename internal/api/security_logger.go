package api

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// SecurityLogger writes audit and security events. Seeds never reach it in
// the clear; callers pass HashForLog values instead.
type SecurityLogger struct {
	logger *log.Logger
}

// NewSecurityLogger creates a security logger on stdout
func NewSecurityLogger() *SecurityLogger {
	return &SecurityLogger{
		logger: log.New(os.Stdout, "[SECURITY] ", log.LstdFlags),
	}
}

// LogSecurityEvent records a potentially hostile or malformed request
func (sl *SecurityLogger) LogSecurityEvent(requestID, event, message string, fields map[string]interface{}, remoteAddr string) {
	sl.logger.Printf("security_event event=%s request_id=%s remote=%s message=%q%s",
		event, requestID, remoteAddr, message, formatFields(fields))
}

// LogAuditEvent records a state change or operational check
func (sl *SecurityLogger) LogAuditEvent(requestID, action, resource, outcome string, fields map[string]interface{}) {
	sl.logger.Printf("audit_event action=%s resource=%s outcome=%s request_id=%s%s",
		action, resource, outcome, requestID, formatFields(fields))
}

// LogSystemStartup records server construction
func (sl *SecurityLogger) LogSystemStartup(fields map[string]interface{}) {
	sl.logger.Printf("system_startup time=%s%s", time.Now().UTC().Format(time.RFC3339), formatFields(fields))
}

// HashForLog returns a short SHA-256 prefix suitable for correlating seeds
func HashForLog(seed string) string {
	if seed == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(seed))
	return shortHash(hex.EncodeToString(sum[:]))
}

func shortHash(h string) string {
	if len(h) > 16 {
		return h[:16]
	}
	return h
}

func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}
	return b.String()
}

// SecurityLoggingMiddleware logs one line per request with status and timing
func (s *Server) SecurityLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.logger.Printf("request method=%s path=%s status=%d bytes=%d duration=%s request_id=%s remote=%s",
			r.Method, r.URL.Path, status, ww.BytesWritten(), time.Since(start), middleware.GetReqID(r.Context()), r.RemoteAddr)
	})
}
