// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for page partial responses and
// the JSON helpers used by the API. Partials announce side effects through
// an HX-Trigger header that the page script turns into DOM events.

package http

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strings"

	"finances/internal/ledger"
	"finances/internal/log"
	"finances/internal/services"
	"finances/internal/taxonomy"
)

// HTMXResponseBuilder provides a fluent API for building partial responses.
// It encapsulates the construction of HX-Trigger headers and response bodies.
type HTMXResponseBuilder struct {
	triggers   map[string]interface{}
	statusCode int
	body       []byte
	headers    map[string]string
}

// NewHTMXResponse creates a new response builder with default 200 status.
func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{
		triggers:   make(map[string]interface{}),
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.statusCode = code
	return b
}

// Trigger adds a named trigger with optional data to the HX-Trigger header.
func (b *HTMXResponseBuilder) Trigger(name string, data interface{}) *HTMXResponseBuilder {
	b.triggers[name] = data
	return b
}

// TriggerLedgerChanged tells the page that totals and budget are stale.
func (b *HTMXResponseBuilder) TriggerLedgerChanged(op string, id int64) *HTMXResponseBuilder {
	return b.Trigger("ledger:changed", map[string]interface{}{"op": op, "id": id})
}

// TriggerFormReset adds the form:reset trigger.
func (b *HTMXResponseBuilder) TriggerFormReset() *HTMXResponseBuilder {
	return b.Trigger("form:reset", struct{}{})
}

// NotificationType represents the type of notification to display.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
	NotificationWarning NotificationType = "warning"
	NotificationInfo    NotificationType = "info"
)

// TriggerNotification adds a show-notification trigger with the specified parameters.
func (b *HTMXResponseBuilder) TriggerNotification(notifType NotificationType, message string, durationMs int) *HTMXResponseBuilder {
	return b.Trigger("show-notification", map[string]interface{}{
		"type":     string(notifType),
		"message":  message,
		"duration": durationMs,
	})
}

func (b *HTMXResponseBuilder) TriggerSuccessNotification(message string) *HTMXResponseBuilder {
	return b.TriggerNotification(NotificationSuccess, message, 3000)
}

func (b *HTMXResponseBuilder) TriggerErrorNotification(message string) *HTMXResponseBuilder {
	return b.TriggerNotification(NotificationError, message, 5000)
}

// Header adds a custom header to the response.
func (b *HTMXResponseBuilder) Header(name, value string) *HTMXResponseBuilder {
	b.headers[name] = value
	return b
}

// BodyHTML sets the response body as HTML content.
func (b *HTMXResponseBuilder) BodyHTML(html string) *HTMXResponseBuilder {
	b.headers["Content-Type"] = "text/html; charset=utf-8"
	b.body = []byte(html)
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if len(b.triggers) > 0 {
		triggerJSON, err := json.Marshal(b.triggers)
		if err == nil {
			w.Header().Set("HX-Trigger", string(triggerJSON))
		}
	}

	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorResponse creates a standard error response with HTML formatting.
// The message is HTML-escaped for safety.
func ErrorResponse(statusCode int, message string) *HTMXResponseBuilder {
	escapedMsg := template.HTMLEscapeString(message)
	return NewHTMXResponse().
		Status(statusCode).
		BodyHTML(`<div class="error">` + escapedMsg + `</div>`)
}

func BadRequestError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func UnprocessableEntityError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

// apiError is the JSON error body.
type apiError struct {
	Error      string           `json:"error"`
	Suggestion *taxonomy.Triple `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, apiError{Error: message})
}

// errorStatus maps a service error onto an HTTP status and the message
// safe to show the client.
func errorStatus(err error) (int, string, *taxonomy.Triple) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, verr.Message, verr.Suggestion
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound, "Transaction not found.", nil
	case errors.Is(err, errBadParam):
		return http.StatusBadRequest, err.Error(), nil
	}
	return http.StatusInternalServerError, "Internal error.", nil
}

// writeServiceError answers a failed API call, logging server errors.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, msg, suggestion := errorStatus(err)
	if status >= http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldOperation, op,
			log.FieldPath, r.URL.Path,
			log.FieldError, err.Error())
	}
	writeJSON(w, status, apiError{Error: msg, Suggestion: suggestion})
}

// writePartialError answers a failed partial request with an error
// fragment and a notification.
func (s *Server) writePartialError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, msg, suggestion := errorStatus(err)
	if status >= http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Partial request failed",
			log.FieldOperation, op,
			log.FieldPath, r.URL.Path,
			log.FieldError, err.Error())
	}
	if suggestion != nil {
		msg += " Did you mean " + suggestion.L1 + " / " + suggestion.L2 + " / " + suggestion.L3 + "?"
	}
	ErrorResponse(status, msg).TriggerErrorNotification(msg).Write(w)
}

// onRateLimited answers throttled writes in the caller's format.
func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	const msg = "Rate limit exceeded. Please try again later."
	if isAPI(r) {
		writeJSONError(w, http.StatusTooManyRequests, msg)
		return
	}
	ErrorResponse(http.StatusTooManyRequests, msg).TriggerErrorNotification(msg).Write(w)
}

func isAPI(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}
