package apiutil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/rs/zerolog/log"
)

// HandlerError carries the status and user-facing message for a failed request.
type HandlerError struct {
	Status  int
	Message string
	Err     error
}

func (e HandlerError) Error() string {
	return e.Message
}

func (e HandlerError) Unwrap() error {
	return e.Err
}

func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("missing request body")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	if err := encoder.Encode(payload); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// WriteError renders err as a plain-text error. HandlerError values keep
// their status and message; anything else is a 500.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var handlerErr HandlerError
	if !errors.As(err, &handlerErr) {
		handlerErr = HandlerError{Status: http.StatusInternalServerError, Message: "Internal Server Error", Err: err}
	}

	logger := log.Ctx(r.Context())
	if handlerErr.Status >= http.StatusInternalServerError {
		logger.Error().Err(handlerErr.Err).Int("status", handlerErr.Status).Msg(handlerErr.Message)
	} else {
		logger.Debug().Err(handlerErr.Err).Int("status", handlerErr.Status).Msg(handlerErr.Message)
	}
	http.Error(w, handlerErr.Message, handlerErr.Status)
}

func IsHTMXRequest(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("HX-Request"), "true")
}

// RenderHTMLComponent buffers component before writing so a render failure
// can still produce a clean error response. It reports whether the
// component was written.
func RenderHTMLComponent(ctx context.Context, w http.ResponseWriter, component templ.Component, headers map[string]string, logMsg, userMsg string) bool {
	return RenderHTMLComponentStatus(ctx, w, http.StatusOK, component, headers, logMsg, userMsg)
}

func RenderHTMLComponentStatus(ctx context.Context, w http.ResponseWriter, status int, component templ.Component, headers map[string]string, logMsg, userMsg string) bool {
	var buf bytes.Buffer
	if err := component.Render(ctx, &buf); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg(logMsg)
		http.Error(w, userMsg, http.StatusInternalServerError)
		return false
	}

	for key, value := range headers {
		w.Header().Set(key, value)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Failed to write HTML response")
		return false
	}
	return true
}
