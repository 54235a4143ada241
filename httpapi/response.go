package httpapi

import (
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	apperrors "github.com/leeforge/addonstate/errors"
	"github.com/leeforge/addonstate/logging"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Response is the envelope of every API reply.
type Response struct {
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
	Meta  Meta   `json:"meta"`
}

// Error is the error body of a Response.
type Error struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Meta carries request metadata.
type Meta struct {
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, res Response) {
	res.Meta.RequestID = logging.GetRequestID(r.Context())

	raw, err := json.Marshal(res)
	if err != nil {
		logging.FromContext(r.Context()).Error("encoding response", zap.Error(err))
		raw = []byte(`{"error":{"code":"internal","message":"encode failed"},"meta":{}}`)
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(raw)
}

func ok(w http.ResponseWriter, r *http.Request, data any) {
	writeJSON(w, r, http.StatusOK, Response{Data: data})
}

func accepted(w http.ResponseWriter, r *http.Request, data any) {
	writeJSON(w, r, http.StatusAccepted, Response{Data: data})
}

// fail writes err using the status its AppError type maps to. Internal
// details are logged, not returned.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperrors.FromError(err)
	status := appErr.HTTPStatus()

	body := &Error{Code: appErr.Code, Message: appErr.Message, Details: appErr.Details}
	if body.Code == "" {
		body.Code = string(appErr.Type)
	}
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error("request failed", zap.Error(err))
		body.Details = nil
	}
	if body.Message == "" {
		body.Message = http.StatusText(status)
	}
	writeJSON(w, r, status, Response{Error: body})
}

func decode(r *http.Request, target any) error {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		return apperrors.Wrap(err, apperrors.ErrorTypeValidation, "invalid request body")
	}
	return nil
}
