package api

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/strombasis/mako-assistant/pkg/errors"
)

const maxBodyBytes int64 = 1 << 20

// errorBody is the wire shape of every error response.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.Validation("Anfrage-Body ist erforderlich")
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if stderrors.As(err, &maxErr) {
			return errors.Validation("Anfrage-Body ist zu groß").
				WithContext("limit_bytes", maxBodyBytes)
		}
		return errors.Validation("Anfrage-Body ist kein gültiges JSON").
			WithContext("detail", err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	detail := errorDetail{
		Code:    string(errors.ErrCodeInternal),
		Message: "Interner Fehler",
	}
	if pipelineErr, ok := err.(*errors.Error); ok {
		detail.Code = string(pipelineErr.Code)
		detail.Message = pipelineErr.Message
		if len(pipelineErr.Context) > 0 {
			detail.Context = pipelineErr.Context
		}
	}
	writeJSON(w, errors.StatusOf(err), errorBody{Error: detail})
}
