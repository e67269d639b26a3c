package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/strombasis/mako-assistant/pkg/errors"
	"github.com/strombasis/mako-assistant/pkg/jobs"
	"github.com/strombasis/mako-assistant/pkg/logging"
	"github.com/strombasis/mako-assistant/pkg/toolscript"
)

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSubmitScript queues an ad-hoc node script. The job is accepted but
// never executed in this version, which the response makes explicit.
func (s *Server) handleSubmitScript(w http.ResponseWriter, r *http.Request) {
	var req jobs.SubmitRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	view, err := s.registry.CreateNodeScriptJob(userIDFrom(r.Context()), req)
	if err != nil {
		writeError(w, err)
		return
	}

	s.log.Info(logging.CategoryAPI, "script_submitted", "job accepted",
		map[string]any{
			"request_id": requestIDFrom(r.Context()),
			"job_id":     view.ID,
			"session_id": view.SessionID,
		})
	writeJSON(w, http.StatusAccepted, view)
}

// handleGetJob resolves a job scoped to the caller. Foreign and missing jobs
// are indistinguishable.
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	view, err := s.registry.GetJobForUser(userIDFrom(r.Context()), jobID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("sessionId"))
	if sessionID == "" {
		writeError(w, errors.Validation("sessionId ist erforderlich"))
		return
	}

	views, err := s.registry.ListJobsForSession(userIDFrom(r.Context()), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": views})
}

// handleGenerateScript produces a validated script candidate from
// natural-language instructions.
func (s *Server) handleGenerateScript(w http.ResponseWriter, r *http.Request) {
	var req toolscript.GenerateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	resp, err := s.generator.GenerateDeterministicScript(r.Context(), userIDFrom(r.Context()), req)
	if err != nil {
		writeError(w, err)
		return
	}

	s.log.Info(logging.CategoryAPI, "script_generated", "candidate returned",
		map[string]any{
			"request_id": requestIDFrom(r.Context()),
			"session_id": req.SessionID,
			"hash":       resp.Script.Source.Hash,
		})
	writeJSON(w, http.StatusOK, resp)
}
