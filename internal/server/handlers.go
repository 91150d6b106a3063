package server

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/kapu/creator-directory-go/internal/util"
	"github.com/kapu/creator-directory-go/pkg/errors"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Health != nil {
		if err := s.cfg.Health(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if !s.decode(w, r, &req) {
		return
	}
	req.Name = util.CollapseSpace(req.Name)
	if err := getValidator().Struct(&req); err != nil {
		s.writeFailure(w, errors.NewValidationError(validationMessage(err), "name", req.Name), nil)
		return
	}

	result, err := s.pipeline.ProcessProfile(r.Context(), req.Name)
	if err != nil {
		s.writeFailure(w, err, result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSyncBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !s.decode(w, r, &req) {
		return
	}
	for i := range req.Names {
		req.Names[i] = util.CollapseSpace(req.Names[i])
	}
	v := getValidator()
	if err := v.Struct(&req); err != nil {
		s.writeFailure(w, errors.NewValidationError(validationMessage(err), "names", len(req.Names)), nil)
		return
	}
	if err := v.Var(req.Names, fmt.Sprintf("max=%d", s.cfg.MaxBatchSize)); err != nil {
		s.writeFailure(w, errors.NewValidationError(
			fmt.Sprintf("names must contain at most %d entries", s.cfg.MaxBatchSize), "names", len(req.Names)), nil)
		return
	}

	batch, err := s.pipeline.ProcessBatch(r.Context(), req.Names)
	if err != nil {
		s.writeFailure(w, err, batch)
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	limit, ok := s.limitParam(w, r, s.cfg.RefreshLimit, 100)
	if !ok {
		return
	}

	refresh, err := s.pipeline.RefreshStaleProfiles(r.Context(), limit)
	if err != nil {
		s.writeFailure(w, err, refresh)
		return
	}
	writeJSON(w, http.StatusOK, refresh)
}

func (s *Server) handleFlagged(w http.ResponseWriter, r *http.Request) {
	flagged, err := s.pipeline.GetFlaggedProfiles(r.Context())
	if err != nil {
		s.writeFailure(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"profiles": flagged})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit, ok := s.limitParam(w, r, 50, 500)
	if !ok {
		return
	}

	list, err := s.pipeline.ListProfiles(r.Context(), limit)
	if err != nil {
		s.writeFailure(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"profiles": list})
}

func (s *Server) limitParam(w http.ResponseWriter, r *http.Request, def, maxLimit int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, true
	}
	limit, err := strconv.Atoi(raw)
	if err == nil {
		err = getValidator().Var(limit, fmt.Sprintf("min=1,max=%d", maxLimit))
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("limit must be an integer between 1 and %d", maxLimit))
		return 0, false
	}
	return limit, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// writeFailure maps a pipeline error to a response. A deadline becomes 504
// with the configured timeout; partial is attached when present.
func (s *Server) writeFailure(w http.ResponseWriter, err error, partial any) {
	var te *errors.TimeoutError
	if stderrors.As(err, &te) {
		s.logger.Warn("Admin request timed out",
			zap.String("operation", te.Operation),
			zap.Duration("timeout", te.Timeout))
		body := map[string]any{
			"error":   te.Error(),
			"kind":    "timeout",
			"timeout": te.Timeout.String(),
		}
		if partial != nil {
			body["partial"] = partial
		}
		writeJSON(w, http.StatusGatewayTimeout, body)
		return
	}

	status := errors.StatusCode(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Admin request failed", zap.Error(err))
	} else {
		s.logger.Warn("Admin request rejected", zap.Int("status", status), zap.Error(err))
	}
	writeError(w, status, err.Error())
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
