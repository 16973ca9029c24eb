package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/michaelbrown/mcpskill/internal/dispatch"
	"github.com/michaelbrown/mcpskill/internal/storage"
)

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDispatchError maps a dispatcher error kind onto an HTTP status.
func writeDispatchError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	kind := dispatch.KindOf(err)
	switch kind {
	case dispatch.KindMissingServer, dispatch.KindMissingTool:
		status = http.StatusBadRequest
	case dispatch.KindServerNotFound:
		status = http.StatusNotFound
	case dispatch.KindServerDisabled:
		status = http.StatusConflict
	case dispatch.KindSubprocessStart, dispatch.KindProtocol, dispatch.KindToolInvocation:
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]string{"error": err.Error(), "kind": string(kind)})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// --- Server handlers ---

func (s *Server) handleListServers(w http.ResponseWriter, r *http.Request) {
	names, err := s.dispatcher.ListServers(r.Context())
	if err != nil {
		writeDispatchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	tools, err := s.dispatcher.ToolDetails(r.Context(), name)
	if err != nil {
		writeDispatchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tools)
}

// --- Dispatch ---

type dispatchResponse struct {
	ID     string `json:"id"`
	Result string `json:"result"`
	Error  bool   `json:"error"`
}

// run dispatches call under a fresh call id, tracked until it returns.
func (s *Server) run(ctx context.Context, call dispatch.Call) dispatchResponse {
	id := uuid.New().String()
	ctx, done := s.calls.Begin(storage.WithCallID(ctx, id), id, call.Server, call.Tool)
	defer done()

	result := s.dispatcher.Dispatch(ctx, call)
	return dispatchResponse{
		ID:     id,
		Result: result,
		Error:  strings.HasPrefix(result, dispatch.ErrorPrefix),
	}
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var call dispatch.Call
	if err := decodeJSON(r, &call); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	// Failed calls are still 200: the error is the result.
	writeJSON(w, http.StatusOK, s.run(r.Context(), call))
}

// --- History handlers ---

func (s *Server) handleListCalls(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := storage.CallListOptions{
		Server: q.Get("server"),
		Tool:   q.Get("tool"),
	}
	if errs, err := strconv.ParseBool(q.Get("errors")); err == nil {
		opts.ErrorsOnly = errs
	}
	if limit := q.Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			opts.Limit = n
		}
	}
	if offset := q.Get("offset"); offset != "" {
		if n, err := strconv.Atoi(offset); err == nil {
			opts.Offset = n
		}
	}

	calls, err := s.store.ListCalls(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if calls == nil {
		calls = []storage.CallRecord{}
	}
	writeJSON(w, http.StatusOK, calls)
}

func (s *Server) handleGetCall(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	call, err := s.store.GetCall(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "markdown" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(storage.ExportMarkdown(call)))
		return
	}
	writeJSON(w, http.StatusOK, call)
}

func (s *Server) handleDeleteCall(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.DeleteCall(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "call not found")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) handleActiveCalls(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.calls.Active())
}

func (s *Server) handleCancelCall(w http.ResponseWriter, r *http.Request) {
	if !s.calls.Cancel(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "no such active call")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Health & manifest ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var report HealthReport
	if refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh")); refresh {
		report = s.health.Refresh(r.Context())
	} else {
		report = s.health.Report(r.Context())
	}

	status := http.StatusOK
	if !report.Healthy() {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manifest)
}
