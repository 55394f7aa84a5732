package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"mcpdex/internal/domain"
)

// maxRequestBytes bounds mutation payloads.
const maxRequestBytes = 1 << 20

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	view, err := s.directory.Catalog(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if view.ETag != "" {
		w.Header().Set("ETag", fmt.Sprintf("%q", view.ETag))
	}
	s.writeJSON(w, r, http.StatusOK, view)
}

func (s *Server) handleGetServer(w http.ResponseWriter, r *http.Request) {
	server, err := s.directory.GetServer(r.Context(), r.PathValue("name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, server)
}

func (s *Server) handleCreateServer(w http.ResponseWriter, r *http.Request) {
	var server domain.ToolServer
	if err := decodeBody(r, &server); err != nil {
		s.writeError(w, r, err)
		return
	}
	created, err := s.directory.CreateServer(r.Context(), server)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, created)
}

func (s *Server) handleUpdateServer(w http.ResponseWriter, r *http.Request) {
	var server domain.ToolServer
	if err := decodeBody(r, &server); err != nil {
		s.writeError(w, r, err)
		return
	}
	updated, err := s.directory.UpdateServer(r.Context(), r.PathValue("name"), server)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, updated)
}

func (s *Server) handleDeleteServer(w http.ResponseWriter, r *http.Request) {
	if err := s.directory.DeleteServer(r.Context(), r.PathValue("name")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	summary, err := s.directory.Refresh(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, summary)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.directory.Status(r.Context()))
}

func decodeBody(r *http.Request, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		return domain.E(domain.CodeInvalidArgument, "httpapi.decode", "read request body", err)
	}
	if len(body) == 0 {
		return domain.E(domain.CodeInvalidArgument, "httpapi.decode", "request body is empty", nil)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return domain.E(domain.CodeInvalidArgument, "httpapi.decode", fmt.Sprintf("malformed JSON: %v", err), err)
	}
	return nil
}
