package api

import (
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/codenest/codenest/internal/events"
	"github.com/codenest/codenest/internal/templates"
	"github.com/codenest/codenest/pkg/protocol"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

// ─── Project ────────────────────────────────────────────────────────────────

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	_, ws := s.workspace(r)
	s.sendJSON(w, http.StatusOK, protocol.StateResponse{State: ws.Snapshot()})
}

func (s *Server) handleSetProjectName(w http.ResponseWriter, r *http.Request) {
	var req protocol.ProjectNameRequest
	if !s.decode(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		s.sendError(w, http.StatusBadRequest, "name is required")
		return
	}
	session, ws := s.workspace(r)
	ws.SetProjectName(name)
	s.notify(session, events.EventProject, "")
	s.sendJSON(w, http.StatusOK, protocol.ProjectNameRequest{Name: name})
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	ts, err := templates.List()
	if err != nil {
		s.sendDomainError(w, r, err)
		return
	}
	out := make([]protocol.TemplateInfo, len(ts))
	for i, t := range ts {
		out[i] = protocol.TemplateInfo{ID: t.ID, Name: t.Name, Description: t.Description}
	}
	s.sendJSON(w, http.StatusOK, out)
}

func (s *Server) handleApplyTemplate(w http.ResponseWriter, r *http.Request) {
	var req protocol.TemplateRequest
	if !s.decode(w, r, &req) {
		return
	}
	session, ws := s.workspace(r)
	if _, err := templates.Apply(ws, req.ID); err != nil {
		s.sendDomainError(w, r, err)
		return
	}
	s.notify(session, events.EventProject, req.ID)
	s.sendJSON(w, http.StatusOK, protocol.StateResponse{State: ws.Snapshot()})
}

// ─── File tree ──────────────────────────────────────────────────────────────

func (s *Server) handleSetFiles(w http.ResponseWriter, r *http.Request) {
	var req protocol.SetFilesRequest
	if !s.decode(w, r, &req) {
		return
	}
	session, ws := s.workspace(r)
	set := ws.SetFiles
	if req.Replace {
		set = ws.ReplaceTree
	}
	if err := set(req.Files); err != nil {
		s.sendDomainError(w, r, err)
		return
	}
	s.notify(session, events.EventFiles, "")
	s.sendJSON(w, http.StatusOK, protocol.StateResponse{State: ws.Snapshot()})
}

func (s *Server) handleCreateFile(w http.ResponseWriter, r *http.Request) {
	var req protocol.CreateFileRequest
	if !s.decode(w, r, &req) {
		return
	}
	session, ws := s.workspace(r)
	node, err := ws.CreateFile(req.ParentID, req.Name, req.Type)
	if err != nil {
		s.sendDomainError(w, r, err)
		return
	}
	s.notify(session, events.EventFiles, node.ID)
	s.sendJSON(w, http.StatusCreated, protocol.FileResponse{File: node})
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	_, ws := s.workspace(r)
	id := r.PathValue("id")
	node, ok := ws.FindByID(id)
	if !ok {
		s.sendError(w, http.StatusNotFound, "file not found")
		return
	}
	s.sendJSON(w, http.StatusOK, protocol.FileResponse{File: node})
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	session, ws := s.workspace(r)
	id := r.PathValue("id")
	if err := ws.DeleteFile(id); err != nil {
		s.sendDomainError(w, r, err)
		return
	}
	s.notify(session, events.EventFiles, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleFolder(w http.ResponseWriter, r *http.Request) {
	session, ws := s.workspace(r)
	id := r.PathValue("id")
	open, err := ws.ToggleFolder(id)
	if err != nil {
		s.sendDomainError(w, r, err)
		return
	}
	s.notify(session, events.EventFiles, id)
	s.sendJSON(w, http.StatusOK, map[string]bool{"isOpen": open})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	limit := defaultSearchLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.sendError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxSearchLimit)
	}

	_, ws := s.workspace(r)
	hits := ws.Search(q, limit)
	resp := protocol.SearchResponse{Query: q, Results: make([]protocol.SearchResult, len(hits))}
	for i, h := range hits {
		resp.Results[i] = protocol.SearchResult{
			ID:    h.ID,
			Name:  path.Base(h.Path),
			Path:  h.Path,
			Score: h.Score,
		}
	}
	s.sendJSON(w, http.StatusOK, resp)
}

// ─── Tabs ───────────────────────────────────────────────────────────────────

func (s *Server) handleOpenTab(w http.ResponseWriter, r *http.Request) {
	var req protocol.OpenTabRequest
	if !s.decode(w, r, &req) {
		return
	}
	session, ws := s.workspace(r)
	tab, err := ws.OpenFile(req.FileID)
	if err != nil {
		s.sendDomainError(w, r, err)
		return
	}
	s.notify(session, events.EventTabs, tab.ID)
	s.sendJSON(w, http.StatusOK, protocol.TabResponse{Tab: tab})
}

func (s *Server) handleCloseTab(w http.ResponseWriter, r *http.Request) {
	session, ws := s.workspace(r)
	id := r.PathValue("id")
	if err := ws.CloseTab(id); err != nil {
		s.sendDomainError(w, r, err)
		return
	}
	s.notify(session, events.EventTabs, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateContent(w http.ResponseWriter, r *http.Request) {
	var req protocol.UpdateContentRequest
	if !s.decode(w, r, &req) {
		return
	}
	session, ws := s.workspace(r)
	id := r.PathValue("id")
	if err := ws.UpdateTabContent(id, req.Content); err != nil {
		s.sendDomainError(w, r, err)
		return
	}
	tab, _ := ws.Tab(id)
	s.notify(session, events.EventContent, id)
	s.sendJSON(w, http.StatusOK, protocol.TabResponse{Tab: tab})
}

func (s *Server) handleSaveTab(w http.ResponseWriter, r *http.Request) {
	session, ws := s.workspace(r)
	id := r.PathValue("id")
	if err := ws.SaveFile(id); err != nil {
		s.sendDomainError(w, r, err)
		return
	}
	tab, _ := ws.Tab(id)
	s.notify(session, events.EventContent, id)
	s.sendJSON(w, http.StatusOK, protocol.TabResponse{Tab: tab})
}

func (s *Server) handleSetActiveTab(w http.ResponseWriter, r *http.Request) {
	var req protocol.ActiveTabRequest
	if !s.decode(w, r, &req) {
		return
	}
	session, ws := s.workspace(r)
	ws.SetActiveTab(req.TabID)
	s.notify(session, events.EventTabs, req.TabID)
	w.WriteHeader(http.StatusNoContent)
}
