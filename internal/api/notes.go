package api

import (
	"net/http"

	"github.com/codenest/codenest/internal/auth"
	"github.com/codenest/codenest/internal/events"
	"github.com/codenest/codenest/pkg/models"
	"github.com/codenest/codenest/pkg/protocol"
)

// Snippets and notes belong to the session that created them.

// ─── Snippets ───────────────────────────────────────────────────────────────

func (s *Server) handleListSnippets(w http.ResponseWriter, r *http.Request) {
	snippets, err := s.notes.ListSnippets(r.Context(), auth.SessionID(r.Context()))
	if err != nil {
		s.sendDomainError(w, r, err)
		return
	}
	if snippets == nil {
		snippets = []models.CodeSnippet{}
	}
	s.sendJSON(w, http.StatusOK, snippets)
}

func (s *Server) handleAddSnippet(w http.ResponseWriter, r *http.Request) {
	var req protocol.SnippetRequest
	if !s.decode(w, r, &req) {
		return
	}
	owner := auth.SessionID(r.Context())
	snippet, err := s.notes.AddSnippet(r.Context(), owner, req)
	if err != nil {
		s.sendDomainError(w, r, err)
		return
	}
	s.notify(owner, events.EventSnippets, snippet.ID)
	s.sendJSON(w, http.StatusCreated, snippet)
}

func (s *Server) handleUpdateSnippet(w http.ResponseWriter, r *http.Request) {
	var patch protocol.SnippetPatch
	if !s.decode(w, r, &patch) {
		return
	}
	owner := auth.SessionID(r.Context())
	snippet, err := s.notes.UpdateSnippet(r.Context(), owner, r.PathValue("id"), patch)
	if err != nil {
		s.sendDomainError(w, r, err)
		return
	}
	s.notify(owner, events.EventSnippets, snippet.ID)
	s.sendJSON(w, http.StatusOK, snippet)
}

func (s *Server) handleDeleteSnippet(w http.ResponseWriter, r *http.Request) {
	owner := auth.SessionID(r.Context())
	id := r.PathValue("id")
	if err := s.notes.DeleteSnippet(r.Context(), owner, id); err != nil {
		s.sendDomainError(w, r, err)
		return
	}
	s.notify(owner, events.EventSnippets, id)
	w.WriteHeader(http.StatusNoContent)
}

// ─── Notes ──────────────────────────────────────────────────────────────────

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	list, err := s.notes.ListNotes(r.Context(), auth.SessionID(r.Context()))
	if err != nil {
		s.sendDomainError(w, r, err)
		return
	}
	if list == nil {
		list = []models.StickyNote{}
	}
	s.sendJSON(w, http.StatusOK, list)
}

func (s *Server) handleAddNote(w http.ResponseWriter, r *http.Request) {
	var req protocol.NoteRequest
	if !s.decode(w, r, &req) {
		return
	}
	owner := auth.SessionID(r.Context())
	note, err := s.notes.AddNote(r.Context(), owner, req)
	if err != nil {
		s.sendDomainError(w, r, err)
		return
	}
	s.notify(owner, events.EventNotes, note.ID)
	s.sendJSON(w, http.StatusCreated, note)
}

func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	var patch protocol.NotePatch
	if !s.decode(w, r, &patch) {
		return
	}
	owner := auth.SessionID(r.Context())
	note, err := s.notes.UpdateNote(r.Context(), owner, r.PathValue("id"), patch)
	if err != nil {
		s.sendDomainError(w, r, err)
		return
	}
	s.notify(owner, events.EventNotes, note.ID)
	s.sendJSON(w, http.StatusOK, note)
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	owner := auth.SessionID(r.Context())
	id := r.PathValue("id")
	if err := s.notes.DeleteNote(r.Context(), owner, id); err != nil {
		s.sendDomainError(w, r, err)
		return
	}
	s.notify(owner, events.EventNotes, id)
	w.WriteHeader(http.StatusNoContent)
}
