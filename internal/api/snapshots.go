package api

import (
	"net/http"

	"github.com/codenest/codenest/internal/events"
	"github.com/codenest/codenest/internal/snapshot"
	"github.com/codenest/codenest/pkg/protocol"
)

func snapshotResponse(info snapshot.Info) protocol.SnapshotResponse {
	return protocol.SnapshotResponse{
		Name:    info.Name,
		Key:     info.Key,
		Size:    info.Size,
		SavedAt: info.SavedAt,
	}
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	session, _ := s.workspace(r)
	infos, err := s.snapshots.List(r.Context(), session)
	if err != nil {
		s.sendDomainError(w, r, err)
		return
	}
	out := make([]protocol.SnapshotResponse, len(infos))
	for i, info := range infos {
		out[i] = snapshotResponse(info)
	}
	s.sendJSON(w, http.StatusOK, out)
}

func (s *Server) handleSaveSnapshot(w http.ResponseWriter, r *http.Request) {
	session, ws := s.workspace(r)
	info, err := s.snapshots.Save(r.Context(), session, r.PathValue("name"), ws.Snapshot())
	if err != nil {
		s.sendDomainError(w, r, err)
		return
	}
	s.notify(session, events.EventSnapshot, info.Name)
	s.sendJSON(w, http.StatusOK, snapshotResponse(info))
}

func (s *Server) handleRestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	session, ws := s.workspace(r)
	name := r.PathValue("name")
	state, err := s.snapshots.Restore(r.Context(), ws, session, name)
	if err != nil {
		s.sendDomainError(w, r, err)
		return
	}
	s.notify(session, events.EventProject, name)
	s.sendJSON(w, http.StatusOK, protocol.StateResponse{State: state})
}

func (s *Server) handleDeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	session, _ := s.workspace(r)
	name := r.PathValue("name")
	if err := s.snapshots.Delete(r.Context(), session, name); err != nil {
		s.sendDomainError(w, r, err)
		return
	}
	s.notify(session, events.EventSnapshot, name)
	w.WriteHeader(http.StatusNoContent)
}
