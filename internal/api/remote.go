package api

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/codenest/codenest/internal/events"
	"github.com/codenest/codenest/internal/execute"
	"github.com/codenest/codenest/internal/logging"
	"github.com/codenest/codenest/internal/metrics"
	"github.com/codenest/codenest/internal/summarize"
	"github.com/codenest/codenest/pkg/models"
	"github.com/codenest/codenest/pkg/protocol"
)

// StopMessage is written to the terminal when a tab's run is abandoned.
const StopMessage = "Process terminated"

// ─── Execution ──────────────────────────────────────────────────────────────

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req protocol.ExecuteRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.executor.Run(r.Context(), execute.Request{
		Code:     req.Code,
		Language: req.Language,
		Input:    req.Input,
	})
	if err != nil {
		s.sendExecuteError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, protocol.ExecuteResponse{
		Output:  res.Output,
		Error:   res.Error,
		Success: res.Success,
	})
}

func (s *Server) sendExecuteError(w http.ResponseWriter, err error) {
	var unsupported *execute.UnsupportedLanguageError
	switch {
	case errors.Is(err, execute.ErrMissingInput):
		s.sendError(w, http.StatusBadRequest, "Code and language are required")
	case errors.As(err, &unsupported):
		s.sendJSON(w, http.StatusBadRequest, protocol.ErrorResponse{
			Error:              execute.UnsupportedCommandMessage,
			Code:               http.StatusBadRequest,
			SupportedLanguages: unsupported.Supported,
		})
	default:
		s.sendErrorDetails(w, http.StatusInternalServerError, "Execution failed", err.Error())
	}
}

// handleRunTab executes the tab's current content and appends the outcome
// to the terminal. A run superseded by a newer request on the same tab is
// answered with stale set and leaves the terminal untouched.
func (s *Server) handleRunTab(w http.ResponseWriter, r *http.Request) {
	var req protocol.RunTabRequest
	if !s.decode(w, r, &req) {
		return
	}
	session, ws := s.workspace(r)
	tabID := r.PathValue("id")
	call, err := ws.BeginRequest(tabID)
	if err != nil {
		s.sendDomainError(w, r, err)
		return
	}

	res, runErr := s.executor.Run(r.Context(), execute.Request{
		Code:     call.Content,
		Language: call.Language,
		Input:    req.Input,
	})
	kind, text := execute.ResultLine(res, runErr)

	resp := protocol.ExecuteResponse{Output: res.Output, Success: runErr == nil && res.Success}
	if kind == models.LineError {
		resp.Error = text
	}

	lines, applied := ws.AppendIfCurrent(tabID, call.Seq, models.TerminalLine{Type: kind, Content: text})
	if !applied {
		metrics.RecordStaleResponse("execute")
		logging.Debug("stale run discarded", logging.Session(session), zap.String("tab", tabID))
		resp.Stale = true
		s.sendJSON(w, http.StatusOK, resp)
		return
	}
	for _, l := range lines {
		metrics.RecordTerminalLine(string(l.Type))
	}
	s.notify(session, events.EventTerminal, tabID)
	s.sendJSON(w, http.StatusOK, resp)
}

// handleStopTab abandons any in-flight request for the tab. Its response
// will come back stale.
func (s *Server) handleStopTab(w http.ResponseWriter, r *http.Request) {
	session, ws := s.workspace(r)
	tabID := r.PathValue("id")
	if _, err := ws.BeginRequest(tabID); err != nil {
		s.sendDomainError(w, r, err)
		return
	}
	line, err := ws.AddTerminalLine(models.LineCommand, StopMessage)
	if err != nil {
		s.sendDomainError(w, r, err)
		return
	}
	metrics.RecordTerminalLine(string(line.Type))
	s.notify(session, events.EventTerminal, tabID)
	s.sendJSON(w, http.StatusOK, line)
}

// ─── Summarization ──────────────────────────────────────────────────────────

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var req protocol.SummarizeRequest
	if !s.decode(w, r, &req) {
		return
	}
	summary, err := s.summarizer.Summarize(r.Context(), req.Code, req.Language)
	if err != nil {
		s.sendSummarizeError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, protocol.SummarizeResponse{Success: true, Summary: summary})
}

func (s *Server) handleSummarizeTab(w http.ResponseWriter, r *http.Request) {
	_, ws := s.workspace(r)
	tabID := r.PathValue("id")
	call, err := ws.BeginRequest(tabID)
	if err != nil {
		s.sendDomainError(w, r, err)
		return
	}
	summary, err := s.summarizer.Summarize(r.Context(), call.Content, call.Language)
	if err != nil {
		s.sendSummarizeError(w, err)
		return
	}
	resp := protocol.SummarizeResponse{Success: true, Summary: summary}
	if !ws.IsCurrent(tabID, call.Seq) {
		metrics.RecordStaleResponse("summarize")
		resp.Stale = true
	}
	s.sendJSON(w, http.StatusOK, resp)
}

func (s *Server) sendSummarizeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	if errors.Is(err, summarize.ErrCodeRequired) || errors.Is(err, summarize.ErrCodeTooLarge) {
		code = http.StatusBadRequest
	}
	var details string
	if errors.Is(err, summarize.ErrUpstreamFailed) {
		details = strings.TrimPrefix(err.Error(), summarize.ErrUpstreamFailed.Error()+": ")
	}
	s.sendErrorDetails(w, code, summarize.Message(err, s.summarizer.MaxChars()), details)
}
