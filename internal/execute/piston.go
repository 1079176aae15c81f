// Package execute runs code in a remote Piston-compatible sandbox.
package execute

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/codenest/codenest/internal/logging"
	"github.com/codenest/codenest/internal/metrics"
)

// DefaultURL is the public Piston endpoint.
const DefaultURL = "https://emkc.org/api/v2/piston/execute"

const defaultTimeout = 30 * time.Second

// ErrMissingInput is returned when code or language is empty.
var ErrMissingInput = errors.New("code and language are required")

// Request is one execution request.
type Request struct {
	Code     string
	Language string
	Input    string
}

// Result is the outcome of a completed execution. Error holds the
// program's failure text; Output is kept even when Error is set.
type Result struct {
	Language string
	Output   string
	Error    string
	Success  bool
}

// Client calls the execution sandbox. It never retries.
type Client struct {
	url    string
	client *http.Client
}

// NewClient creates a sandbox client. A zero timeout uses the default.
func NewClient(url string, timeout time.Duration) *Client {
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type pistonFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type pistonRequest struct {
	Language string       `json:"language"`
	Version  string       `json:"version"`
	Files    []pistonFile `json:"files"`
	Stdin    string       `json:"stdin"`
	Args     []string     `json:"args"`
}

type pistonStage struct {
	Stdout string  `json:"stdout"`
	Stderr string  `json:"stderr"`
	Output string  `json:"output"`
	Code   *int    `json:"code"`
	Signal *string `json:"signal"`
}

type pistonResponse struct {
	Language string       `json:"language"`
	Version  string       `json:"version"`
	Compile  *pistonStage `json:"compile,omitempty"`
	Run      *pistonStage `json:"run,omitempty"`
	Message  string       `json:"message,omitempty"`
}

// Run validates the request, resolves the language alias and executes the
// code. Validation failures return before any network call. A returned
// error means the sandbox could not be reached or answered badly; program
// failures are reported in Result.Error.
func (c *Client) Run(ctx context.Context, req Request) (Result, error) {
	if req.Code == "" || strings.TrimSpace(req.Language) == "" {
		return Result{}, ErrMissingInput
	}
	lang, err := Canonical(req.Language)
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	res, err := c.call(ctx, lang, req)
	switch {
	case err != nil:
		metrics.RecordExecution(lang, "error", time.Since(start))
		logging.Warn("execute: sandbox call failed", zap.String("language", lang), zap.Error(err))
		return Result{}, err
	case res.Success:
		metrics.RecordExecution(lang, "success", time.Since(start))
	default:
		metrics.RecordExecution(lang, "failed", time.Since(start))
	}
	return res, nil
}

func (c *Client) call(ctx context.Context, lang string, req Request) (Result, error) {
	body, err := json.Marshal(pistonRequest{
		Language: lang,
		Version:  "*",
		Files:    []pistonFile{{Name: sourceFileName(lang), Content: req.Code}},
		Stdin:    req.Input,
		Args:     []string{},
	})
	if err != nil {
		return Result{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("piston call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, fmt.Errorf("piston API error: %d %s: %s",
			resp.StatusCode, http.StatusText(resp.StatusCode), strings.TrimSpace(string(msg)))
	}

	var pr pistonResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return Result{}, fmt.Errorf("decode response: %w", err)
	}
	return interpret(lang, pr), nil
}

// interpret maps a sandbox response to a Result.
func interpret(lang string, pr pistonResponse) Result {
	res := Result{Language: lang}

	if cs := pr.Compile; cs != nil && cs.Code != nil && *cs.Code != 0 && pr.Run == nil {
		res.Error = firstNonEmpty(cs.Stderr, cs.Output, fmt.Sprintf("Compilation failed with code %d", *cs.Code))
		return res
	}

	run := pr.Run
	if run == nil {
		res.Error = "No execution result from Piston API"
		return res
	}
	res.Output = run.Stdout

	if run.Signal != nil && *run.Signal != "" {
		res.Error = "Process killed by signal: " + *run.Signal
		return res
	}
	if run.Code != nil && *run.Code != 0 {
		res.Error = firstNonEmpty(run.Stderr, fmt.Sprintf("Process exited with code %d", *run.Code))
		return res
	}
	res.Success = true
	return res
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
