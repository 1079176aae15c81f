// Package summarize asks a Gemini-compatible model to explain code.
package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/alecthomas/chroma/v2/lexers"
	"go.uber.org/zap"

	"github.com/codenest/codenest/internal/logging"
	"github.com/codenest/codenest/internal/metrics"
)

const (
	DefaultBaseURL  = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel    = "gemini-1.5-flash"
	DefaultMaxChars = 5000

	defaultTimeout = 60 * time.Second
)

var (
	ErrCodeRequired   = errors.New("code is required")
	ErrCodeTooLarge   = errors.New("code is too large to summarize")
	ErrNotConfigured  = errors.New("gemini API key not configured")
	ErrNoSummary      = errors.New("no summary generated")
	ErrUpstreamFailed = errors.New("failed to generate summary")
)

// Message returns the user-facing text for a summarization error.
func Message(err error, maxChars int) string {
	switch {
	case errors.Is(err, ErrCodeRequired):
		return "Code is required"
	case errors.Is(err, ErrCodeTooLarge):
		return fmt.Sprintf("Code is too large to summarize. Limit to %d characters.", maxChars)
	case errors.Is(err, ErrNotConfigured):
		return "Gemini API key not configured"
	case errors.Is(err, ErrNoSummary):
		return "No summary generated"
	case errors.Is(err, ErrUpstreamFailed):
		return "Failed to generate summary"
	default:
		return "Failed to summarize code"
	}
}

// Config configures a Client.
type Config struct {
	BaseURL  string
	Model    string
	APIKey   string
	MaxChars int
	Timeout  time.Duration
}

// Client calls the generateContent endpoint. It never retries.
type Client struct {
	cfg    Config
	client *http.Client
}

// NewClient creates a summarization client, filling in defaults.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = DefaultMaxChars
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

// MaxChars returns the input limit in characters.
func (c *Client) MaxChars() int { return c.cfg.MaxChars }

// Validate checks code against the local limits without any network call.
func (c *Client) Validate(code string) error {
	if strings.TrimSpace(code) == "" {
		return ErrCodeRequired
	}
	if n := utf8.RuneCountInString(code); n > c.cfg.MaxChars {
		return fmt.Errorf("%w: %d characters", ErrCodeTooLarge, n)
	}
	return nil
}

// DetectLanguage returns language when set, otherwise a guess from the
// code itself, otherwise "code".
func DetectLanguage(code, language string) string {
	if l := strings.TrimSpace(language); l != "" {
		return l
	}
	if lexer := lexers.Analyse(code); lexer != nil {
		return strings.ToLower(lexer.Config().Name)
	}
	return "code"
}

func buildPrompt(lang, code string) string {
	return fmt.Sprintf("Please analyze and summarize the following %s:\n\n```%s\n%s\n```\n\n"+
		"Provide a concise summary that includes:\n"+
		"1. What the code does\n"+
		"2. Key functions/classes\n"+
		"3. Main logic flow\n"+
		"4. Any important patterns or techniques used\n"+
		"5. Potential improvements or considerations\n\n"+
		"Keep the summary clear and informative for developers.", lang, lang, code)
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
	SafetySettings   []safetySetting  `json:"safetySettings"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

var safetySettings = []safetySetting{
	{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
}

// Summarize validates code and returns the model's trimmed explanation.
func (c *Client) Summarize(ctx context.Context, code, language string) (string, error) {
	if err := c.Validate(code); err != nil {
		metrics.RecordSummary("rejected", 0)
		return "", err
	}
	if c.cfg.APIKey == "" {
		metrics.RecordSummary("unconfigured", 0)
		return "", ErrNotConfigured
	}

	start := time.Now()
	summary, err := c.generate(ctx, buildPrompt(DetectLanguage(code, language), code))
	if err != nil {
		metrics.RecordSummary("error", time.Since(start))
		logging.Warn("summarize: model call failed", zap.Error(err))
		return "", err
	}
	metrics.RecordSummary("success", time.Since(start))
	return summary, nil
}

func (c *Client) endpoint() string {
	return fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(c.cfg.BaseURL, "/"), url.PathEscape(c.cfg.Model), url.QueryEscape(c.cfg.APIKey))
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     0.3,
			TopK:            40,
			TopP:            0.95,
			MaxOutputTokens: 1024,
		},
		SafetySettings: safetySettings,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		// The URL carries the API key; keep it out of the error text.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return "", fmt.Errorf("gemini call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: API error: %d %s", ErrUpstreamFailed, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	var gr generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: unexpected response format", ErrNoSummary)
	}
	text := strings.TrimSpace(gr.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return "", fmt.Errorf("%w: empty text", ErrNoSummary)
	}
	return text, nil
}
