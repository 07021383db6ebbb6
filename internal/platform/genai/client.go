// Package genai is a small client for the Gemini generateContent REST API.
// The back office uses it for three things: reading the text off an uploaded
// bill, pulling lab values out of a report, and classifying a claim.
package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrNotConfigured is returned by every call when no API key is set.
	ErrNotConfigured = errors.New("genai: api key not configured")
	// ErrEmptyResponse means the model answered without any text.
	ErrEmptyResponse = errors.New("genai: empty response")
)

const (
	extractTextPrompt = "Extract all the text from this document exactly as it appears. " +
		"Return only the extracted text with no commentary."

	extractFieldsPrompt = "This is a medical lab report. Extract every test name and its numeric result. " +
		"Return only a flat JSON object mapping the test name to its value, for example " +
		`{"Hemoglobin": 13.5, "Fasting Glucose": 92}. ` +
		"Include height and weight if they are present. Do not include units, ranges or commentary."
)

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Client calls a single Gemini model. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	cfg        Config
	logger     zerolog.Logger
}

// NewClient builds a client. A zero Timeout leaves cancellation entirely to
// the caller's context.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if cfg.Timeout < 0 {
		cfg.Timeout = 0
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		logger:     logger.With().Str("component", "genai").Str("model", cfg.Model).Logger(),
	}
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

// ExtractText returns the text the model reads off a document image or PDF.
func (c *Client) ExtractText(ctx context.Context, data []byte, mimeType string) (string, error) {
	return c.generate(ctx, "extract_text",
		part{Text: extractTextPrompt},
		part{InlineData: &inlineData{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(data)}},
	)
}

// ExtractFields returns the lab values found in a report, keyed by the test
// name as printed. Numeric values are formatted without trailing zeros.
func (c *Client) ExtractFields(ctx context.Context, data []byte, mimeType string) (map[string]string, error) {
	text, err := c.generate(ctx, "extract_fields",
		part{Text: extractFieldsPrompt},
		part{InlineData: &inlineData{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(data)}},
	)
	if err != nil {
		return nil, err
	}
	return ParseFields(text)
}

// GenerateText sends a text-only prompt.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, "generate_text", part{Text: prompt})
}

func (c *Client) generate(ctx context.Context, op string, parts ...part) (string, error) {
	if c.cfg.APIKey == "" {
		return "", ErrNotConfigured
	}

	payload, err := json.Marshal(generateRequest{Contents: []content{{Role: "user", Parts: parts}}})
	if err != nil {
		return "", fmt.Errorf("genai: encode request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.cfg.BaseURL, c.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("genai: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("genai: %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("genai: %s: %s: %s", op, resp.Status, strings.TrimSpace(string(body)))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("genai: %s: decode response: %w", op, err)
	}

	text := out.text()
	c.logger.Debug().
		Str("op", op).
		Int("chars", len(text)).
		Dur("latency", time.Since(start)).
		Msg("generateContent")

	if text == "" {
		if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("%w: blocked (%s)", ErrEmptyResponse, out.PromptFeedback.BlockReason)
		}
		return "", ErrEmptyResponse
	}
	return text, nil
}

// text joins the text parts of the first candidate.
func (r *generateResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return strings.TrimSpace(b.String())
}

// ParseFields decodes a model's JSON answer into name/value pairs. Nested
// values and nulls are dropped.
func ParseFields(raw string) (map[string]string, error) {
	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(CleanJSON(raw)), &decoded); err != nil {
		return nil, fmt.Errorf("genai: parse fields: %w", err)
	}

	fields := make(map[string]string, len(decoded))
	for k, v := range decoded {
		switch val := v.(type) {
		case string:
			fields[k] = strings.TrimSpace(val)
		case float64:
			fields[k] = strconv.FormatFloat(val, 'f', -1, 64)
		}
	}
	return fields, nil
}

// CleanJSON strips what models wrap around JSON: code fences, smart quotes,
// control characters and any prose before the first brace or after the last.
func CleanJSON(s string) string {
	s = strings.NewReplacer(
		"```json", "", "```JSON", "", "```", "",
		"“", `"`, "”", `"`, "‘", "'", "’", "'",
	).Replace(s)

	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || r == '\r' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)

	start := strings.IndexAny(s, "{[")
	end := strings.LastIndexAny(s, "}]")
	if start >= 0 && end > start {
		s = s[start : end+1]
	}
	return strings.TrimSpace(s)
}
