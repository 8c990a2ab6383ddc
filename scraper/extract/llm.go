package extract

import (
	"classifieds-scraper/models"
	"classifieds-scraper/utils"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"
)

type LLMOptions struct {
	BaseURL             string
	APIKey              string
	Model               string
	FallbackModel       string
	Temperature         float64
	MaxTokens           int
	ApplyChunking       bool
	ChunkTokenThreshold int
	OverlapRate         float64
	Concurrency         int
	MaxRetries          int
	RetryBackoff        time.Duration
	Timeout             time.Duration
}

// LLM extracts schema-shaped records from page content through an
// OpenAI-compatible chat completions endpoint.
type LLM struct {
	client *resty.Client
	opts   LLMOptions
	schema models.Schema
	prompt string

	mu    sync.Mutex
	usage UsageStats
}

type UsageStats struct {
	Requests         int
	Failures         int
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func NewLLM(opts LLMOptions, schema models.Schema) (*LLM, error) {
	if opts.BaseURL == "" || opts.Model == "" {
		return nil, errors.New("llm base url and model are required")
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}

	schemaJSON, err := json.MarshalIndent(schema.JSONSchema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s schema: %w", schema.Name, err)
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetHeader("Content-Type", "application/json")
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}
	if opts.APIKey != "" {
		client.SetAuthToken(opts.APIKey)
	}

	return &LLM{
		client: client,
		opts:   opts,
		schema: schema,
		prompt: fmt.Sprintf(
			"You are a precise data extraction engine.\n%s\n"+
				"Return ONLY a JSON array of objects matching this JSON schema:\n%s\n"+
				"Return [] when the content holds no matching items.",
			schema.Instruction, schemaJSON,
		),
	}, nil
}

// Extract returns a JSON array of the records found in content. Every item
// carries an "error" flag: false for parsed records, true for a chunk whose
// extraction failed. Extract fails only when no chunk succeeded.
func (l *LLM) Extract(ctx context.Context, content string) (string, error) {
	chunks := []string{content}
	if l.opts.ApplyChunking {
		chunks = Chunk(content, l.opts.ChunkTokenThreshold, l.opts.OverlapRate)
	}
	if len(chunks) == 0 {
		return "[]", nil
	}

	results := make([][]map[string]json.RawMessage, len(chunks))
	failed := make([]error, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.opts.Concurrency)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			items, err := l.extractChunk(gctx, chunk)
			if err != nil {
				utils.Warn("Extraction failed for chunk %d/%d: %v", i+1, len(chunks), err)
				failed[i] = err
				results[i] = []map[string]json.RawMessage{errorItem(i, err)}
				return nil
			}
			results[i] = items
			return nil
		})
	}
	_ = g.Wait()

	if err := errors.Join(failed...); err != nil && countNonNil(failed) == len(chunks) {
		return "", fmt.Errorf("extraction failed for all %d chunks: %w", len(chunks), err)
	}

	var all []map[string]json.RawMessage
	for _, items := range results {
		all = append(all, items...)
	}
	if all == nil {
		all = []map[string]json.RawMessage{}
	}

	out, err := json.Marshal(all)
	if err != nil {
		return "", fmt.Errorf("failed to encode extracted records: %w", err)
	}
	return string(out), nil
}

func (l *LLM) extractChunk(ctx context.Context, chunk string) ([]map[string]json.RawMessage, error) {
	candidates := []string{l.opts.Model}
	if l.opts.FallbackModel != "" && l.opts.FallbackModel != l.opts.Model {
		candidates = append(candidates, l.opts.FallbackModel)
	}

	var lastErr error
	for _, model := range candidates {
		var items []map[string]json.RawMessage
		err := utils.Retry(ctx, l.opts.MaxRetries, l.opts.RetryBackoff, func() error {
			var err error
			items, err = l.complete(ctx, model, chunk)
			return err
		})
		if err == nil {
			return items, nil
		}
		lastErr = fmt.Errorf("model %s: %w", model, err)
	}
	return nil, lastErr
}

func (l *LLM) complete(ctx context.Context, model, chunk string) ([]map[string]json.RawMessage, error) {
	var out chatResponse
	var apiErr apiError

	resp, err := l.client.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model: model,
			Messages: []chatMessage{
				{Role: "system", Content: l.prompt},
				{Role: "user", Content: chunk},
			},
			Temperature: l.opts.Temperature,
			MaxTokens:   l.opts.MaxTokens,
		}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/chat/completions")

	l.mu.Lock()
	l.usage.Requests++
	if err != nil || resp.IsError() {
		l.usage.Failures++
	}
	l.mu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("chat completion request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("chat completion returned %d: %s", resp.StatusCode(), apiErr.Error.Message)
	}

	l.mu.Lock()
	l.usage.PromptTokens += out.Usage.PromptTokens
	l.usage.CompletionTokens += out.Usage.CompletionTokens
	l.usage.TotalTokens += out.Usage.TotalTokens
	l.mu.Unlock()

	if len(out.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}

	items, err := ParseItems(out.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		item["error"] = json.RawMessage("false")
	}
	return items, nil
}

func (l *LLM) Usage() UsageStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.usage
}

// ShowUsage logs the accumulated token usage.
func (l *LLM) ShowUsage() {
	u := l.Usage()
	utils.Section("EXTRACTION USAGE")
	utils.Info("Requests: %d | Failed: %d", u.Requests, u.Failures)
	utils.Info("Tokens: prompt=%d completion=%d total=%d", u.PromptTokens, u.CompletionTokens, u.TotalTokens)
}

var (
	thinkRe = regexp.MustCompile(`(?s)<think>.*?</think>`)
	fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
)

// wrapperKeys are tried, in order, when the model wraps its array in an object.
var wrapperKeys = []string{"items", "results", "data", "listings", "records"}

// ParseItems pulls the record objects out of a model reply. It accepts a bare
// array, an object wrapping an array, or a single object.
func ParseItems(reply string) ([]map[string]json.RawMessage, error) {
	text := thinkRe.ReplaceAllString(reply, "")
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	text = strings.TrimSpace(text)

	start := strings.IndexAny(text, "[{")
	if start < 0 {
		return nil, fmt.Errorf("no JSON found in reply %q", truncate(text, 80))
	}
	text = text[start:]
	if end := strings.LastIndexAny(text, "]}"); end >= 0 {
		text = text[:end+1]
	}

	var items []map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &items); err == nil {
		return objectsOnly(items), nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, fmt.Errorf("reply is not a JSON array or object: %w", err)
	}

	for _, key := range wrapperKeys {
		if raw, ok := obj[key]; ok {
			if err := json.Unmarshal(raw, &items); err == nil {
				return objectsOnly(items), nil
			}
		}
	}
	return objectsOnly([]map[string]json.RawMessage{obj}), nil
}

// objectsOnly drops null elements, which decode to nil maps.
func objectsOnly(items []map[string]json.RawMessage) []map[string]json.RawMessage {
	out := make([]map[string]json.RawMessage, 0, len(items))
	for _, item := range items {
		if item != nil {
			out = append(out, item)
		}
	}
	return out
}

func errorItem(index int, err error) map[string]json.RawMessage {
	msg, _ := json.Marshal(err.Error())
	return map[string]json.RawMessage{
		"index":   json.RawMessage(fmt.Sprintf("%d", index)),
		"error":   json.RawMessage("true"),
		"tags":    json.RawMessage(`["error"]`),
		"content": msg,
	}
}

func countNonNil(errs []error) int {
	n := 0
	for _, err := range errs {
		if err != nil {
			n++
		}
	}
	return n
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
