// Package contextgen implements LLM-assisted context generation: prompt
// construction, a pre-gate that skips boilerplate tables, a prompt-keyed
// cache, and the structured decision parsed out of a chat completion.
package contextgen

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"

	"github.com/generalpiston/qpg/internal/types"
)

// boilerplateColumns are ignored when deciding whether a table is worth
// generating context for.
var boilerplateColumns = map[string]bool{
	"id": true, "created_at": true, "updated_at": true, "deleted_at": true,
	"inserted_at": true, "modified_at": true, "created_on": true, "updated_on": true,
}

const requestTimeout = 30 * time.Second

// Candidate is one table considered for context generation.
type Candidate struct {
	Fqname     string
	Comment    string
	Definition string
	Columns    []ColumnDescriptor
}

// ColumnDescriptor is the clipped per-column information included in the
// generation prompt.
type ColumnDescriptor struct {
	Name     string
	DataType string
	Nullable bool
	Default  string
	Comment  string
}

// Decision is the structured outcome of one generation attempt.
type Decision struct {
	Decision string // "generate" | "skip"
	Reason   string
	Context  string
}

// Options configures a single generation run.
type Options struct {
	Model     string
	BaseURL   string
	APIKey    string
	Overwrite bool
	DryRun    bool
}

// Generate runs the pre-gate, cache lookup, and (if needed) chat completion
// for one candidate. Every fresh decision is written to the cache, DryRun or
// not; a "generate" decision is also written as a context record unless
// DryRun is set. A cache hit returns the cached decision without writing a
// context record.
func Generate(ctx context.Context, db *sql.DB, targetURI string, c Candidate, opts Options) (*Decision, error) {
	if reason, skip := boilerplateGate(c); skip {
		decision := &Decision{Decision: "skip", Reason: reason}
		cacheKey := CacheKey(opts.Model, BuildPrompt(c))
		if err := cacheSkip(ctx, db, cacheKey, decision); err != nil {
			return nil, err
		}
		return decision, nil
	}

	prompt := BuildPrompt(c)
	cacheKey := CacheKey(opts.Model, prompt)

	if cached, ok, err := readCache(ctx, db, cacheKey); err != nil {
		return nil, err
	} else if ok {
		return cached, nil
	}

	decision, err := callChatCompletion(ctx, prompt, opts)
	if err != nil {
		return nil, &types.ContextGenerationError{TableFqname: c.Fqname, Err: err}
	}

	if err := persistCache(ctx, db, cacheKey, decision); err != nil {
		return nil, err
	}

	if opts.DryRun {
		return decision, nil
	}

	if decision.Decision == "generate" && decision.Context != "" {
		if opts.Overwrite {
			if _, err := db.ExecContext(ctx, `DELETE FROM contexts WHERE target_uri = ?`, targetURI); err != nil {
				return nil, err
			}
		}
		now := time.Now().UTC().Format(time.RFC3339Nano)
		if _, err := db.ExecContext(ctx, `
			INSERT INTO contexts (target_uri, body, created_at) VALUES (?, ?, ?)`, targetURI, decision.Context, now); err != nil {
			return nil, err
		}
	}

	return decision, nil
}

// boilerplateGate reports whether c has no comment, no definition, and only
// boilerplate columns, in which case generation is skipped up front.
func boilerplateGate(c Candidate) (string, bool) {
	if strings.TrimSpace(c.Comment) != "" || strings.TrimSpace(c.Definition) != "" {
		return "", false
	}
	for _, col := range c.Columns {
		if !boilerplateColumns[col.Name] {
			return "", false
		}
	}
	return "only boilerplate fields available", true
}

// BuildPrompt constructs the deterministic generation prompt: fqname,
// comment, the first 1500 characters of definition, and a descriptor line
// per column.
func BuildPrompt(c Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "table: %s\n", c.Fqname)
	fmt.Fprintf(&b, "comment: %s\n", c.Comment)
	def := c.Definition
	if r := []rune(def); len(r) > 1500 {
		def = string(r[:1500])
	}
	fmt.Fprintf(&b, "definition: %s\n", def)
	b.WriteString("columns:\n")
	for _, col := range c.Columns {
		def := clip(col.Default, 120)
		comment := clip(col.Comment, 200)
		fmt.Fprintf(&b, "- %s %s nullable=%t default=%q comment=%q\n", col.Name, col.DataType, col.Nullable, def, comment)
	}
	return b.String()
}

func clip(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// CacheKey computes the prompt-keyed cache identifier.
func CacheKey(model, prompt string) string {
	h := sha256.Sum256([]byte(model + "\n" + prompt))
	return "context-gen:" + hex.EncodeToString(h[:])
}

func readCache(ctx context.Context, db *sql.DB, key string) (*Decision, bool, error) {
	var valueJSON string
	err := db.QueryRowContext(ctx, `SELECT value_json FROM llm_cache WHERE key = ?`, key).Scan(&valueJSON)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var d Decision
	if err := json.Unmarshal([]byte(valueJSON), &d); err != nil {
		return nil, false, err
	}
	return &d, true, nil
}

func persistCache(ctx context.Context, db *sql.DB, key string, d *Decision) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = db.ExecContext(ctx, `
		INSERT INTO llm_cache (key, value_json, created_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value_json = excluded.value_json, created_at = excluded.created_at`,
		key, string(payload), now)
	return err
}

func cacheSkip(ctx context.Context, db *sql.DB, key string, d *Decision) error {
	return persistCache(ctx, db, key, d)
}

// callChatCompletion posts the prompt to {base_url}/chat/completions and
// parses the response content as a structured decision. A response missing
// a valid decision but carrying a non-empty context string is accepted for
// backward compatibility; anything else is an error.
func callChatCompletion(ctx context.Context, prompt string, opts Options) (*Decision, error) {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	client := openai.NewClientWithConfig(cfg)

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var resp openai.ChatCompletionResponse
	call := func() error {
		var err error
		resp, err = client.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
			Model:       opts.Model,
			Temperature: 0.2,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		})
		return err
	}

	retry := backoff.NewExponentialBackOff()
	retry.MaxElapsedTime = requestTimeout
	if err := backoff.Retry(call, backoff.WithContext(retry, reqCtx)); err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty chat completion response")
	}

	return parseDecision(resp.Choices[0].Message.Content)
}

const systemPrompt = "You annotate database schema objects with short, accurate natural-language context for retrieval. Only describe what the schema tells you; never invent business meaning."

func parseDecision(content string) (*Decision, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var d Decision
	if err := json.Unmarshal([]byte(content), &d); err == nil {
		if d.Decision == "generate" || d.Decision == "skip" {
			return &d, nil
		}
		if d.Context != "" {
			d.Decision = "generate"
			return &d, nil
		}
	}

	if content != "" {
		return &Decision{Decision: "generate", Context: content}, nil
	}
	return nil, fmt.Errorf("response is neither valid JSON nor a non-empty raw string")
}
