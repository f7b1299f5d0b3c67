// Package genai wraps the external text-completion service used for
// structured extraction. The service being unconfigured is a first-class
// state, not an error: construction reports ErrNotConfigured and callers
// take their deterministic fallback path without attempting a network call.
package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Temperatures per task, matching the upstream service tuning.
const (
	TemperatureExtraction = 0.3
	TemperatureComparison = 0.4
	TemperatureEmail      = 0.5
)

// DefaultTimeout bounds a single completion attempt. There are no retries;
// on expiry the caller degrades to its fallback path.
const DefaultTimeout = 10 * time.Second

const maxResponseTokens = 4096

// ErrNotConfigured reports that no API key is present. Callers treat this
// as "use the fallback", never as a hard failure.
var ErrNotConfigured = errors.New("generative service not configured")

// Caller issues a single completion request and returns the raw text.
type Caller interface {
	GenerateJSON(ctx context.Context, system, user string, temperature float64) (string, error)
}

// Messager is the slice of the Anthropic client the caller needs; tests
// substitute a fake.
type Messager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicCaller struct {
	messages Messager
	timeout  time.Duration
}

type clientCreator func(apiKey string) Messager

func defaultClientCreator(apiKey string) Messager {
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &c.Messages
}

var newClient clientCreator = defaultClientCreator

// NewCallerFromEnv builds an AnthropicCaller from ANTHROPIC_API_KEY, or
// returns ErrNotConfigured when the key is absent.
func NewCallerFromEnv(timeout time.Duration) (*AnthropicCaller, error) {
	apiKey := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &AnthropicCaller{messages: newClient(apiKey), timeout: timeout}, nil
}

// NewCaller wraps an existing Messager; used by tests and custom wiring.
func NewCaller(m Messager, timeout time.Duration) *AnthropicCaller {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &AnthropicCaller{messages: m, timeout: timeout}
}

// GenerateJSON makes exactly one completion attempt under the configured
// timeout and returns the concatenated text blocks.
func (a *AnthropicCaller) GenerateJSON(ctx context.Context, system, user string, temperature float64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.ModelClaudeSonnet4_20250514,
		MaxTokens:   maxResponseTokens,
		System:      []anthropic.TextBlockParam{{Text: system}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(user))},
		Temperature: anthropic.Float(temperature),
	})
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String(), nil
}

// DecodeStrictJSON parses a completion response into out. Code fences are
// tolerated; anything else that is not valid JSON is an error, which the
// caller folds into "service unavailable".
func DecodeStrictJSON(raw string, out any) error {
	clean := stripCodeFences(raw)
	if strings.TrimSpace(clean) == "" {
		return errors.New("empty completion response")
	}
	if err := json.Unmarshal([]byte(clean), out); err != nil {
		return fmt.Errorf("malformed completion JSON: %w", err)
	}
	return nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		parts := strings.SplitN(s, "\n", 2)
		if len(parts) == 2 {
			s = parts[1]
		}
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}
