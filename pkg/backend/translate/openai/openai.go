// Package openai implements backend.Translator over an OpenAI chat
// completion, reusing the teacher's pkg/provider/llm.Provider contract
// (and its concrete pkg/provider/llm/openai.Provider) rather than talking
// to the OpenAI SDK directly: translation is framed as a one-shot
// completion with a system prompt naming the source and target languages.
package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/retico-go/retico/pkg/provider/llm"
	"github.com/retico-go/retico/pkg/types"
)

// Translator implements backend.Translator by issuing a single completion
// call per Translate, instructing the model to return only the translated
// text.
type Translator struct {
	provider llm.Provider
}

// New wraps an llm.Provider (typically pkg/provider/llm/openai.Provider) as
// a backend.Translator.
func New(provider llm.Provider) *Translator {
	return &Translator{provider: provider}
}

// Translate implements backend.Translator.
func (t *Translator) Translate(ctx context.Context, text, src, dst string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	resp, err := t.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: fmt.Sprintf(
			"Translate the user's message from %s to %s. Reply with the translation only, no commentary.",
			src, dst,
		),
		Messages: []types.Message{
			{Role: "user", Content: text},
		},
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("openai translate: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}
