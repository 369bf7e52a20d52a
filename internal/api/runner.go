package api

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
)

// RunPrompt makes a single model call and returns the response text. The
// call is blocking, cancellable through ctx, and makes no tool use; the
// repair agent asks for a structured patch set in one shot.
func (c *Client) RunPrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.inner.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("API call failed: %w", err)
	}

	c.tracker.Record(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	if resp.StopReason == anthropic.StopReasonRefusal {
		return "", fmt.Errorf("model declined the request (stop reason %q)", resp.StopReason)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("model returned no text content")
	}
	return b.String(), nil
}
