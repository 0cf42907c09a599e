package llm

import (
	"context"
	"io"
)

type Message struct {
	Role    string `json:"role"` // user, assistant
	Content string `json:"content,omitempty"`
}

type Response struct {
	Content string
}

// Options bounds a single completion.
type Options struct {
	MaxTokens   int
	Temperature float64
}

type Client interface {
	Chat(ctx context.Context, systemPrompt string, messages []Message, opts Options) (*Response, error)
}

// Close releases providers that hold a connection. Others are a no-op.
func Close(c Client) error {
	if closer, ok := c.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
