package ai

import (
	"context"
	"errors"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var ErrEmptyResponse = errors.New("empty model response")

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider is a text chat backend.
type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// StructuredProvider is optional. Providers that implement it can constrain
// their reply to a JSON schema natively.
type StructuredProvider interface {
	ChatJSON(ctx context.Context, messages []Message, schema Schema) (string, error)
}

type ImageProvider interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

// Schema names a JSON schema document handed to the model.
type Schema struct {
	Name        string
	Description string
	JSON        map[string]any
}
