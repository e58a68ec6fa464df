package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Moonsong-Labs/akton25-cobalt/internal/faults"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Dispatcher is the single entry point workflows use to reach generative
// models. Each call is one attempt; failures surface to the caller.
type Dispatcher struct {
	text     Provider
	image    ImageProvider
	validate *validator.Validate
	log      *zap.Logger
}

func NewDispatcher(text Provider, image ImageProvider, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		text:     text,
		image:    image,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log,
	}
}

func (d *Dispatcher) GenerateText(ctx context.Context, system, user string) (string, error) {
	return d.GenerateTextWithHistory(ctx, system, nil, user)
}

// GenerateTextWithHistory sends prior turns between the system prompt and the
// new user message.
func (d *Dispatcher) GenerateTextWithHistory(ctx context.Context, system string, history []Message, user string) (string, error) {
	msgs := make([]Message, 0, len(history)+2)
	if system != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: system})
	}
	msgs = append(msgs, history...)
	msgs = append(msgs, Message{Role: RoleUser, Content: user})

	start := time.Now()
	out, err := d.text.Chat(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("generate text: %w", err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", faults.E(faults.Internal, "generate text", ErrEmptyResponse)
	}
	d.log.Debug("text generated", zap.Int("chars", len(out)), zap.Duration("took", time.Since(start)))
	return out, nil
}

func (d *Dispatcher) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	if d.image == nil {
		return nil, faults.Errorf(faults.Internal, "generate image", "no image provider configured")
	}
	start := time.Now()
	img, err := d.image.GenerateImage(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate image: %w", err)
	}
	if len(img) == 0 {
		return nil, faults.E(faults.Internal, "generate image", ErrEmptyResponse)
	}
	d.log.Debug("image generated", zap.Int("bytes", len(img)), zap.Duration("took", time.Since(start)))
	return img, nil
}

// GenerateStructured asks for a JSON object matching schema and decodes it
// into out, which must be a pointer to a struct carrying validate tags.
// Unknown fields, type mismatches and tag violations are all rejected.
func (d *Dispatcher) GenerateStructured(ctx context.Context, schema Schema, content string, out any) error {
	schemaDoc, err := json.Marshal(schema.JSON)
	if err != nil {
		return fmt.Errorf("encode schema %s: %w", schema.Name, err)
	}
	var sys strings.Builder
	if schema.Description != "" {
		sys.WriteString(schema.Description)
		sys.WriteString("\n\n")
	}
	sys.WriteString("Respond with a single JSON object and nothing else. It must validate against this JSON schema:\n")
	sys.Write(schemaDoc)

	msgs := []Message{
		{Role: RoleSystem, Content: sys.String()},
		{Role: RoleUser, Content: content},
	}

	var reply string
	if sp, ok := d.text.(StructuredProvider); ok {
		reply, err = sp.ChatJSON(ctx, msgs, schema)
	} else {
		reply, err = d.text.Chat(ctx, msgs)
	}
	if err != nil {
		return fmt.Errorf("generate %s: %w", schema.Name, err)
	}

	if err := d.decodeStructured(reply, out); err != nil {
		d.log.Warn("structured output rejected",
			zap.String("schema", schema.Name),
			zap.Error(err),
		)
		return faults.E(faults.StructuredOutput, "generate "+schema.Name, err)
	}
	return nil
}

func (d *Dispatcher) decodeStructured(reply string, out any) error {
	raw, err := extractJSON(reply)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if err := d.validate.Struct(out); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	return nil
}

// extractJSON returns the outermost JSON object in s, ignoring markdown fences
// and any prose around it.
func extractJSON(s string) ([]byte, error) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return nil, errors.New("no JSON object in reply")
	}
	return []byte(s[start : end+1]), nil
}
