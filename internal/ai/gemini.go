package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Moonsong-Labs/akton25-cobalt/internal/faults"
	"google.golang.org/genai"
)

const (
	defaultGeminiModel = "gemini-2.5-flash"
	defaultImagenModel = "imagen-4.0-generate-001"
)

// GeminiProvider covers text, structured output and Imagen images through
// the Gemini API.
type GeminiProvider struct {
	client     *genai.Client
	Model      string
	ImageModel string
}

func NewGeminiProvider(ctx context.Context, apiKey, model, imageModel string) (*GeminiProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini: api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	if model == "" {
		model = defaultGeminiModel
	}
	if imageModel == "" {
		imageModel = defaultImagenModel
	}
	return &GeminiProvider{client: client, Model: model, ImageModel: imageModel}, nil
}

func (p *GeminiProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	contents, cfg := geminiRequest(messages)
	return p.generate(ctx, contents, cfg)
}

func (p *GeminiProvider) ChatJSON(ctx context.Context, messages []Message, schema Schema) (string, error) {
	contents, cfg := geminiRequest(messages)
	cfg.ResponseMIMEType = "application/json"
	if len(schema.JSON) > 0 {
		cfg.ResponseJsonSchema = schema.JSON
	}
	return p.generate(ctx, contents, cfg)
}

func (p *GeminiProvider) generate(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
	resp, err := p.client.Models.GenerateContent(ctx, p.Model, contents, cfg)
	if err != nil {
		return "", geminiError(err)
	}
	text := resp.Text()
	if text == "" {
		return "", faults.E(faults.Internal, "gemini", ErrEmptyResponse)
	}
	return text, nil
}

func (p *GeminiProvider) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	resp, err := p.client.Models.GenerateImages(ctx, p.ImageModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		OutputMIMEType: "image/png",
	})
	if err != nil {
		return nil, geminiError(err)
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil ||
		len(resp.GeneratedImages[0].Image.ImageBytes) == 0 {
		return nil, faults.E(faults.Internal, "imagen", ErrEmptyResponse)
	}
	return resp.GeneratedImages[0].Image.ImageBytes, nil
}

// geminiRequest moves system messages into the system instruction and maps
// assistant turns to the model role.
func geminiRequest(messages []Message) ([]*genai.Content, *genai.GenerateContentConfig) {
	cfg := &genai.GenerateContentConfig{}
	var system []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(system) > 0 {
		cfg.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	return contents, cfg
}

func geminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return faults.E(kindForStatus(apiErr.Code), "gemini", err)
	}
	return transportError("gemini", err)
}
