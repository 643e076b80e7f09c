package backend

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

type InputImage struct {
	Data     []byte
	MIMEType string
}

type Image struct {
	Data     []byte
	MIMEType string
}

type Generator interface {
	GenerateImage(ctx context.Context, model, prompt, aspectRatio string, images []InputImage) (Image, error)
}

var ErrNoImage = errors.New("model returned no image")

type GeminiGenerator struct {
	client *genai.Client
}

var _ Generator = (*GeminiGenerator)(nil)

// NewGemini creates the client. An empty apiKey lets the SDK read GEMINI_API_KEY or
// GOOGLE_API_KEY.
func NewGemini(ctx context.Context, apiKey string) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiGenerator{client: client}, nil
}

func (g *GeminiGenerator) GenerateImage(ctx context.Context, model, prompt, aspectRatio string, images []InputImage) (Image, error) {
	parts := make([]*genai.Part, 0, len(images)+1)
	for _, img := range images {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{Data: img.Data, MIMEType: img.MIMEType},
		})
	}
	parts = append(parts, &genai.Part{Text: prompt})

	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}
	if aspectRatio != "" {
		cfg.ImageConfig = &genai.ImageConfig{AspectRatio: aspectRatio}
	}

	res, err := g.client.Models.GenerateContent(ctx, model, []*genai.Content{{Role: string(genai.RoleUser), Parts: parts}}, cfg)
	if err != nil {
		return Image{}, fmt.Errorf("gemini generate content: %w", err)
	}
	return firstImage(res)
}

func firstImage(res *genai.GenerateContentResponse) (Image, error) {
	if res == nil {
		return Image{}, ErrNoImage
	}
	for _, cand := range res.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return Image{Data: part.InlineData.Data, MIMEType: part.InlineData.MIMEType}, nil
			}
		}
	}
	return Image{}, ErrNoImage
}
