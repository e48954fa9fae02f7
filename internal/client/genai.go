package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/kube-rca/remediator/internal/config"
	"github.com/kube-rca/remediator/internal/model"
	"google.golang.org/genai"
)

// GeminiAdvisor - Gemini 기반 remediation 제안
type GeminiAdvisor struct {
	client    *genai.Client
	model     string
	logBucket string
}

func NewGeminiAdvisor(ctx context.Context, cfg config.AdvisoryConfig, logBucket string) (*GeminiAdvisor, error) {
	if cfg.GeminiAPIKey == "" || strings.HasPrefix(cfg.GeminiAPIKey, "dummy") {
		return nil, fmt.Errorf("missing GEMINI_API_KEY")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.GeminiAPIKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	modelName := cfg.GeminiModel
	if modelName == "" {
		modelName = "gemini-1.5-pro"
	}
	return &GeminiAdvisor{client: client, model: modelName, logBucket: logBucket}, nil
}

func (a *GeminiAdvisor) Suggest(ctx context.Context, req model.AdvisoryRequest) (string, string, error) {
	res, err := a.client.Models.GenerateContent(ctx, a.model, genai.Text(advisoryPrompt(req)), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction(a.logBucket), genai.RoleUser),
		ResponseMIMEType:  "application/json",
	})
	if err != nil {
		return "", "", err
	}
	if res == nil {
		return "", "", fmt.Errorf("empty gemini response")
	}
	advice, err := parseAdvice(res.Text())
	if err != nil {
		return "", "", err
	}
	return advice.Command, advice.Reasoning, nil
}
