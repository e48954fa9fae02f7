package client

import (
	"context"
	"fmt"

	"github.com/kube-rca/remediator/internal/config"
	"github.com/kube-rca/remediator/internal/model"
	openai "github.com/sashabaranov/go-openai"
)

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIAdvisor - OpenAI Chat Completions 기반 remediation 제안
type OpenAIAdvisor struct {
	client    chatCompleter
	model     string
	logBucket string
}

func NewOpenAIAdvisor(cfg config.AdvisoryConfig, logBucket string) (*OpenAIAdvisor, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	modelName := cfg.OpenAIModel
	if modelName == "" {
		modelName = openai.GPT4oMini
	}
	return &OpenAIAdvisor{client: openai.NewClient(cfg.OpenAIAPIKey), model: modelName, logBucket: logBucket}, nil
}

func (a *OpenAIAdvisor) Suggest(ctx context.Context, req model.AdvisoryRequest) (string, string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemInstruction(a.logBucket)},
			{Role: openai.ChatMessageRoleUser, Content: advisoryPrompt(req)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return "", "", err
	}
	if len(resp.Choices) == 0 {
		return "", "", fmt.Errorf("empty openai response")
	}
	advice, err := parseAdvice(resp.Choices[0].Message.Content)
	if err != nil {
		return "", "", err
	}
	return advice.Command, advice.Reasoning, nil
}
