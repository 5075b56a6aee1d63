// Package ai wraps the external text-generation backend behind a small
// interface so the webhook pipeline and tests never talk to OpenAI directly.
package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Responder produces assistant replies and conversation summaries.
type Responder interface {
	Generate(ctx context.Context, systemPrompt, userMessage string) (string, error)
	Summarize(ctx context.Context, transcript string) (string, error)
}

// GenerationError marks a failure of the upstream AI backend. Callers catch
// it and continue: an AI outage must never fail webhook processing or block a
// conversation close.
type GenerationError struct {
	Op  string
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("ai %s: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

const summarizePrompt = `Eres un asistente que resume conversaciones de soporte al cliente.
Resume la siguiente conversación en viñetas con esta estructura:
- Intención del cliente
- Resultado de la conversación
- Acción pendiente (si existe)
Sé breve y concreto.`

type OpenAIResponder struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	logger      *zap.Logger
}

func NewOpenAIResponder(apiKey, model string, logger *zap.Logger) *OpenAIResponder {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIResponder{
		client:      openai.NewClient(apiKey),
		model:       model,
		maxTokens:   1024,
		temperature: 0.3,
		logger:      logger,
	}
}

func (r *OpenAIResponder) Generate(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	resp, err := r.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: r.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: userMessage,
				},
			},
			MaxTokens:   r.maxTokens,
			Temperature: r.temperature,
		},
	)
	if err != nil {
		r.logger.Error("chat completion failed", zap.Error(err))
		return "", &GenerationError{Op: "generate", Err: err}
	}

	if len(resp.Choices) == 0 {
		return "", &GenerationError{Op: "generate", Err: fmt.Errorf("empty completion response")}
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (r *OpenAIResponder) Summarize(ctx context.Context, transcript string) (string, error) {
	resp, err := r.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: r.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: summarizePrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: transcript,
				},
			},
			MaxTokens:   r.maxTokens,
			Temperature: r.temperature,
		},
	)
	if err != nil {
		r.logger.Error("summarization failed", zap.Error(err))
		return "", &GenerationError{Op: "summarize", Err: err}
	}

	if len(resp.Choices) == 0 {
		return "", &GenerationError{Op: "summarize", Err: fmt.Errorf("empty completion response")}
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
