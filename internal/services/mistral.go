package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"solana-chat-api/internal/config"
	"solana-chat-api/internal/models"
	"solana-chat-api/pkg/logger"
	"solana-chat-api/pkg/metrics"

	"go.uber.org/zap"
)

const chatSystemPrompt = "You are a helpful assistant for a Solana demo " +
	"application that rewards users with small USDC payments for chatting. " +
	"Keep replies concise and friendly. Do not promise payment amounts or " +
	"give financial advice."

// History beyond this many messages is truncated before each completion
// call to keep request sizes bounded.
const maxHistoryMessages = 20

// MistralClient calls the Mistral chat-completions API
type MistralClient struct {
	cfg        *config.AIConfig
	httpClient *http.Client
	metrics    *metrics.MetricsCollector
}

// NewMistralClient creates a new MistralClient
func NewMistralClient(cfg *config.AIConfig, collector *metrics.MetricsCollector) *MistralClient {
	return &MistralClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		metrics:    collector,
	}
}

type mistralMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type mistralRequest struct {
	Model    string           `json:"model"`
	Messages []mistralMessage `json:"messages"`
}

type mistralResponse struct {
	Choices []struct {
		Message mistralMessage `json:"message"`
	} `json:"choices"`
}

// GenerateReply produces an assistant reply for the user message with the
// given conversation history. A missing API key yields ErrAIUnconfigured.
func (m *MistralClient) GenerateReply(ctx context.Context, message string, history []models.Message) (string, error) {
	if m.cfg.APIKey == "" {
		return "", ErrAIUnconfigured
	}

	if len(history) > maxHistoryMessages {
		history = history[len(history)-maxHistoryMessages:]
	}

	messages := make([]mistralMessage, 0, len(history)+2)
	messages = append(messages, mistralMessage{Role: "system", Content: chatSystemPrompt})
	for _, h := range history {
		messages = append(messages, mistralMessage{Role: h.Role, Content: h.Content})
	}
	messages = append(messages, mistralMessage{Role: models.RoleUser, Content: message})

	body, err := json.Marshal(mistralRequest{
		Model:    m.cfg.Model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		m.cfg.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.cfg.APIKey)

	start := time.Now()
	resp, err := m.httpClient.Do(req)
	if err != nil {
		m.metrics.RecordAICall(time.Since(start), false)
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		m.metrics.RecordAICall(time.Since(start), false)
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		logger.GetLogger().Error("Completion API returned non-200",
			zap.Int("status_code", resp.StatusCode),
			zap.ByteString("body", payload),
		)
		return "", fmt.Errorf("completion API returned status %d", resp.StatusCode)
	}

	var parsed mistralResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		m.metrics.RecordAICall(time.Since(start), false)
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		m.metrics.RecordAICall(time.Since(start), false)
		return "", fmt.Errorf("completion response contained no choices")
	}

	m.metrics.RecordAICall(time.Since(start), true)
	return parsed.Choices[0].Message.Content, nil
}
