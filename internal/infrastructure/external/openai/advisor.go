package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/garyjia/claims-workflow/internal/application/port"
	"github.com/garyjia/claims-workflow/internal/domain/entity"
)

// ErrEmptyResponse is returned when the model produced no choices
var ErrEmptyResponse = errors.New("no response from OpenAI")

// chatCompleter is the subset of the go-openai client the advisor calls
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Config configures the OpenAI advisor
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Advisor implements port.Advisor using a chat completion model
type Advisor struct {
	client  chatCompleter
	model   string
	prompts *PromptConfig
	logger  *zap.Logger
}

// NewAdvisor creates an advisor backed by the OpenAI API
func NewAdvisor(cfg Config, prompts *PromptConfig, logger *zap.Logger) *Advisor {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return newAdvisor(openai.NewClientWithConfig(clientCfg), cfg.Model, prompts, logger)
}

func newAdvisor(client chatCompleter, model string, prompts *PromptConfig, logger *zap.Logger) *Advisor {
	if model == "" {
		model = openai.GPT4oMini
	}
	if prompts == nil {
		prompts = DefaultPrompts()
	}
	return &Advisor{
		client:  client,
		model:   model,
		prompts: prompts,
		logger:  logger,
	}
}

type promptData struct {
	Claim           *entity.Claim
	ClaimTypeName   string
	SubmitterName   string
	TransactionDate string
	Reviews         []entity.Review
	Attachments     []entity.Attachment
}

type adviceResponse struct {
	Recommendation string  `json:"recommendation"`
	Confidence     float64 `json:"confidence"`
	Reasoning      string  `json:"reasoning"`
}

// Advise asks the model for a recommendation on one claim
func (a *Advisor) Advise(ctx context.Context, req *port.AdviceRequest) (*port.Advice, error) {
	if req == nil || req.Claim == nil {
		return nil, fmt.Errorf("advice request has no claim")
	}

	a.logger.Debug("Requesting claim advice", zap.String("claim_id", req.Claim.ID))

	prompt, err := a.buildPrompt(req)
	if err != nil {
		return nil, err
	}

	cfg := a.prompts.ClaimReview
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: cfg.System},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		a.logger.Error("OpenAI API call failed", zap.String("claim_id", req.Claim.ID), zap.Error(err))
		return nil, fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	content := resp.Choices[0].Message.Content
	parsed, err := parseAdvice(content)
	if err != nil {
		a.logger.Error("Failed to parse OpenAI response", zap.Error(err), zap.String("content", content))
		return nil, err
	}

	model := resp.Model
	if model == "" {
		model = a.model
	}
	advice := &port.Advice{
		Recommendation: entity.Decision(parsed.Recommendation),
		Confidence:     clampConfidence(parsed.Confidence),
		Reasoning:      strings.TrimSpace(parsed.Reasoning),
		Model:          model,
	}

	a.logger.Info("Claim advice received",
		zap.String("claim_id", req.Claim.ID),
		zap.String("recommendation", advice.Recommendation.String()),
		zap.Float64("confidence", advice.Confidence))

	return advice, nil
}

func (a *Advisor) buildPrompt(req *port.AdviceRequest) (string, error) {
	data := promptData{
		Claim:       req.Claim,
		Reviews:     req.Reviews,
		Attachments: req.Attachments,
	}
	data.ClaimTypeName = req.Claim.ClaimTypeID
	if req.ClaimType != nil && req.ClaimType.Name != "" {
		data.ClaimTypeName = req.ClaimType.Name
	}
	if req.Submitter != nil {
		data.SubmitterName = req.Submitter.Name
	}
	if data.SubmitterName == "" {
		data.SubmitterName = req.Claim.SubmitterID
	}
	if !req.Claim.TransactionDate.IsZero() {
		data.TransactionDate = req.Claim.TransactionDate.Format(entity.DateLayout)
	}
	return renderTemplate(a.prompts.ClaimReview.UserTemplate, data)
}

// parseAdvice decodes the model output, tolerating JSON wrapped in prose or
// markdown fences
func parseAdvice(content string) (*adviceResponse, error) {
	var result adviceResponse
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		jsonStr := extractJSON(content)
		if jsonStr == "" {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
	}

	result.Recommendation = strings.ToLower(strings.TrimSpace(result.Recommendation))
	if !entity.Decision(result.Recommendation).IsValid() {
		return nil, fmt.Errorf("unknown recommendation %q", result.Recommendation)
	}
	return &result, nil
}

func clampConfidence(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}

// extractJSON returns the outermost {...} object in content, or ""
func extractJSON(content string) string {
	start := strings.IndexByte(content, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		c := content[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return content[start : i+1]
			}
		}
	}
	return ""
}

var _ port.Advisor = (*Advisor)(nil)
