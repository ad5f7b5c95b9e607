package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/shared"
	"github.com/openai/openai-go/v2/shared/constant"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// DraftRequest carries the story context for a page draft.
type DraftRequest struct {
	// PreviousBody is the text of the page the reader comes from.
	PreviousBody string
	// ChoiceText is the label of the link the reader followed.
	ChoiceText string
}

// Drafter proposes body text for a gamebook page.
type Drafter interface {
	Draft(ctx context.Context, request DraftRequest) (string, error)
}

// DrafterOptions configures the chat-completion backed drafter.
type DrafterOptions struct {
	Client       *Client
	Model        string
	Temperature  float64
	SystemPrompt string
}

type chatDrafter struct {
	client         *Client
	logger         *logrus.Logger
	model          string
	temperature    float64
	systemPrompt   string
	responseFormat openai.ChatCompletionNewParamsResponseFormatUnion
}

const (
	defaultDrafterSystemPrompt = "You co-write interactive gamebooks. Continue the story in second person with one short page of plain prose. Do not list choices and do not use markup."
	defaultDrafterTemperature  = 0.8
)

// NewDrafter constructs a Drafter backed by the chat completion API.
func NewDrafter(opts DrafterOptions) (Drafter, error) {
	if opts.Client == nil {
		return nil, eris.New("llm client is required")
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		return nil, eris.New("drafter model is required")
	}

	temperature := opts.Temperature
	if temperature <= 0 {
		temperature = defaultDrafterTemperature
	}

	systemPrompt := strings.TrimSpace(opts.SystemPrompt)
	if systemPrompt == "" {
		systemPrompt = defaultDrafterSystemPrompt
	}

	return &chatDrafter{
		client:         opts.Client,
		logger:         opts.Client.logger,
		model:          model,
		temperature:    temperature,
		systemPrompt:   systemPrompt,
		responseFormat: buildDraftResponseFormat(),
	}, nil
}

func (d *chatDrafter) Draft(ctx context.Context, request DraftRequest) (string, error) {
	choice := strings.TrimSpace(request.ChoiceText)
	if choice == "" {
		return "", eris.New("choice text is required")
	}

	prompt := fmt.Sprintf("The reader chose %q.", choice)
	if previous := strings.TrimSpace(request.PreviousBody); previous != "" {
		prompt = fmt.Sprintf("Previous page:\n%s\n\n%s", previous, prompt)
	}
	prompt += " Write the next page. Return JSON that matches the provided schema."

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(d.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(d.systemPrompt),
			openai.UserMessage(prompt),
		},
		ResponseFormat: d.responseFormat,
		Temperature:    openai.Float(d.temperature),
	}

	fields := logrus.Fields{"choice": choice, "model": d.model}

	completion, err := d.client.chat.New(ctx, params)
	if err != nil {
		d.logError(fields, err, "requesting chat completion")
		return "", eris.Wrap(err, "requesting chat completion")
	}

	if len(completion.Choices) == 0 {
		err := eris.New("llm completion returned no choices")
		d.logError(fields, err, "processing chat completion")
		return "", err
	}

	first := completion.Choices[0]
	if reason := strings.TrimSpace(first.FinishReason); strings.EqualFold(reason, "content_filter") {
		err := eris.New("llm blocked the request via content filter")
		d.logError(fields, err, "drafter blocked")
		return "", err
	}

	if refusal := strings.TrimSpace(first.Message.Refusal); refusal != "" {
		err := eris.Errorf("llm refused to draft content: %s", refusal)
		d.logError(fields, err, "drafter refused")
		return "", err
	}

	body, err := parseDraftPayload(first.Message.Content)
	if err != nil {
		d.logError(fields, err, "parsing llm response")
		return "", err
	}

	return body, nil
}

type draftPayload struct {
	Body string `json:"body"`
}

func parseDraftPayload(raw string) (string, error) {
	trimmed := stripCodeFence(strings.TrimSpace(raw))
	if trimmed == "" {
		return "", eris.New("llm response content is empty")
	}

	var payload draftPayload
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return "", eris.Wrap(err, "decoding llm response json")
	}

	body, err := plainText(payload.Body)
	if err != nil {
		return "", err
	}

	if body == "" {
		return "", eris.New("llm response missing body field")
	}

	return body, nil
}

func (d *chatDrafter) logError(fields logrus.Fields, err error, message string) {
	if d.logger == nil || err == nil {
		return
	}

	entry := d.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}

func buildDraftResponseFormat() openai.ChatCompletionNewParamsResponseFormatUnion {
	schema := map[string]any{
		"type":                 "object",
		"required":             []string{"body"},
		"additionalProperties": false,
		"properties": map[string]any{
			"body": map[string]any{
				"type":        "string",
				"description": "Plain-text body of the next gamebook page.",
			},
		},
	}

	return openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
			JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:        "gamebook_page",
				Description: openai.String("Structured gamebook page draft"),
				Strict:      openai.Bool(true),
				Schema:      schema,
			},
			Type: constant.ValueOf[constant.JSONSchema](),
		},
	}
}
