package scans

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/tidwall/gjson"

	"github.com/pawmate/pawmate/internal/app/domain/scan"
)

// OpenAIClassifier asks a vision-capable chat model for a JSON verdict.
type OpenAIClassifier struct {
	client *openai.Client
	model  string
}

// NewOpenAIClassifier builds a classifier. baseURL overrides the API endpoint
// for compatible gateways.
func NewOpenAIClassifier(apiKey, model, baseURL string) *OpenAIClassifier {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIClassifier{client: openai.NewClientWithConfig(cfg), model: model}
}

func (c *OpenAIClassifier) Classify(ctx context.Context, kind scan.Kind, img Image) (Result, error) {
	dataURL := "data:" + img.ContentType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt(kind)},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: fmt.Sprintf("Classify this %s image.", kind)},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
						URL:    dataURL,
						Detail: openai.ImageURLDetailLow,
					}},
				},
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    0,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, errors.New("openai returned no choices")
	}
	res, err := parseVerdict(resp.Choices[0].Message.Content)
	if err != nil {
		return Result{}, err
	}
	res.Model = resp.Model
	if res.Model == "" {
		res.Model = c.model
	}
	return res, nil
}

// parseVerdict reads {label, confidence, findings} out of a model reply,
// tolerating a fenced code block around the JSON.
func parseVerdict(content string) (Result, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)
	if !gjson.Valid(content) {
		return Result{}, fmt.Errorf("model reply is not JSON: %.80q", content)
	}

	parsed := gjson.Parse(content)
	label := parsed.Get("label")
	if !label.Exists() {
		return Result{}, errors.New("model reply has no label")
	}
	res := Result{Label: label.String(), Confidence: parsed.Get("confidence").Float()}
	for _, f := range parsed.Get("findings").Array() {
		res.Findings = append(res.Findings, f.String())
	}
	return res, nil
}
