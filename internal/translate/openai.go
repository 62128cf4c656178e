package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const openAIChatURL = "https://api.openai.com/v1/chat/completions"

// OpenAITranslator translates captions using OpenAI Chat API
type OpenAITranslator struct {
	apiKey     string
	model      string
	apiURL     string
	httpClient *http.Client
}

func NewOpenAITranslator(apiKey, model string) *OpenAITranslator {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAITranslator{
		apiKey: apiKey,
		model:  model,
		apiURL: openAIChatURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (o *OpenAITranslator) Name() string {
	return "openai"
}

func (o *OpenAITranslator) Translate(ctx context.Context, req Request) (string, error) {
	if o.apiKey == "" {
		return "", fmt.Errorf("OpenAI API key not configured")
	}

	reqBody := map[string]interface{}{
		"model": o.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt(req.SourceLang, req.TargetLang, req.CensorProfanity)},
			{"role": "user", "content": req.Text},
		},
		"temperature": 0.3,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", o.apiURL, bytes.NewReader(jsonBody))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("OpenAI API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("OpenAI API error (status %d): %s", resp.StatusCode, string(body))
	}

	var chatResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("empty OpenAI response")
	}

	// LLMs sometimes return ASS-style \N line breaks
	content := strings.ReplaceAll(chatResp.Choices[0].Message.Content, `\N`, "\n")
	return strings.TrimSpace(content), nil
}
