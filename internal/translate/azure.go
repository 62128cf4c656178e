package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const azureDefaultEndpoint = "https://api.cognitive.microsofttranslator.com"

// AzureTranslator translates captions using Azure AI Translator, either
// directly or through an API Management endpoint that fronts it.
type AzureTranslator struct {
	apiKey     string
	region     string
	endpoint   string
	httpClient *http.Client
}

func NewAzureTranslator(apiKey, region, endpoint string) *AzureTranslator {
	if endpoint == "" {
		endpoint = azureDefaultEndpoint
	}
	return &AzureTranslator{
		apiKey:   apiKey,
		region:   region,
		endpoint: strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (a *AzureTranslator) Name() string {
	return "azure"
}

func (a *AzureTranslator) Translate(ctx context.Context, req Request) (string, error) {
	if a.apiKey == "" {
		return "", fmt.Errorf("Azure translator key not configured")
	}

	q := url.Values{}
	q.Set("api-version", "3.0")
	q.Set("to", req.TargetLang)
	if req.SourceLang != "" && req.SourceLang != "auto" {
		q.Set("from", req.SourceLang)
	}
	if req.CensorProfanity {
		q.Set("profanityAction", "Marked")
	}

	jsonBody, err := json.Marshal([]map[string]string{{"Text": req.Text}})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", a.endpoint+"/translate?"+q.Encode(), bytes.NewReader(jsonBody))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", a.apiKey)
	if a.region != "" {
		httpReq.Header.Set("Ocp-Apim-Subscription-Region", a.region)
	}

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("Azure API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Azure API error (status %d): %s", resp.StatusCode, string(body))
	}

	var azureResp []struct {
		Translations []struct {
			Text string `json:"text"`
			To   string `json:"to"`
		} `json:"translations"`
	}
	if err := json.Unmarshal(body, &azureResp); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(azureResp) == 0 || len(azureResp[0].Translations) == 0 {
		return "", fmt.Errorf("invalid response format from Azure API")
	}

	return azureResp[0].Translations[0].Text, nil
}
