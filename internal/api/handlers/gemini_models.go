package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"
)

const geminiModelsURL = "https://generativelanguage.googleapis.com/v1beta/models"

// GeminiModel is the frontend-friendly model info
type GeminiModel struct {
	ID          string `json:"id"`           // e.g. "gemini-2.5-flash"
	DisplayName string `json:"display_name"` // e.g. "Gemini 2.5 Flash"
	Description string `json:"description"`
}

type GeminiModelsHandler struct {
	apiKey     string
	listURL    string
	httpClient *http.Client

	mu           sync.Mutex
	cachedModels []GeminiModel
	cacheTime    time.Time
}

func NewGeminiModelsHandler(apiKey string) *GeminiModelsHandler {
	return &GeminiModelsHandler{
		apiKey:     apiKey,
		listURL:    geminiModelsURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// ListModels returns the Gemini text models usable for caption translation
func (h *GeminiModelsHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	if h.apiKey == "" {
		jsonResponse(w, []GeminiModel{}, http.StatusOK)
		return
	}

	models, err := h.getModels(r)
	if err != nil {
		jsonError(w, "failed to fetch Gemini models: "+err.Error(), http.StatusBadGateway)
		return
	}
	jsonResponse(w, models, http.StatusOK)
}

// getModels serves from a one hour cache, and from a stale one when Google
// is unreachable.
func (h *GeminiModelsHandler) getModels(r *http.Request) ([]GeminiModel, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.cachedModels) > 0 && time.Since(h.cacheTime) < time.Hour {
		return slices.Clone(h.cachedModels), nil
	}

	models, err := h.fetch(r)
	if err != nil {
		if len(h.cachedModels) > 0 {
			return slices.Clone(h.cachedModels), nil
		}
		return nil, err
	}
	h.cachedModels = models
	h.cacheTime = time.Now()
	return slices.Clone(models), nil
}

func (h *GeminiModelsHandler) fetch(r *http.Request) ([]GeminiModel, error) {
	q := url.Values{"pageSize": {"100"}}
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, h.listURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-goog-api-key", h.apiKey)

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Google API: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Google API: status %d", resp.StatusCode)
	}

	var apiResp struct {
		Models []struct {
			Name                       string   `json:"name"` // "models/gemini-2.5-flash"
			DisplayName                string   `json:"displayName"`
			Description                string   `json:"description"`
			SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("parse Google API response: %w", err)
	}

	models := []GeminiModel{}
	seen := make(map[string]bool)
	for _, m := range apiResp.Models {
		if !slices.Contains(m.SupportedGenerationMethods, "generateContent") {
			continue
		}
		id := strings.TrimPrefix(m.Name, "models/")
		if !strings.HasPrefix(id, "gemini-") || strings.Contains(id, "embedding") || seen[id] {
			continue
		}
		seen[id] = true
		models = append(models, GeminiModel{ID: id, DisplayName: m.DisplayName, Description: m.Description})
	}

	// newer versions first
	sort.Slice(models, func(i, j int) bool { return models[i].ID > models[j].ID })
	return models, nil
}
