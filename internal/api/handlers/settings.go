package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/live-subtitle/backend/internal/capture"
	"github.com/live-subtitle/backend/internal/protocol"
)

// GeminiModelKey is the settings key holding the selected Gemini model
const GeminiModelKey = "gemini_model"

// CaptureControl is the part of the coordinator the settings routes use
type CaptureControl interface {
	Status() capture.Session
	UpdateSettings(ctx context.Context, patch protocol.SettingsPatch) protocol.Settings
}

// KeyValueStore holds plain string settings
type KeyValueStore interface {
	GetSetting(key, defaultVal string) string
	SetSetting(key, value string) error
}

type SettingsHandler struct {
	capture      CaptureControl
	store        KeyValueStore
	engine       string
	defaultModel string
}

func NewSettingsHandler(c CaptureControl, store KeyValueStore, engine, defaultGeminiModel string) *SettingsHandler {
	return &SettingsHandler{capture: c, store: store, engine: engine, defaultModel: defaultGeminiModel}
}

type translationSettings struct {
	Engine      string `json:"engine"`
	GeminiModel string `json:"gemini_model"`
}

type settingsResponse struct {
	protocol.Settings
	Capturing   bool                `json:"isCapturing"`
	OwnerTabID  *protocol.TabID     `json:"ownerTabId,omitempty"`
	Translation translationSettings `json:"translation"`
}

func (h *SettingsHandler) current() settingsResponse {
	s := h.capture.Status()
	model := h.store.GetSetting(GeminiModelKey, "")
	if model == "" {
		model = h.defaultModel
	}
	return settingsResponse{
		Settings:   s.Settings,
		Capturing:  s.Active,
		OwnerTabID: s.OwnerTabID,
		Translation: translationSettings{
			Engine:      h.engine,
			GeminiModel: model,
		},
	}
}

// GetSettings returns the capture settings and session state
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, h.current(), http.StatusOK)
}

// UpdateSettings applies a partial capture settings update. A running
// session picks the new settings up immediately.
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch protocol.SettingsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	h.capture.UpdateSettings(r.Context(), patch)
	jsonResponse(w, h.current(), http.StatusOK)
}

// UpdateTranslation selects the Gemini model used for new translations
func (h *SettingsHandler) UpdateTranslation(w http.ResponseWriter, r *http.Request) {
	var body translationSettings
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	model := strings.TrimSpace(body.GeminiModel)
	if model != "" && !strings.HasPrefix(model, "gemini-") {
		jsonError(w, "unsupported model: "+model, http.StatusBadRequest)
		return
	}
	if err := h.store.SetSetting(GeminiModelKey, model); err != nil {
		jsonError(w, "failed to save setting: "+GeminiModelKey, http.StatusInternalServerError)
		return
	}
	jsonResponse(w, h.current(), http.StatusOK)
}
