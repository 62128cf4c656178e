package protocol

// LanguageNone disables translation; captions are forwarded unchanged.
const LanguageNone = "none"

// Settings controls how captions are translated and shown.
type Settings struct {
	TargetLanguage  string `json:"targetLanguage"`
	ShowOriginal    bool   `json:"showOriginal"`
	CensorProfanity bool   `json:"censorProfanity"`
}

// DefaultSettings returns the settings used before any update.
func DefaultSettings() Settings {
	return Settings{
		TargetLanguage:  "en",
		ShowOriginal:    true,
		CensorProfanity: true,
	}
}

// SettingsPatch is a partial settings update; nil fields are left alone.
type SettingsPatch struct {
	TargetLanguage  *string `json:"targetLanguage,omitempty"`
	ShowOriginal    *bool   `json:"showOriginal,omitempty"`
	CensorProfanity *bool   `json:"censorProfanity,omitempty"`
}

// Merge applies p on top of s.
func (s Settings) Merge(p SettingsPatch) Settings {
	if p.TargetLanguage != nil && *p.TargetLanguage != "" {
		s.TargetLanguage = *p.TargetLanguage
	}
	if p.ShowOriginal != nil {
		s.ShowOriginal = *p.ShowOriginal
	}
	if p.CensorProfanity != nil {
		s.CensorProfanity = *p.CensorProfanity
	}
	return s
}

// Patch returns a patch that sets every field to the values in s.
func (s Settings) Patch() SettingsPatch {
	return SettingsPatch{
		TargetLanguage:  &s.TargetLanguage,
		ShowOriginal:    &s.ShowOriginal,
		CensorProfanity: &s.CensorProfanity,
	}
}
