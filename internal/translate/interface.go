package translate

import "context"

// Request is a single caption to translate
type Request struct {
	Text            string `json:"text"`
	SourceLang      string `json:"source_lang"` // empty or "auto" lets the engine detect
	TargetLang      string `json:"target_lang"`
	CensorProfanity bool   `json:"censor_profanity"`
}

// Translator is the common interface for all translation engines
type Translator interface {
	// Translate returns the translated text for req
	Translate(ctx context.Context, req Request) (string, error)
	// Name returns the engine name
	Name() string
}
