package translate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/live-subtitle/backend/internal/protocol"
)

// ErrUnavailable wraps every engine failure. Callers on the caption path
// recover from it by showing the original text.
var ErrUnavailable = errors.New("translation unavailable")

// Options selects and configures the translation engines
type Options struct {
	Engine        string
	AzureKey      string
	AzureRegion   string
	AzureEndpoint string
	DeepLKey      string
	OpenAIKey     string
	OpenAIModel   string
	GeminiKey     string
	GeminiModel   ModelResolver
	CacheSize     int
}

// Service translates single captions through the selected engine
type Service struct {
	engines map[string]Translator
	engine  string
	cache   *cache
}

// NewService creates a translation service with available engines. The
// configured engine is used when registered, otherwise the first one found
// in azure, deepl, openai, gemini order.
func NewService(opts Options) *Service {
	s := &Service{
		engines: make(map[string]Translator),
		cache:   newCache(opts.CacheSize),
	}

	if opts.AzureKey != "" {
		s.engines["azure"] = NewAzureTranslator(opts.AzureKey, opts.AzureRegion, opts.AzureEndpoint)
		log.Printf("[translate] registered Azure translation engine")
	}
	if opts.DeepLKey != "" {
		s.engines["deepl"] = NewDeepLTranslator(opts.DeepLKey)
		log.Printf("[translate] registered DeepL translation engine")
	}
	if opts.OpenAIKey != "" {
		s.engines["openai"] = NewOpenAITranslator(opts.OpenAIKey, opts.OpenAIModel)
		log.Printf("[translate] registered OpenAI translation engine")
	}
	if opts.GeminiKey != "" {
		s.engines["gemini"] = NewGeminiTranslator(opts.GeminiKey, opts.GeminiModel)
		log.Printf("[translate] registered Gemini translation engine")
	}

	s.engine = s.pickEngine(opts.Engine)
	if s.engine == "" {
		log.Printf("[translate] WARNING: no translation engine configured, captions will pass through untranslated")
	} else {
		log.Printf("[translate] using %s engine", s.engine)
	}
	return s
}

// NewServiceWith wraps a single translator, mostly for tests and embedding.
func NewServiceWith(t Translator, cacheSize int) *Service {
	return &Service{
		engines: map[string]Translator{t.Name(): t},
		engine:  t.Name(),
		cache:   newCache(cacheSize),
	}
}

func (s *Service) pickEngine(preferred string) string {
	if _, ok := s.engines[preferred]; ok {
		return preferred
	}
	if preferred != "" {
		log.Printf("[translate] engine %q not available, falling back", preferred)
	}
	for _, name := range []string{"azure", "deepl", "openai", "gemini"} {
		if _, ok := s.engines[name]; ok {
			return name
		}
	}
	return ""
}

// Engine returns the name of the engine in use, or "" when none is configured
func (s *Service) Engine() string {
	return s.engine
}

// Translate returns text in targetLang. Empty text and the "none" target
// return text unchanged without touching the network. Any engine failure is
// returned wrapped in ErrUnavailable.
func (s *Service) Translate(ctx context.Context, text, targetLang string, censorProfanity bool) (string, error) {
	if strings.TrimSpace(text) == "" || targetLang == "" || targetLang == protocol.LanguageNone {
		return text, nil
	}

	key := cacheKey{text: text, target: targetLang, censor: censorProfanity}
	if v, ok := s.cache.get(key); ok {
		return v, nil
	}

	engine, ok := s.engines[s.engine]
	if !ok {
		return "", fmt.Errorf("%w: no engine configured", ErrUnavailable)
	}

	out, err := engine.Translate(ctx, Request{
		Text:            text,
		TargetLang:      targetLang,
		CensorProfanity: censorProfanity,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrUnavailable, engine.Name(), err)
	}
	if out == "" {
		return "", fmt.Errorf("%w: %s returned empty text", ErrUnavailable, engine.Name())
	}

	s.cache.put(key, out)
	return out, nil
}
