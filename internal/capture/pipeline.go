package capture

import (
	"context"
	"errors"
	"log"
	"regexp"
	"strings"

	"github.com/live-subtitle/backend/internal/protocol"
)

// Page agents post status lines like "YouTube detected - waiting for
// captions..." through the caption channel; they are not captions.
var placeholderPattern = regexp.MustCompile(`(?i)waiting for (real )?captions|detected\s*-\s*waiting|no captions (detected|available)`)

// platform is the per-source pipeline state.
type platform struct {
	lastText string
	seq      uint64
	cancel   context.CancelFunc
}

func isPlaceholder(text string) bool {
	return placeholderPattern.MatchString(text)
}

// HandleCaption runs one caption through dedup, translation and display.
// Only the newest caption of a platform is shown: a newer one cancels the
// translation of the previous, and anything finishing after a stop is
// dropped.
func (c *Coordinator) HandleCaption(ctx context.Context, ev protocol.UpdateCaption) protocol.CaptionAck {
	text := strings.TrimSpace(ev.Text)
	if text == "" {
		return protocol.CaptionAck{Status: false, Error: "No text captured"}
	}

	c.mu.Lock()
	if c.state != Active || c.owner == nil {
		c.mu.Unlock()
		return protocol.CaptionAck{Status: false, Error: "capture is not active"}
	}
	if isPlaceholder(text) {
		c.mu.Unlock()
		return protocol.CaptionAck{Status: true}
	}

	key := ev.PlatformID
	p, ok := c.platforms[key]
	if !ok {
		p = &platform{}
		c.platforms[key] = p
	}
	if p.lastText == text {
		c.mu.Unlock()
		return protocol.CaptionAck{Status: true}
	}
	p.lastText = text
	p.seq++
	if p.cancel != nil {
		p.cancel()
	}
	tctx, cancel := context.WithCancel(c.ctx)
	p.cancel = cancel

	seq := p.seq
	epoch := c.epoch
	owner := *c.owner
	settings := c.settings
	c.mu.Unlock()
	defer cancel()

	translated := text
	if settings.TargetLanguage != protocol.LanguageNone {
		out, err := c.translator.Translate(tctx, text, settings.TargetLanguage, settings.CensorProfanity)
		switch {
		case err == nil:
			translated = out
		case errors.Is(tctx.Err(), context.Canceled):
			// superseded or stopped; the check below drops it
		default:
			log.Printf("[capture] translation failed, showing original: %v", err)
		}
	}

	caption := protocol.TranslatedCaption{
		OriginalText:   text,
		TranslatedText: translated,
		PlatformID:     ev.PlatformID,
		Timestamp:      ev.CapturedAt(),
	}
	if ev.Author != "" {
		caption.OriginalText = ev.Author + ": " + text
		caption.TranslatedText = ev.Author + ": " + translated
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch || c.state != Active || c.platforms[key] != p || p.seq != seq {
		return protocol.CaptionAck{Status: true}
	}
	p.cancel = nil
	if err := c.pages.ShowCaption(owner, caption); err != nil {
		log.Printf("[capture] WARNING: show caption on tab %d: %v", owner, err)
	}
	return protocol.CaptionAck{Status: true}
}
