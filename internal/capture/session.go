package capture

import (
	"context"
	"errors"

	"github.com/live-subtitle/backend/internal/protocol"
)

var (
	ErrAlreadyCapturing = errors.New("already capturing captions")
	ErrNoActiveTab      = errors.New("no active tab found")
	ErrStartAborted     = errors.New("capture start was cancelled")
)

// State of the capture session
type State int

const (
	Idle State = iota
	Starting
	Active
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Active:
		return "active"
	}
	return "unknown"
}

// Session is a snapshot of the capture session. OwnerTabID is nil unless
// Active is true.
type Session struct {
	State      State             `json:"-"`
	Active     bool              `json:"active"`
	OwnerTabID *protocol.TabID   `json:"ownerTabId,omitempty"`
	Settings   protocol.Settings `json:"settings"`
}

// Pages delivers directives to connected tabs. Implementations must not
// block; the coordinator sends every directive while holding its lock.
type Pages interface {
	Send(tabID protocol.TabID, d protocol.Directive) error
	Broadcast(d protocol.Directive)
	ShowCaption(tabID protocol.TabID, c protocol.TranslatedCaption) error
	ActiveTab() (protocol.TabID, bool)
}

// Translator turns caption text into the target language.
type Translator interface {
	Translate(ctx context.Context, text, targetLang string, censorProfanity bool) (string, error)
}

// SettingsStore persists the capture settings between runs.
type SettingsStore interface {
	SaveCaptureSettings(ctx context.Context, s protocol.Settings) error
}
