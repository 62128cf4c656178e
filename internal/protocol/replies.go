package protocol

import "time"

// Reply is the response to a Request.
type Reply interface {
	isReply()
}

// Result answers START_CAPTURE, STOP_CAPTURE, UPDATE_SETTINGS and unknown
// messages.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// StatusResult answers GET_STATUS.
type StatusResult struct {
	IsCapturing bool `json:"isCapturing"`
}

// TranslateResult answers TRANSLATE_TEXT. TranslatedText always holds a
// usable value: the source text when translation failed.
type TranslateResult struct {
	Success        bool   `json:"success"`
	TranslatedText string `json:"translatedText"`
	Error          string `json:"error,omitempty"`
}

// CaptionAck answers updateCaption.
type CaptionAck struct {
	Status bool   `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (Result) isReply()          {}
func (StatusResult) isReply()    {}
func (TranslateResult) isReply() {}
func (CaptionAck) isReply()      {}

// TranslatedCaption is the display-ready form of a caption.
type TranslatedCaption struct {
	OriginalText   string    `json:"originalText"`
	TranslatedText string    `json:"translatedText"`
	PlatformID     string    `json:"platformId"`
	Timestamp      time.Time `json:"-"`
}

// Directive is a fire-and-forget message from the coordinator to a page or
// display surface.
type Directive struct {
	Type           MessageType `json:"type"`
	Settings       *Settings   `json:"settings,omitempty"`
	OriginalText   string      `json:"originalText,omitempty"`
	TranslatedText string      `json:"translatedText,omitempty"`
	PlatformID     string      `json:"platformId,omitempty"`
	Timestamp      int64       `json:"timestamp,omitempty"`
}

func CaptureStarted(s Settings) Directive {
	return Directive{Type: TypeCaptureStarted, Settings: &s}
}

func CaptureStopped() Directive {
	return Directive{Type: TypeCaptureStopped}
}

func SettingsUpdated(s Settings) Directive {
	return Directive{Type: TypeSettingsUpdated, Settings: &s}
}

// CaptionUpdate wraps a translated caption for the display surface.
func CaptionUpdate(c TranslatedCaption) Directive {
	return Directive{
		Type:           TypeRealCaptionUpdate,
		OriginalText:   c.OriginalText,
		TranslatedText: c.TranslatedText,
		PlatformID:     c.PlatformID,
		Timestamp:      c.Timestamp.UnixMilli(),
	}
}
