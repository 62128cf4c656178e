package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType is the discriminator carried in the "type" field of every
// message. Page agents that predate the typed protocol send it in "action".
type MessageType string

// Requests sent to the coordinator
const (
	TypeStartCapture   MessageType = "START_CAPTURE"
	TypeStopCapture    MessageType = "STOP_CAPTURE"
	TypeGetStatus      MessageType = "GET_STATUS"
	TypeUpdateSettings MessageType = "UPDATE_SETTINGS"
	TypeTranslateText  MessageType = "TRANSLATE_TEXT"
	TypeUpdateCaption  MessageType = "updateCaption"
)

// Directives sent by the coordinator. No reply is expected.
const (
	TypeCaptureStarted    MessageType = "CAPTURE_STARTED"
	TypeCaptureStopped    MessageType = "CAPTURE_STOPPED"
	TypeSettingsUpdated   MessageType = "SETTINGS_UPDATED"
	TypeRealCaptionUpdate MessageType = "REAL_CAPTION_UPDATE"
)

// TabID identifies a monitored page.
type TabID int

// Request is one of the message types the coordinator accepts. The set is
// closed: only types in this package implement it.
type Request interface {
	MessageType() MessageType
	isRequest()
}

// StartCapture asks the coordinator to begin capturing on a tab. When TabID
// is nil the sender's tab, or the most recently active tab, is used.
type StartCapture struct {
	TabID    *TabID        `json:"tabId,omitempty"`
	Settings SettingsPatch `json:"settings"`
}

type StopCapture struct{}

type GetStatus struct{}

type UpdateSettings struct {
	Settings SettingsPatch `json:"settings"`
}

// TranslateText is an ad-hoc translation request outside the caption flow.
type TranslateText struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"targetLanguage"`
}

// UpdateCaption is a raw caption captured by a page agent.
type UpdateCaption struct {
	Text       string `json:"text"`
	Author     string `json:"author,omitempty"`
	PlatformID string `json:"platformId"`
	// Timestamp is unix milliseconds as reported by the page; zero means now.
	Timestamp int64 `json:"timestamp,omitempty"`
}

// Unknown carries a message whose type the coordinator does not recognise.
type Unknown struct {
	Type MessageType `json:"-"`
}

func (StartCapture) MessageType() MessageType   { return TypeStartCapture }
func (StopCapture) MessageType() MessageType    { return TypeStopCapture }
func (GetStatus) MessageType() MessageType      { return TypeGetStatus }
func (UpdateSettings) MessageType() MessageType { return TypeUpdateSettings }
func (TranslateText) MessageType() MessageType  { return TypeTranslateText }
func (UpdateCaption) MessageType() MessageType  { return TypeUpdateCaption }
func (u Unknown) MessageType() MessageType      { return u.Type }

func (StartCapture) isRequest()   {}
func (StopCapture) isRequest()    {}
func (GetStatus) isRequest()      {}
func (UpdateSettings) isRequest() {}
func (TranslateText) isRequest()  {}
func (UpdateCaption) isRequest()  {}
func (Unknown) isRequest()        {}

// CapturedAt returns the caption timestamp, defaulting to now.
func (u UpdateCaption) CapturedAt() time.Time {
	if u.Timestamp == 0 {
		return time.Now()
	}
	return time.UnixMilli(u.Timestamp)
}

type envelope struct {
	Type   MessageType `json:"type"`
	Action MessageType `json:"action"`
}

// Decode parses a JSON message into its concrete request type. Messages with
// an unrecognised discriminator decode to Unknown without error.
func Decode(data []byte) (Request, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	t := env.Type
	if t == "" {
		t = env.Action
	}

	switch t {
	case TypeStartCapture:
		var r StartCapture
		if err := decodeBody(data, t, &r); err != nil {
			return nil, err
		}
		return r, nil
	case TypeStopCapture:
		return StopCapture{}, nil
	case TypeGetStatus:
		return GetStatus{}, nil
	case TypeUpdateSettings:
		var r UpdateSettings
		if err := decodeBody(data, t, &r); err != nil {
			return nil, err
		}
		return r, nil
	case TypeTranslateText:
		var r TranslateText
		if err := decodeBody(data, t, &r); err != nil {
			return nil, err
		}
		return r, nil
	case TypeUpdateCaption:
		var raw struct {
			UpdateCaption
			Platform string `json:"platform"`
		}
		if err := decodeBody(data, t, &raw); err != nil {
			return nil, err
		}
		r := raw.UpdateCaption
		if r.PlatformID == "" {
			r.PlatformID = raw.Platform
		}
		return r, nil
	default:
		return Unknown{Type: t}, nil
	}
}

func decodeBody(data []byte, t MessageType, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", t, err)
	}
	return nil
}

// Encode marshals a request with its "type" discriminator.
func Encode(req Request) ([]byte, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	t, _ := json.Marshal(req.MessageType())
	fields["type"] = t
	return json.Marshal(fields)
}

// Sender describes where a request came from. TabID is nil for requests from
// the popup or the CLI; Port is set for requests that arrived on a long-lived
// port connection.
type Sender struct {
	TabID *TabID
	Port  string
}
