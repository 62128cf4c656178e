package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_StartCapture(t *testing.T) {
	req, err := Decode([]byte(`{"type":"START_CAPTURE","tabId":7,"settings":{"targetLanguage":"es","censorProfanity":false}}`))
	require.NoError(t, err)

	sc, ok := req.(StartCapture)
	require.True(t, ok, "got %T", req)
	require.NotNil(t, sc.TabID)
	assert.Equal(t, TabID(7), *sc.TabID)
	require.NotNil(t, sc.Settings.TargetLanguage)
	assert.Equal(t, "es", *sc.Settings.TargetLanguage)
	require.NotNil(t, sc.Settings.CensorProfanity)
	assert.False(t, *sc.Settings.CensorProfanity)
	assert.Nil(t, sc.Settings.ShowOriginal)
}

func TestDecode_LegacyActionCaption(t *testing.T) {
	req, err := Decode([]byte(`{"action":"updateCaption","text":"Hello","platform":"YouTube","author":"John","timestamp":1700000000000}`))
	require.NoError(t, err)

	uc, ok := req.(UpdateCaption)
	require.True(t, ok, "got %T", req)
	assert.Equal(t, "Hello", uc.Text)
	assert.Equal(t, "YouTube", uc.PlatformID)
	assert.Equal(t, "John", uc.Author)
	assert.Equal(t, int64(1700000000000), uc.CapturedAt().UnixMilli())
}

func TestDecode_PlatformIDWinsOverLegacyField(t *testing.T) {
	req, err := Decode([]byte(`{"type":"updateCaption","text":"x","platformId":"yt","platform":"YouTube"}`))
	require.NoError(t, err)
	assert.Equal(t, "yt", req.(UpdateCaption).PlatformID)
}

func TestDecode_Unknown(t *testing.T) {
	req, err := Decode([]byte(`{"type":"UNKNOWN_MESSAGE"}`))
	require.NoError(t, err)
	assert.Equal(t, Unknown{Type: "UNKNOWN_MESSAGE"}, req)
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode([]byte(`{not json`))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"type":"TRANSLATE_TEXT","text":42}`))
	assert.ErrorContains(t, err, "TRANSLATE_TEXT")
}

func TestEncode_AddsDiscriminator(t *testing.T) {
	data, err := Encode(TranslateText{Text: "Hello", TargetLanguage: "fr"})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "TRANSLATE_TEXT", fields["type"])
	assert.Equal(t, "Hello", fields["text"])

	back, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, TranslateText{Text: "Hello", TargetLanguage: "fr"}, back)
}

func TestSettingsMerge(t *testing.T) {
	lang := "es"
	show := false
	s := DefaultSettings().Merge(SettingsPatch{TargetLanguage: &lang, ShowOriginal: &show})

	assert.Equal(t, Settings{TargetLanguage: "es", ShowOriginal: false, CensorProfanity: true}, s)

	empty := ""
	assert.Equal(t, s, s.Merge(SettingsPatch{TargetLanguage: &empty}))
	assert.Equal(t, s, DefaultSettings().Merge(s.Patch()))
}

func TestCaptionUpdateDirective(t *testing.T) {
	d := CaptionUpdate(TranslatedCaption{OriginalText: "Hello", TranslatedText: "Hola", PlatformID: "yt"})
	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"REAL_CAPTION_UPDATE"`)
	assert.Contains(t, string(data), `"translatedText":"Hola"`)
	assert.NotContains(t, string(data), `"settings"`)
}
