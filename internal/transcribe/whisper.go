package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/live-subtitle/backend/internal/job"
)

const (
	openAITranscriptionURL = "https://api.openai.com/v1/audio/transcriptions"
	maxUploadSize          = 25 * 1024 * 1024 // 25MB limit
	defaultModel           = "whisper-1"
)

var ErrFileTooLarge = errors.New("audio exceeds the 25MB upload limit")

// Whisper runs transcription jobs against the OpenAI audio API
type Whisper struct {
	apiKey     string
	apiURL     string
	mediaPath  string
	ffmpegBin  string
	httpClient *http.Client
}

// NewWhisper creates a handler that resolves job file paths under mediaPath
func NewWhisper(apiKey, mediaPath string) *Whisper {
	return &Whisper{
		apiKey:    apiKey,
		apiURL:    openAITranscriptionURL,
		mediaPath: mediaPath,
		ffmpegBin: "ffmpeg",
		httpClient: &http.Client{
			Timeout: 10 * time.Minute,
		},
	}
}

// HandleJob is a job.JobHandler for job.JobTranscribe
func (w *Whisper) HandleJob(ctx context.Context, j *job.Job, updateProgress func(float64)) error {
	var params job.TranscribeParams
	if len(j.Params) > 0 {
		if err := json.Unmarshal(j.Params, &params); err != nil {
			return fmt.Errorf("unmarshal params: %w", err)
		}
	}
	if w.apiKey == "" {
		return fmt.Errorf("OpenAI API key not configured")
	}

	fullPath := j.FilePath
	if !filepath.IsAbs(fullPath) {
		fullPath = filepath.Join(w.mediaPath, j.FilePath)
	}
	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", j.FilePath)
	}

	start := time.Now()
	log.Printf("[transcribe] job %s: file=%s language=%s", j.ID, j.FilePath, params.Language)
	updateProgress(0.05)

	audioPath, cleanup, err := prepareAudio(ctx, w.ffmpegBin, fullPath)
	if err != nil {
		return fmt.Errorf("extract audio: %w", err)
	}
	defer cleanup()

	info, err := os.Stat(audioPath)
	if err != nil {
		return err
	}
	if info.Size() > maxUploadSize {
		return ErrFileTooLarge
	}
	updateProgress(0.1)

	text, lang, err := w.upload(ctx, audioPath, params, updateProgress)
	if err != nil {
		return err
	}
	if lang == "" {
		lang = params.Language
	}

	j.Result, err = json.Marshal(job.TranscribeResult{
		Text:     text,
		Language: lang,
		Duration: time.Since(start).Seconds(),
	})
	if err != nil {
		return err
	}
	log.Printf("[transcribe] job %s: %d characters in %s", j.ID, len(text), time.Since(start).Round(time.Millisecond))
	return nil
}

func (w *Whisper) upload(ctx context.Context, audioPath string, params job.TranscribeParams, updateProgress func(float64)) (string, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	audioFile, err := os.Open(audioPath)
	if err != nil {
		return "", "", err
	}
	defer audioFile.Close()

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", "", err
	}
	if _, err := io.Copy(part, audioFile); err != nil {
		return "", "", err
	}

	model := params.Model
	if model == "" {
		model = defaultModel
	}
	writer.WriteField("model", model)
	writer.WriteField("response_format", "verbose_json")
	if params.Language != "" && params.Language != "auto" {
		writer.WriteField("language", params.Language)
	}
	if params.Prompt != "" {
		writer.WriteField("prompt", params.Prompt)
	}
	writer.Close()

	updateProgress(0.2)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, w.apiURL, &buf)
	if err != nil {
		return "", "", err
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+w.apiKey)

	resp, err := w.httpClient.Do(httpReq)
	if err != nil {
		return "", "", fmt.Errorf("OpenAI API request: %w", err)
	}
	defer resp.Body.Close()

	updateProgress(0.9)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("OpenAI API error (status %d): %s", resp.StatusCode, string(body))
	}

	var out struct {
		Text     string `json:"text"`
		Language string `json:"language"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", "", fmt.Errorf("decode transcription: %w", err)
	}
	return out.Text, out.Language, nil
}
