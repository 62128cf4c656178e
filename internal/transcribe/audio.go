package transcribe

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Formats the transcription endpoint accepts as-is
var uploadable = map[string]bool{
	".flac": true,
	".m4a":  true,
	".mp3":  true,
	".mp4":  true,
	".mpeg": true,
	".mpga": true,
	".oga":  true,
	".ogg":  true,
	".wav":  true,
	".webm": true,
}

// prepareAudio returns a file that can be uploaded for path. Anything the
// endpoint does not accept is converted to mp3 with ffmpeg; cleanup removes
// the temporary file in that case.
func prepareAudio(ctx context.Context, ffmpegBin, path string) (string, func(), error) {
	if uploadable[strings.ToLower(filepath.Ext(path))] {
		return path, func() {}, nil
	}

	tmpFile, err := os.CreateTemp("", "transcribe-audio-*.mp3")
	if err != nil {
		return "", nil, err
	}
	tmpFile.Close()

	cmd := exec.CommandContext(ctx, ffmpegBin,
		"-hide_banner",
		"-loglevel", "error",
		"-i", path,
		"-vn",
		"-acodec", "libmp3lame",
		"-q:a", "4",
		"-y",
		tmpFile.Name(),
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		os.Remove(tmpFile.Name())
		return "", nil, fmt.Errorf("ffmpeg: %s: %w", strings.TrimSpace(string(output)), err)
	}
	return tmpFile.Name(), func() { os.Remove(tmpFile.Name()) }, nil
}
