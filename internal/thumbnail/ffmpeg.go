package thumbnail

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// FFmpegDecoder implements FrameDecoder with the ffprobe and ffmpeg binaries.
type FFmpegDecoder struct {
	FFmpegPath  string
	FFprobePath string
}

func NewFFmpegDecoder(ffmpegPath, ffprobePath string) *FFmpegDecoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpegDecoder{FFmpegPath: ffmpegPath, FFprobePath: ffprobePath}
}

// Available reports whether both binaries can be found.
func (d *FFmpegDecoder) Available() bool {
	for _, bin := range []string{d.FFmpegPath, d.FFprobePath} {
		if _, err := exec.LookPath(bin); err != nil {
			return false
		}
	}
	return true
}

func (d *FFmpegDecoder) Duration(ctx context.Context, path string) (time.Duration, error) {
	out, err := run(ctx, d.FFprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, err
	}
	return parseDuration(string(out))
}

// endStep is how far before the requested offset the second attempt seeks.
const endStep = 250 * time.Millisecond

// Frame decodes a single frame at the given offset, piped out as PNG so no
// second temp file is needed. Seeking to the very end of a stream yields no
// frame, so a step back and then the first frame are tried.
func (d *FFmpegDecoder) Frame(ctx context.Context, path string, at time.Duration) (image.Image, error) {
	for _, offset := range frameOffsets(at) {
		out, err := run(ctx, d.FFmpegPath,
			"-v", "error",
			"-ss", strconv.FormatFloat(offset.Seconds(), 'f', 3, 64),
			"-i", path,
			"-frames:v", "1",
			"-f", "image2pipe",
			"-vcodec", "png",
			"-",
		)
		if err != nil {
			return nil, err
		}
		if len(out) == 0 {
			continue
		}

		img, err := png.Decode(bytes.NewReader(out))
		if err != nil {
			return nil, fmt.Errorf("decode frame: %w", err)
		}
		return img, nil
	}
	return nil, fmt.Errorf("no frame at %s", at)
}

func frameOffsets(at time.Duration) []time.Duration {
	offsets := []time.Duration{at}
	if at > endStep {
		offsets = append(offsets, at-endStep)
	}
	if at > 0 {
		offsets = append(offsets, 0)
	}
	return offsets
}

func run(ctx context.Context, bin string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("%s: %w", bin, err)
		}
		return nil, fmt.Errorf("%s: %w: %s", bin, err, msg)
	}
	return stdout.Bytes(), nil
}

// parseDuration reads ffprobe's seconds output, e.g. "12.345000".
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "N/A" {
		return 0, fmt.Errorf("unknown duration")
	}
	seconds, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}
