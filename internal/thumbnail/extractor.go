// Package thumbnail derives a poster image from a video.
package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os"
	"time"

	"github.com/nfnt/resize"
)

// DefaultOffset is where the poster frame is taken from. Shorter videos use
// their last frame instead.
const DefaultOffset = time.Second

const jpegQuality = 80

// FrameDecoder reads a video file from disk.
type FrameDecoder interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
	Frame(ctx context.Context, path string, at time.Duration) (image.Image, error)
}

// Thumbnail is an encoded JPEG poster image.
type Thumbnail struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
}

// Reader returns the encoded image as an upload body.
func (t *Thumbnail) Reader() io.Reader {
	return bytes.NewReader(t.Data)
}

func (t *Thumbnail) Size() int64 {
	return int64(len(t.Data))
}

type Extractor struct {
	decoder  FrameDecoder
	tempDir  string
	maxWidth int
}

type Option func(*Extractor)

// WithTempDir sets where videos are spooled before decoding. Empty means the
// system default.
func WithTempDir(dir string) Option {
	return func(e *Extractor) {
		e.tempDir = dir
	}
}

// WithMaxWidth downscales wider frames, keeping the aspect ratio. Zero keeps
// the native resolution.
func WithMaxWidth(width int) Option {
	return func(e *Extractor) {
		e.maxWidth = width
	}
}

func NewExtractor(decoder FrameDecoder, opts ...Option) *Extractor {
	e := &Extractor{decoder: decoder}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract spools video to a temporary file, takes the frame at
// min(DefaultOffset, duration) and encodes it as JPEG. Every failure is a
// *DecodeError. The temporary file never outlives the call.
func (e *Extractor) Extract(ctx context.Context, video io.Reader) (*Thumbnail, error) {
	path, err := e.spool(video)
	if err != nil {
		return nil, &DecodeError{Stage: StageRead, Err: err}
	}
	defer os.Remove(path)

	duration, err := e.decoder.Duration(ctx, path)
	if err != nil {
		return nil, &DecodeError{Stage: StageProbe, Err: err}
	}
	if duration < 0 {
		return nil, &DecodeError{Stage: StageProbe, Err: fmt.Errorf("negative duration %s", duration)}
	}

	frame, err := e.decoder.Frame(ctx, path, FrameOffset(duration))
	if err != nil {
		return nil, &DecodeError{Stage: StageFrame, Err: err}
	}
	if frame == nil || frame.Bounds().Empty() {
		return nil, &DecodeError{Stage: StageFrame, Err: errors.New("empty frame")}
	}

	frame = e.scale(frame)

	var buf bytes.Buffer
	err = jpeg.Encode(&buf, frame, &jpeg.Options{Quality: jpegQuality})
	if err != nil {
		return nil, &DecodeError{Stage: StageEncode, Err: err}
	}

	bounds := frame.Bounds()
	return &Thumbnail{
		Data:        buf.Bytes(),
		ContentType: "image/jpeg",
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
	}, nil
}

// FrameOffset clamps DefaultOffset to the length of the video.
func FrameOffset(duration time.Duration) time.Duration {
	return min(DefaultOffset, duration)
}

func (e *Extractor) scale(frame image.Image) image.Image {
	if e.maxWidth <= 0 || frame.Bounds().Dx() <= e.maxWidth {
		return frame
	}
	// Height 0 preserves the aspect ratio.
	return resize.Resize(uint(e.maxWidth), 0, frame, resize.Lanczos2)
}

func (e *Extractor) spool(video io.Reader) (string, error) {
	f, err := os.CreateTemp(e.tempDir, "video-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	n, err := io.Copy(f, video)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil && n == 0 {
		err = errors.New("empty video")
	}
	if err != nil {
		os.Remove(f.Name())
		return "", err
	}

	return f.Name(), nil
}
