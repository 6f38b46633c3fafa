package media

import (
	"context"
	"errors"
)

const DefaultJPEGQuality = 85

var ErrTranscode = errors.New("image transcode failed")

// Transcoder re-encodes arbitrary image bytes as JPEG.
type Transcoder interface {
	ToJPEG(ctx context.Context, input []byte) ([]byte, error)
	Name() string
}

// NewTranscoder returns the libvips transcoder when built with the govips
// tag and cgo, otherwise the pure Go one.
func NewTranscoder(quality int) Transcoder {
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	return newTranscoder(quality)
}
