//go:build govips && cgo

package media

import (
	"context"
	"fmt"

	"github.com/davidbyttow/govips/v2/vips"
)

type govipsTranscoder struct {
	quality int
}

func (t govipsTranscoder) Name() string { return "govips" }

func (t govipsTranscoder) ToJPEG(ctx context.Context, input []byte) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	img, err := vips.NewImageFromBuffer(input)
	if err != nil {
		return nil, fmt.Errorf("%w: decode source image: %v", ErrTranscode, err)
	}
	defer img.Close()

	if img.HasAlpha() {
		if err := img.Flatten(&vips.Color{R: 255, G: 255, B: 255}); err != nil {
			return nil, fmt.Errorf("%w: flatten alpha: %v", ErrTranscode, err)
		}
	}

	params := vips.NewJpegExportParams()
	params.Quality = t.quality
	data, _, err := img.ExportJpeg(params)
	if err != nil {
		return nil, fmt.Errorf("%w: encode jpeg: %v", ErrTranscode, err)
	}
	return data, nil
}
