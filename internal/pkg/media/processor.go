package media

import (
	"bytes"
	"fmt"
	"image"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2/log"
	"github.com/kolesa-team/go-webp/decoder"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"
)

const (
	ThumbnailWidth   = 400
	thumbnailQuality = 80
)

func init() {
	// Register Nikon and Canon maker notes
	exif.RegisterParsers(mknote.All...)
}

// ImageInfo is what is learned from decoding an upload.
type ImageInfo struct {
	Width     int
	Height    int
	TakenAt   *time.Time
	Thumbnail []byte
}

// Process decodes the image, reads the capture date from EXIF and renders
// a WebP thumbnail.
func Process(data []byte, contentType string) (*ImageInfo, error) {
	img, err := decode(data, contentType)
	if err != nil {
		return nil, fmt.Errorf("error decoding image: %w", err)
	}
	bounds := img.Bounds()
	info := &ImageInfo{Width: bounds.Dx(), Height: bounds.Dy()}
	info.TakenAt = takenAt(data)

	thumb := img
	if info.Width > ThumbnailWidth {
		thumb = imaging.Resize(img, ThumbnailWidth, 0, imaging.Lanczos)
	}
	info.Thumbnail, err = encodeWebP(thumb)
	if err != nil {
		return nil, err
	}
	return info, nil
}

func decode(data []byte, contentType string) (image.Image, error) {
	if contentType == "image/webp" {
		return webp.Decode(bytes.NewReader(data), &decoder.Options{})
	}
	return imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
}

func takenAt(data []byte) *time.Time {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		// most PNG and GIF files carry no EXIF
		log.Debugf("[Media] No EXIF data: %v", err)
		return nil
	}
	dt, err := x.DateTime()
	if err != nil {
		return nil
	}
	return &dt
}

func encodeWebP(img image.Image) ([]byte, error) {
	options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, thumbnailQuality)
	if err != nil {
		return nil, fmt.Errorf("error creating encoder options: %w", err)
	}
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, options); err != nil {
		return nil, fmt.Errorf("error encoding WebP image: %w", err)
	}
	return buf.Bytes(), nil
}
