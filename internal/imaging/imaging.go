// Package imaging wraps libvips (through bimg) for content sniffing and
// downscaling photos before they are sent for analysis.
package imaging

import (
	"github.com/h2non/bimg"
	"github.com/pkg/errors"
)

var ErrUnsupported = errors.New("imaging: unsupported image format")

var accepted = map[bimg.ImageType]bool{
	bimg.JPEG: true,
	bimg.PNG:  true,
	bimg.WEBP: true,
	bimg.GIF:  true,
	bimg.HEIF: true,
	bimg.AVIF: true,
	bimg.TIFF: true,
}

type Inspector struct {
	// MaxDimension bounds the longest side in Fit; zero disables resizing.
	MaxDimension int
}

// Sniff returns the format name ("jpeg", "png", ...) detected from the
// leading bytes of data.
func (Inspector) Sniff(data []byte) (string, error) {
	t := bimg.DetermineImageType(data)
	if !accepted[t] {
		return "", ErrUnsupported
	}
	return bimg.ImageTypeName(t), nil
}

// Fit shrinks data so neither side exceeds MaxDimension, keeping the
// aspect ratio and the original format. Smaller images are returned as is.
func (i Inspector) Fit(data []byte) ([]byte, error) {
	if i.MaxDimension <= 0 {
		return data, nil
	}
	img := bimg.NewImage(data)
	size, err := img.Size()
	if err != nil {
		return nil, errors.Wrap(err, "read image size")
	}
	if size.Width <= i.MaxDimension && size.Height <= i.MaxDimension {
		return data, nil
	}

	opts := bimg.Options{Width: i.MaxDimension}
	if size.Height > size.Width {
		opts = bimg.Options{Height: i.MaxDimension}
	}
	out, err := img.Process(opts)
	if err != nil {
		return nil, errors.Wrap(err, "resize image")
	}
	return out, nil
}
