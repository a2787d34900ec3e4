// Package photo encodes meal images as data URIs and keeps them at a size the
// client can render inline.
package photo

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/nfnt/resize"
)

// MaxWidth is the widest image Normalize returns.
const MaxWidth = 800

// ErrInvalidDataURI is returned when a string is not a base64 data URI.
var ErrInvalidDataURI = errors.New("invalid data URI")

// EncodeDataURI renders data as data:<mimeType>;base64,<data>.
func EncodeDataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ParseDataURI splits a base64 data URI into its mime type and decoded payload.
func ParseDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, ErrInvalidDataURI
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrInvalidDataURI
	}
	mimeType, ok := strings.CutSuffix(header, ";base64")
	if !ok || mimeType == "" {
		return "", nil, ErrInvalidDataURI
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	return mimeType, data, nil
}

// IsDataURI reports whether uri has the data:<mime>;base64,<data> shape with a
// non-empty, decodable payload.
func IsDataURI(uri string) bool {
	_, data, err := ParseDataURI(uri)
	return err == nil && len(data) > 0
}

// Normalize downscales PNG and JPEG images wider than MaxWidth, keeping the aspect
// ratio and the original format. Anything it cannot decode is returned unchanged.
func Normalize(mimeType string, data []byte) (string, []byte) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return mimeType, data
	}
	if img.Bounds().Dx() <= MaxWidth {
		return mimeType, data
	}

	img = resize.Resize(MaxWidth, 0, img, resize.Lanczos3)

	var out bytes.Buffer
	switch format {
	case "jpeg":
		err = jpeg.Encode(&out, img, nil)
		mimeType = "image/jpeg"
	case "png":
		err = png.Encode(&out, img)
		mimeType = "image/png"
	default:
		return mimeType, data
	}
	if err != nil {
		return mimeType, data
	}
	return mimeType, out.Bytes()
}
