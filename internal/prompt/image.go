package prompt

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// DecodeImageDataURI validates a data URI of the form
// data:<media-type>;base64,<payload> and returns its media type.
// A missing media type, a non-image media type, or an undecodable
// payload is a malformed input, reported before any external call.
func DecodeImageDataURI(uri string) (string, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", fmt.Errorf("%w: image is not a data URI", ErrMalformedInput)
	}

	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", fmt.Errorf("%w: data URI has no payload", ErrMalformedInput)
	}

	mediaType, encoding, _ := strings.Cut(meta, ";")
	if mediaType == "" {
		return "", fmt.Errorf("%w: data URI has no media type", ErrMalformedInput)
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return "", fmt.Errorf("%w: media type %q is not an image", ErrMalformedInput, mediaType)
	}
	if encoding != "base64" {
		return "", fmt.Errorf("%w: data URI encoding %q is not base64", ErrMalformedInput, encoding)
	}

	if _, err := base64.StdEncoding.DecodeString(payload); err != nil {
		return "", fmt.Errorf("%w: undecodable image payload: %v", ErrMalformedInput, err)
	}
	return mediaType, nil
}
