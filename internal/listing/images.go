package listing

import (
	"bytes"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/teris-io/shortid"
)

const (
	maxImageDimension = 1600
	jpegQuality       = 85
	placeholderBase   = "https://picsum.photos/seed/"
)

// Upload is one photo attached to a create or edit request.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// uploadPlaceholder is used in place of a photo that could not be stored.
func uploadPlaceholder(ownerId string, millis int64, i int) string {
	return fmt.Sprintf("%s%s_%d_%d/800/600", placeholderBase, ownerId, millis, i)
}

// roomPlaceholder is the image given to rooms that have none.
func roomPlaceholder(roomId string) string {
	return placeholderBase + roomId + "/800/600"
}

// normalizeImage decodes data, bounds it to maxImageDimension on both sides
// and re-encodes it as JPEG. Data that does not decode as an image is returned
// unchanged with ok false.
func normalizeImage(data []byte) (out []byte, ok bool) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return data, false
	}

	b := img.Bounds()
	if b.Dx() > maxImageDimension || b.Dy() > maxImageDimension {
		img = imaging.Fit(img, maxImageDimension, maxImageDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return data, false
	}

	return buf.Bytes(), true
}

func sanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)

	name = strings.Trim(name, "._")
	if name == "" {
		return "image"
	}
	return name
}

func withJPEGExtension(name string) string {
	ext := path.Ext(name)
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return name
	}
	return strings.TrimSuffix(name, ext) + ".jpg"
}

// objectPath names an upload {ownerId}/{unixMillis}_{shortid}_{file name}.
func objectPath(ownerId string, millis int64, name string) string {
	id, err := shortid.Generate()
	if err != nil {
		id = uuid.NewString()[:8]
	}

	return fmt.Sprintf("%s/%d_%s_%s", ownerId, millis, id, sanitizeFileName(name))
}

// prepareUpload returns the bytes, content type and file name to store for u.
func prepareUpload(u Upload) ([]byte, string, string) {
	if data, ok := normalizeImage(u.Data); ok {
		return data, "image/jpeg", withJPEGExtension(u.Name)
	}

	contentType := u.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(u.Data)
	}

	return u.Data, contentType, u.Name
}
