package media

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/weiawesome/plantpal/internal/config"
)

var (
	ErrUnsupportedImage = errors.New("unsupported image type")
	ErrImageTooLarge    = errors.New("image exceeds size limit")
	ErrInvalidImage     = errors.New("image could not be decoded")
)

type format struct {
	contentType string
	ext         string
	imaging     imaging.Format
}

var formats = map[string]format{
	"image/jpeg": {contentType: "image/jpeg", ext: "jpg", imaging: imaging.JPEG},
	"image/jpg":  {contentType: "image/jpeg", ext: "jpg", imaging: imaging.JPEG},
	"image/png":  {contentType: "image/png", ext: "png", imaging: imaging.PNG},
	"image/gif":  {contentType: "image/gif", ext: "gif", imaging: imaging.GIF},
}

// Processed is a normalized image ready to store.
type Processed struct {
	Data        []byte
	ContentType string
	Ext         string
	Width       int
	Height      int
}

// Processor validates uploads and re-encodes them: EXIF orientation is
// applied, metadata is dropped and images wider than MaxWidth are scaled
// down keeping their aspect ratio.
type Processor struct {
	maxBytes    int64
	maxWidth    int
	jpegQuality int
}

func NewProcessor(cfg config.MediaConfig) *Processor {
	p := &Processor{
		maxBytes:    cfg.MaxBytes,
		maxWidth:    cfg.MaxWidth,
		jpegQuality: cfg.JPEGQuality,
	}
	if p.maxBytes <= 0 {
		p.maxBytes = 10 << 20
	}
	if p.maxWidth <= 0 {
		p.maxWidth = 1600
	}
	if p.jpegQuality <= 0 || p.jpegQuality > 100 {
		p.jpegQuality = 85
	}
	return p
}

// MaxBytes is the largest accepted upload.
func (p *Processor) MaxBytes() int64 {
	return p.maxBytes
}

// Process normalizes data declared as contentType. An empty or generic
// content type is sniffed from the bytes.
func (p *Processor) Process(data []byte, contentType string) (*Processed, error) {
	if int64(len(data)) > p.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrImageTooLarge, len(data), p.maxBytes)
	}

	ct := normalizeContentType(contentType)
	if ct == "" || ct == "application/octet-stream" {
		ct = normalizeContentType(http.DetectContentType(data))
	}
	f, ok := formats[ct]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, ct)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	if img.Bounds().Dx() > p.maxWidth {
		img = imaging.Resize(img, p.maxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, f.imaging, imaging.JPEGQuality(p.jpegQuality)); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	return &Processed{
		Data:        buf.Bytes(),
		ContentType: f.contentType,
		Ext:         f.ext,
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
	}, nil
}

func normalizeContentType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}
