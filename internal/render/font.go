package render

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
)

// Typeface yields faces of one font at a requested pixel size
type Typeface interface {
	Face(size int) (font.Face, error)
}

// Font is an OpenType font with faces cached per pixel size.
// The returned faces are not safe for concurrent use; render from one goroutine.
type Font struct {
	otf *opentype.Font

	mu    sync.Mutex
	faces map[int]font.Face
}

// ParseFont parses TrueType or OpenType font data
func ParseFont(data []byte) (*Font, error) {
	otf, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	return &Font{otf: otf, faces: make(map[int]font.Face)}, nil
}

// LoadFont reads a font file from disk
func LoadFont(path string) (*Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read font %s: %w", path, err)
	}
	return ParseFont(data)
}

// DefaultFont returns the embedded Go Bold font
func DefaultFont() (*Font, error) {
	return ParseFont(gobold.TTF)
}

// Face returns the face for size pixels. At 72 DPI one point is one pixel.
func (f *Font) Face(size int) (font.Face, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid font size %d", size)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if face, ok := f.faces[size]; ok {
		return face, nil
	}
	face, err := opentype.NewFace(f.otf, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create face at %dpx: %w", size, err)
	}
	f.faces[size] = face
	return face, nil
}
