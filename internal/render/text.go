package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// DefaultLineSpacing is the line height as a multiple of the font size
const DefaultLineSpacing = 1.1

const ellipsis = "\u2026"

// ErrUnfittable is returned when text does not fit even at the minimum size.
// Fit still returns the truncated minimum-size layout alongside it.
var ErrUnfittable = errors.New("text does not fit at minimum font size")

// Line is one laid-out line of text
type Line struct {
	Text string
	// Dot is the baseline origin the line is drawn from
	Dot   image.Point
	Width int
}

// TextBlock is the result of fitting text into a rectangle
type TextBlock struct {
	Lines      []Line
	Size       int
	LineHeight int
	// Bounds is the tightest box around the rendered glyphs
	Bounds image.Rectangle
}

// Text joins the lines with single spaces
func (b TextBlock) Text() string {
	parts := make([]string, len(b.Lines))
	for i, l := range b.Lines {
		parts[i] = l.Text
	}
	return strings.Join(parts, " ")
}

// Draw renders the block onto dst
func (b TextBlock) Draw(dst draw.Image, tf Typeface, c color.Color) error {
	if len(b.Lines) == 0 {
		return nil
	}
	face, err := tf.Face(b.Size)
	if err != nil {
		return err
	}
	d := font.Drawer{Dst: dst, Src: image.NewUniform(c), Face: face}
	for _, l := range b.Lines {
		d.Dot = fixed.P(l.Dot.X, l.Dot.Y)
		d.DrawString(l.Text)
	}
	return nil
}

// Fitter reflows text into a rectangle, shrinking the font until it fits
type Fitter struct {
	LineSpacing float64
	// MinSize is the smallest size tried before giving up
	MinSize int
}

// NewFitter returns a fitter with the default line spacing and a 1px floor
func NewFitter() Fitter {
	return Fitter{LineSpacing: DefaultLineSpacing, MinSize: 1}
}

// Fit lays out text in rect at the largest size from start downwards where
// every word fits and the glyphs stay inside rect. Sizes are tried one by one:
// width measurement rounds per glyph, so a smaller size occasionally needs
// more lines than a larger one.
func (f Fitter) Fit(text string, tf Typeface, start int, rect image.Rectangle) (TextBlock, error) {
	words := strings.Fields(text)

	minSize := f.MinSize
	if minSize < 1 {
		minSize = 1
	}
	spacing := f.LineSpacing
	if spacing <= 0 {
		spacing = DefaultLineSpacing
	}
	if start < minSize {
		start = minSize
	}

	var best TextBlock
	for size := start; size >= minSize; size-- {
		face, err := tf.Face(size)
		if err != nil {
			return TextBlock{}, fmt.Errorf("fit at %dpx: %w", size, err)
		}

		lineHeight := int(math.Floor(float64(size) * spacing))
		if lineHeight < 1 {
			lineHeight = 1
		}
		maxLines := rect.Dy() / lineHeight

		lines, complete := pack(words, face, rect.Dx(), maxLines, size == minSize)
		best = layout(lines, face, size, lineHeight, rect)
		if complete && best.Bounds.In(rect) {
			return best, nil
		}
	}
	return best, ErrUnfittable
}

// pack fills up to maxLines lines greedily. It reports whether every word
// was placed whole. A word wider than the rectangle on its own stops packing,
// unless clip is set, in which case it is cut short with an ellipsis.
func pack(words []string, face font.Face, width, maxLines int, clip bool) ([]string, bool) {
	var lines []string
	clipped := false
	i := 0
	for i < len(words) && len(lines) < maxLines {
		line := words[i]
		if measure(face, line) > width {
			if !clip {
				return lines, false
			}
			clipped = true
			i++
			if line = ellipsize(face, line, width); line == "" {
				continue
			}
			lines = append(lines, line)
			continue
		}
		i++
		for i < len(words) {
			candidate := line + " " + words[i]
			if measure(face, candidate) > width {
				break
			}
			line = candidate
			i++
		}
		lines = append(lines, line)
	}
	return lines, i == len(words) && !clipped
}

// ellipsize shortens word until it fits width with a trailing ellipsis.
// It returns "" when not even the ellipsis fits.
func ellipsize(face font.Face, word string, width int) string {
	runes := []rune(word)
	for n := len(runes) - 1; n >= 0; n-- {
		s := string(runes[:n]) + ellipsis
		if measure(face, s) <= width {
			return s
		}
	}
	return ""
}

// layout centres lines in rect. The glyph box of a face is taller than its
// nominal size; half of that slack is taken off the baseline. Where rounding
// pushes glyphs past an edge of rect, the block is shifted back inside.
func layout(lines []string, face font.Face, size, lineHeight int, rect image.Rectangle) TextBlock {
	block := TextBlock{Size: size, LineHeight: lineHeight}
	if len(lines) == 0 {
		centre := rect.Min.Add(rect.Size().Div(2))
		block.Bounds = image.Rectangle{Min: centre, Max: centre}
		return block
	}

	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	slack := (metrics.Ascent + metrics.Descent).Ceil() - size
	top := rect.Min.Y + (rect.Dy()-len(lines)*lineHeight)/2

	for i, text := range lines {
		width := measure(face, text)
		dot := image.Pt(
			rect.Min.X+(rect.Dx()-width)/2,
			top+i*lineHeight+ascent-slack/2,
		)

		b, _ := font.BoundString(face, text)
		glyphs := image.Rect(b.Min.X.Floor(), b.Min.Y.Floor(), b.Max.X.Ceil(), b.Max.Y.Ceil()).Add(dot)
		dx := nudge(glyphs.Min.X, glyphs.Max.X, rect.Min.X, rect.Max.X)
		dot.X += dx
		glyphs = glyphs.Add(image.Pt(dx, 0))

		if i == 0 {
			block.Bounds = glyphs
		} else {
			block.Bounds = block.Bounds.Union(glyphs)
		}
		block.Lines = append(block.Lines, Line{Text: text, Dot: dot, Width: width})
	}

	dy := nudge(block.Bounds.Min.Y, block.Bounds.Max.Y, rect.Min.Y, rect.Max.Y)
	if dy != 0 {
		for i := range block.Lines {
			block.Lines[i].Dot.Y += dy
		}
		block.Bounds = block.Bounds.Add(image.Pt(0, dy))
	}
	return block
}

// nudge returns the offset that moves [lo, hi) inside [lower, upper). A span
// longer than the range is aligned to lower.
func nudge(lo, hi, lower, upper int) int {
	d := 0
	if hi > upper {
		d = upper - hi
	}
	if lo+d < lower {
		d = lower - lo
	}
	return d
}

func measure(face font.Face, s string) int {
	return font.MeasureString(face, s).Ceil()
}
