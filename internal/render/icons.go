package render

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

// PlayIcon rasterizes a right-pointing triangle in a size x size square
func PlayIcon(size int, c color.Color) *image.RGBA {
	s := float32(size)
	z := vector.NewRasterizer(size, size)
	z.DrawOp = draw.Src
	z.MoveTo(0.2*s, 0.1*s)
	z.LineTo(0.9*s, 0.5*s)
	z.LineTo(0.2*s, 0.9*s)
	z.ClosePath()

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	z.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{})
	return dst
}

// PauseIcon rasterizes two vertical bars in a size x size square
func PauseIcon(size int, c color.Color) *image.RGBA {
	s := float32(size)
	z := vector.NewRasterizer(size, size)
	z.DrawOp = draw.Src
	for _, left := range []float32{0.2, 0.6} {
		z.MoveTo(left*s, 0.1*s)
		z.LineTo((left+0.2)*s, 0.1*s)
		z.LineTo((left+0.2)*s, 0.9*s)
		z.LineTo(left*s, 0.9*s)
		z.ClosePath()
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	z.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{})
	return dst
}
