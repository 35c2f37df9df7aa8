package render

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
)

// dimFactor scales the bar colour for the unfilled part
const dimFactor = 0.5

// DrawProgress draws a two-part bar in rect: the whole rect in c dimmed,
// then the leading progress/max share in c. Callers keep progress within
// [0, max]; values outside draw past the rect. max <= 0 draws an empty bar.
func DrawProgress(dst draw.Image, progress, max float64, rect image.Rectangle, c color.Color) {
	full := color.NRGBAModel.Convert(c).(color.NRGBA)
	dim := color.NRGBA{
		R: uint8(float64(full.R) * dimFactor),
		G: uint8(float64(full.G) * dimFactor),
		B: uint8(float64(full.B) * dimFactor),
		A: full.A,
	}
	draw.Draw(dst, rect, image.NewUniform(dim), image.Point{}, draw.Src)

	if max <= 0 {
		return
	}
	barWidth := int(math.Floor(progress / max * float64(rect.Dx())))
	if barWidth <= 0 {
		return
	}
	filled := image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+barWidth, rect.Max.Y)
	draw.Draw(dst, filled, image.NewUniform(full), image.Point{}, draw.Src)
}
