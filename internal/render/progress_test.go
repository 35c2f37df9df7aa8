package render

import (
	"image"
	"image/color"
	"testing"
)

func TestDrawProgress(t *testing.T) {
	bar := color.NRGBA{R: 200, G: 100, B: 50, A: 255}
	full := color.RGBA{R: 200, G: 100, B: 50, A: 255}
	dim := color.RGBA{R: 100, G: 50, B: 25, A: 255}
	rect := image.Rect(10, 5, 111, 15) // 101px wide

	tests := []struct {
		name        string
		progress    float64
		max         float64
		filledWidth int
	}{
		{name: "Empty", progress: 0, max: 300, filledWidth: 0},
		{name: "Half", progress: 150, max: 300, filledWidth: 50},
		{name: "Full", progress: 300, max: 300, filledWidth: 101},
		{name: "Zero Max Draws Empty Bar", progress: 10, max: 0, filledWidth: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			canvas := image.NewRGBA(image.Rect(0, 0, 120, 20))
			DrawProgress(canvas, tt.progress, tt.max, rect, bar)

			for y := 0; y < 20; y++ {
				for x := 0; x < 120; x++ {
					got := canvas.RGBAAt(x, y)
					var want color.RGBA
					switch {
					case !image.Pt(x, y).In(rect):
						want = color.RGBA{}
					case x < rect.Min.X+tt.filledWidth:
						want = full
					default:
						want = dim
					}
					if got != want {
						t.Fatalf("pixel (%d,%d): expected %v, got %v", x, y, want, got)
					}
				}
			}
		})
	}
}
