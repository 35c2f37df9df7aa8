// Package render draws the now-playing overlay: fitted text, progress bars
// and transport icons over the album art.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/genricoloni/marquee/internal/domain"
	"github.com/genricoloni/marquee/internal/processor"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
)

const (
	defaultSize        = 240
	defaultSupersample = 2
	scrimOpacity       = 0.55
)

var (
	backgroundColour = color.NRGBA{R: 24, G: 24, B: 28, A: 255}
	textColour       = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	albumColour      = color.NRGBA{R: 200, G: 200, B: 200, A: 255}
	progressColour   = color.NRGBA{R: 240, G: 170, B: 40, A: 255}
	volumeColour     = color.NRGBA{R: 220, G: 220, B: 220, A: 255}
	iconColour       = color.NRGBA{R: 255, G: 255, B: 255, A: 230}
)

// Options configures the compositor. Font sizes are in output pixels.
type Options struct {
	Size        int
	Supersample int
	TitleSize   int
	ArtistSize  int
	AlbumSize   int
	Typeface    Typeface
}

// Layout holds the fitted text blocks of one frame, in canvas pixels
type Layout struct {
	Title  TextBlock
	Artist TextBlock
	Album  TextBlock
}

// Compositor renders now-playing snapshots into square images.
// It keeps the art layer between calls; everything else is redrawn.
// Not safe for concurrent use.
type Compositor struct {
	logger *zap.Logger
	opts   Options
	art    *processor.ArtProcessor
	fitter Fitter

	canvas    int
	artLayer  *image.NRGBA
	scrim     *image.NRGBA
	playIcon  image.Image
	pauseIcon image.Image
}

// NewCompositor creates a compositor and its static resources
func NewCompositor(logger *zap.Logger, opts Options, art *processor.ArtProcessor) (*Compositor, error) {
	if opts.Size <= 0 {
		opts.Size = defaultSize
	}
	if opts.Supersample <= 0 {
		opts.Supersample = defaultSupersample
	}
	if opts.TitleSize <= 0 {
		opts.TitleSize = opts.Size / 8
	}
	if opts.ArtistSize <= 0 {
		opts.ArtistSize = opts.Size / 12
	}
	if opts.AlbumSize <= 0 {
		opts.AlbumSize = opts.Size / 14
	}
	if opts.Typeface == nil {
		f, err := DefaultFont()
		if err != nil {
			return nil, err
		}
		opts.Typeface = f
	}

	canvas := opts.Size * opts.Supersample
	iconSize := canvas / 10

	c := &Compositor{
		logger:    logger,
		opts:      opts,
		art:       art,
		fitter:    NewFitter(),
		canvas:    canvas,
		artLayer:  imaging.New(canvas, canvas, backgroundColour),
		scrim:     imaging.New(canvas, canvas, color.NRGBA{A: 255}),
		playIcon:  PlayIcon(iconSize, iconColour),
		pauseIcon: PauseIcon(iconSize, iconColour),
	}

	logger.Info("Compositor ready",
		zap.Int("size", opts.Size),
		zap.Int("supersample", opts.Supersample))
	return c, nil
}

// Render composites snap into a Size x Size image
func (c *Compositor) Render(snap domain.NowPlaying) (*image.NRGBA, error) {
	if snap.ArtPending {
		if len(snap.AlbumArt) > 0 {
			c.updateArt(snap.AlbumArt)
		} else {
			c.artLayer = imaging.New(c.canvas, c.canvas, backgroundColour)
		}
	}

	canvas := imaging.Overlay(c.artLayer, c.scrim, image.Point{}, scrimOpacity)

	fg := image.NewRGBA(canvas.Bounds())
	c.drawBars(fg, snap)

	layout := c.Layout(snap)
	if err := layout.Artist.Draw(fg, c.opts.Typeface, textColour); err != nil {
		return nil, fmt.Errorf("draw artist: %w", err)
	}
	if err := layout.Album.Draw(fg, c.opts.Typeface, albumColour); err != nil {
		return nil, fmt.Errorf("draw album: %w", err)
	}
	if err := layout.Title.Draw(fg, c.opts.Typeface, textColour); err != nil {
		return nil, fmt.Errorf("draw title: %w", err)
	}

	icon := c.pauseIcon
	if snap.State == domain.StatePlaying {
		icon = c.playIcon
	}
	draw.Draw(fg, c.iconRect(), icon, image.Point{}, draw.Over)

	canvas = imaging.Overlay(canvas, fg, image.Point{}, 1.0)
	return imaging.Resize(canvas, c.opts.Size, c.opts.Size, imaging.Lanczos), nil
}

// Layout fits the three text roles for snap. The album block starts below
// wherever the artist block ended.
func (c *Compositor) Layout(snap domain.NowPlaying) Layout {
	w := c.canvas
	margin := w / 20
	ss := c.opts.Supersample

	var l Layout
	l.Title = c.fit("title", snap.Title, c.opts.TitleSize*ss,
		image.Rect(margin, w*14/100, w-margin, w*48/100))

	artist := strings.ReplaceAll(snap.Artist, ";", ", ")
	l.Artist = c.fit("artist", artist, c.opts.ArtistSize*ss,
		image.Rect(margin, w*50/100, w-margin, w*64/100))

	albumTop := l.Artist.Bounds.Max.Y + margin/2
	if len(l.Artist.Lines) == 0 {
		albumTop = w * 50 / 100
	}
	albumBottom := w * 80 / 100
	if albumTop < albumBottom {
		l.Album = c.fit("album", snap.Album, c.opts.AlbumSize*ss,
			image.Rect(margin, albumTop, w-margin, albumBottom))
	}
	return l
}

// fit logs unfittable text and keeps the best-effort layout
func (c *Compositor) fit(role, text string, start int, rect image.Rectangle) TextBlock {
	block, err := c.fitter.Fit(text, c.opts.Typeface, start, rect)
	if errors.Is(err, ErrUnfittable) {
		c.logger.Debug("Text truncated at minimum size",
			zap.String("role", role),
			zap.String("text", text))
		return block
	}
	if err != nil {
		c.logger.Warn("Failed to fit text", zap.String("role", role), zap.Error(err))
		return TextBlock{}
	}
	return block
}

func (c *Compositor) drawBars(dst draw.Image, snap domain.NowPlaying) {
	w := c.canvas
	margin := w / 20
	barHeight := max(w/60, 1)

	volume := min(max(snap.Volume, 0), 100)
	DrawProgress(dst, float64(volume), 100,
		image.Rect(margin, margin, w-margin, margin+barHeight), volumeColour)

	duration := max(snap.Duration, 0)
	elapsed := min(max(snap.Elapsed, 0), duration)
	DrawProgress(dst, elapsed, duration,
		image.Rect(margin, w-margin-barHeight, w-margin, w-margin), progressColour)
}

func (c *Compositor) iconRect() image.Rectangle {
	w := c.canvas
	size := c.playIcon.Bounds().Dx()
	x := (w - size) / 2
	y := w*82/100 + (w*93/100-w*82/100-size)/2
	return image.Rect(x, y, x+size, y+size)
}

// updateArt swaps the art layer. Art that fails to decode is logged and the
// previous layer stays.
func (c *Compositor) updateArt(data []byte) {
	layer, err := c.art.Prepare(data, c.canvas)
	if err != nil {
		c.logger.Warn("Keeping previous art layer", zap.Error(err))
		return
	}
	c.artLayer = layer
	c.logger.Debug("Art layer replaced", zap.Int("bytes", len(data)))
}
