package render

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/genricoloni/marquee/internal/domain"
	"github.com/genricoloni/marquee/internal/processor"
	"go.uber.org/zap"
)

func newTestCompositor(t *testing.T) *Compositor {
	t.Helper()
	art := processor.NewArtProcessor(zap.NewNop(), processor.ProcessorConfig{})
	c, err := NewCompositor(zap.NewNop(), Options{Size: 120, Supersample: 2}, art)
	if err != nil {
		t.Fatalf("failed to create compositor: %v", err)
	}
	return c
}

func redJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("failed to encode test JPEG: %v", err)
	}
	return buf.Bytes()
}

func TestCompositor_RenderSize(t *testing.T) {
	c := newTestCompositor(t)
	out, err := c.Render(domain.NowPlaying{
		Title:    "Come Together",
		Artist:   "The Beatles",
		Album:    "Abbey Road",
		Elapsed:  60,
		Duration: 259,
		Volume:   80,
		State:    domain.StatePlaying,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Bounds().Dx() != 120 || out.Bounds().Dy() != 120 {
		t.Errorf("expected 120x120 output, got %v", out.Bounds())
	}
}

func TestCompositor_MultiArtistSeparator(t *testing.T) {
	c := newTestCompositor(t)
	layout := c.Layout(domain.NowPlaying{Artist: "Simon;Garfunkel"})

	if got := layout.Artist.Text(); got != "Simon, Garfunkel" {
		t.Errorf("expected artist block 'Simon, Garfunkel', got %q", got)
	}
}

func TestCompositor_AlbumBelowArtist(t *testing.T) {
	c := newTestCompositor(t)
	layout := c.Layout(domain.NowPlaying{
		Title:  "Come Together",
		Artist: "The Beatles",
		Album:  "Abbey Road",
	})

	if len(layout.Artist.Lines) == 0 || len(layout.Album.Lines) == 0 {
		t.Fatalf("expected artist and album blocks, got %+v", layout)
	}
	if layout.Album.Bounds.Min.Y < layout.Artist.Bounds.Max.Y {
		t.Errorf("album block %v overlaps artist block %v", layout.Album.Bounds, layout.Artist.Bounds)
	}
}

func TestCompositor_RetainsArtLayer(t *testing.T) {
	c := newTestCompositor(t)

	withArt, err := c.Render(domain.NowPlaying{AlbumArt: redJPEG(t), ArtPending: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// No pending art: the previous layer must be reused
	again, err := c.Render(domain.NowPlaying{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Corrupt art: logged, previous layer kept
	broken, err := c.Render(domain.NowPlaying{AlbumArt: []byte("junk"), ArtPending: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for name, img := range map[string]*image.NRGBA{"first": withArt, "retained": again, "after bad art": broken} {
		px := img.NRGBAAt(2, 60)
		if px.R < 60 || px.G > 30 {
			t.Errorf("%s render: expected dimmed red background at the edge, got %v", name, px)
		}
	}
}

func TestCompositor_DefaultBackground(t *testing.T) {
	c := newTestCompositor(t)
	out, err := c.Render(domain.NowPlaying{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	px := out.NRGBAAt(2, 60)
	if px.R > 40 || px.G > 40 || px.B > 40 {
		t.Errorf("expected dark background before any art, got %v", px)
	}
}

func TestCompositor_EmptyArtClearsLayer(t *testing.T) {
	c := newTestCompositor(t)

	if _, err := c.Render(domain.NowPlaying{AlbumArt: redJPEG(t), ArtPending: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := c.Render(domain.NowPlaying{ArtPending: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	px := out.NRGBAAt(2, 60)
	if px.R > 40 || px.G > 40 || px.B > 40 {
		t.Errorf("expected dark background after empty art, got %v", px)
	}
}

func TestCompositor_TransportIcon(t *testing.T) {
	c := newTestCompositor(t)

	playing, err := c.Render(domain.NowPlaying{State: domain.StatePlaying})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	paused, err := c.Render(domain.NowPlaying{State: domain.StatePaused})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stopped, err := c.Render(domain.NowPlaying{State: domain.StateStopped})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if bytes.Equal(playing.Pix, paused.Pix) {
		t.Error("playing and paused frames should show different icons")
	}
	if !bytes.Equal(paused.Pix, stopped.Pix) {
		t.Error("every non-playing state should show the pause icon")
	}
}

func TestCompositor_OutputIndependentAcrossCalls(t *testing.T) {
	c := newTestCompositor(t)
	snap := domain.NowPlaying{Title: "Mrs. Robinson", Artist: "Simon;Garfunkel", Volume: 250, Elapsed: -5, Duration: 100}

	first, err := c.Render(snap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.Render(domain.NowPlaying{Title: "Something else entirely"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := c.Render(snap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !bytes.Equal(first.Pix, second.Pix) {
		t.Error("identical snapshots should render identical frames")
	}
}
