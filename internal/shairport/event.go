package shairport

import "github.com/genricoloni/marquee/internal/domain"

// Encoding is the payload encoding declared on the data element
type Encoding int

const (
	EncodingNone Encoding = iota
	EncodingBase64
)

// Kind is the semantic meaning of a (type, code) tag pair
type Kind int

const (
	// KindUnknown covers every pair without an effect. Unknown pairs are
	// ignored, not errors.
	KindUnknown Kind = iota
	KindPicture
	KindAlbum
	KindArtist
	KindTitle
	KindPlayResume
	KindPlayEnd
)

type tagPair struct {
	typ, code string
}

var kinds = map[tagPair]Kind{
	{"ssnc", "PICT"}: KindPicture,
	{"core", "asal"}: KindAlbum,
	{"core", "asar"}: KindArtist,
	{"core", "minm"}: KindTitle,
	{"ssnc", "prsm"}: KindPlayResume,
	{"ssnc", "pend"}: KindPlayEnd,
}

// Event is one decoded metadata item
type Event struct {
	Type       string
	Code       string
	Payload    []byte
	HasPayload bool
	Encoding   Encoding
}

// Kind classifies the event's tag pair
func (e Event) Kind() Kind {
	return kinds[tagPair{e.Type, e.Code}]
}

// Mutate applies the event to np. It satisfies state.Mutation.
func (e Event) Mutate(np *domain.NowPlaying) {
	switch e.Kind() {
	case KindPicture:
		np.AlbumArt = e.Payload
		np.ArtPending = true
	case KindAlbum:
		np.Album = string(e.Payload)
	case KindArtist:
		np.Artist = string(e.Payload)
	case KindTitle:
		np.Title = string(e.Payload)
	case KindPlayResume:
		np.State = domain.StatePlaying
	case KindPlayEnd:
		np.State = domain.StateStopped
	default:
	}
}
