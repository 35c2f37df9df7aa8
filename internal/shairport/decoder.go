package shairport

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"strings"
)

// item mirrors one document on the shairport-sync metadata pipe:
//
//	<item><type>73736e63</type><code>50494354</code><length>12</length>
//	<data encoding="base64">...</data></item>
type item struct {
	XMLName xml.Name  `xml:"item"`
	Type    *string   `xml:"type"`
	Code    *string   `xml:"code"`
	Data    *itemData `xml:"data"`
}

type itemData struct {
	Encoding string `xml:"encoding,attr"`
	Body     string `xml:",chardata"`
}

// Decode interprets one frame as a metadata event
func Decode(frame []byte) (Event, error) {
	var it item
	if err := xml.Unmarshal(frame, &it); err != nil {
		return Event{}, &DecodeError{Kind: DecodeErrorMalformed, Msg: "parse item", Err: err}
	}
	if it.Type == nil || it.Code == nil {
		return Event{}, &DecodeError{Kind: DecodeErrorMalformed, Msg: "item without type or code"}
	}

	typ, err := decodeTag(*it.Type)
	if err != nil {
		return Event{}, &DecodeError{Kind: DecodeErrorBadHex, Msg: "type tag", Err: err}
	}
	code, err := decodeTag(*it.Code)
	if err != nil {
		return Event{}, &DecodeError{Kind: DecodeErrorBadHex, Msg: "code tag", Err: err}
	}

	ev := Event{Type: typ, Code: code}
	if it.Data == nil {
		return ev, nil
	}

	ev.HasPayload = true
	switch it.Data.Encoding {
	case "":
		ev.Encoding = EncodingNone
		ev.Payload = []byte(it.Data.Body)
	case "base64":
		ev.Encoding = EncodingBase64
		// StdEncoding skips the line breaks shairport-sync inserts
		payload, err := base64.StdEncoding.DecodeString(it.Data.Body)
		if err != nil {
			return Event{}, &DecodeError{Kind: DecodeErrorBadEncoding, Msg: "base64 payload", Err: err}
		}
		ev.Payload = payload
	default:
		return Event{}, &DecodeError{
			Kind: DecodeErrorBadEncoding,
			Msg:  fmt.Sprintf("unsupported encoding %q", it.Data.Encoding),
		}
	}

	return ev, nil
}

// decodeTag turns the hex wire form of a tag into its 4-character code
func decodeTag(s string) (string, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return "", err
	}
	if len(raw) != 4 {
		return "", fmt.Errorf("tag %q decodes to %d bytes, want 4", s, len(raw))
	}
	for _, b := range raw {
		if b < 0x20 || b > 0x7e {
			return "", fmt.Errorf("tag %q is not printable ascii", s)
		}
	}
	return string(raw), nil
}

// EncodeTag returns the hex wire form of a 4-character code
func EncodeTag(code string) string {
	return hex.EncodeToString([]byte(code))
}
