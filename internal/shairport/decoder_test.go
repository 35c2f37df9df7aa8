package shairport

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"
	"testing"
)

// itemXML builds a frame the way shairport-sync writes it
func itemXML(typ, code string, payload []byte) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<item><type>%s</type><code>%s</code><length>%d</length>",
		EncodeTag(typ), EncodeTag(code), len(payload))
	if payload != nil {
		enc := base64.StdEncoding.EncodeToString(payload)
		fmt.Fprintf(&b, "\n<data encoding=\"base64\">\n%s</data>", enc)
	}
	b.WriteString("</item>\n")
	return b.String()
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name        string
		frame       string
		expectedErr *DecodeErrorKind
		validate    func(t *testing.T, ev Event)
	}{
		{
			name:  "Success - Base64 Text Payload",
			frame: itemXML("core", "minm", []byte("Come Together")),
			validate: func(t *testing.T, ev Event) {
				if ev.Type != "core" || ev.Code != "minm" {
					t.Errorf("expected core/minm, got %s/%s", ev.Type, ev.Code)
				}
				if !ev.HasPayload || ev.Encoding != EncodingBase64 {
					t.Errorf("expected base64 payload, got has=%v enc=%v", ev.HasPayload, ev.Encoding)
				}
				if string(ev.Payload) != "Come Together" {
					t.Errorf("expected payload 'Come Together', got %q", ev.Payload)
				}
			},
		},
		{
			name:  "Success - No Payload",
			frame: itemXML("ssnc", "prsm", nil),
			validate: func(t *testing.T, ev Event) {
				if ev.HasPayload || ev.Payload != nil {
					t.Errorf("expected no payload, got %q", ev.Payload)
				}
				if ev.Kind() != KindPlayResume {
					t.Errorf("expected KindPlayResume, got %v", ev.Kind())
				}
			},
		},
		{
			name:  "Success - Literal Payload",
			frame: "<item><type>636f7265</type><code>61736172</code><data>The Beatles</data></item>",
			validate: func(t *testing.T, ev Event) {
				if ev.Encoding != EncodingNone {
					t.Errorf("expected literal encoding, got %v", ev.Encoding)
				}
				if string(ev.Payload) != "The Beatles" {
					t.Errorf("expected literal payload, got %q", ev.Payload)
				}
			},
		},
		{
			name:  "Success - Leading Whitespace From Previous Frame",
			frame: "\n" + itemXML("core", "asal", []byte("Abbey Road")),
			validate: func(t *testing.T, ev Event) {
				if string(ev.Payload) != "Abbey Road" {
					t.Errorf("expected 'Abbey Road', got %q", ev.Payload)
				}
			},
		},
		{
			name:        "Error - Not XML",
			frame:       "garbage</item>",
			expectedErr: kindPtr(DecodeErrorMalformed),
		},
		{
			name:        "Error - Wrong Root Element",
			frame:       "<entry><type>636f7265</type><code>61736172</code></entry>",
			expectedErr: kindPtr(DecodeErrorMalformed),
		},
		{
			name:        "Error - Missing Code",
			frame:       "<item><type>636f7265</type></item>",
			expectedErr: kindPtr(DecodeErrorMalformed),
		},
		{
			name:        "Error - Type Not Hex",
			frame:       "<item><type>zzzz</type><code>61736172</code></item>",
			expectedErr: kindPtr(DecodeErrorBadHex),
		},
		{
			name:        "Error - Code Wrong Length",
			frame:       "<item><type>636f7265</type><code>6173</code></item>",
			expectedErr: kindPtr(DecodeErrorBadHex),
		},
		{
			name:        "Error - Code Not Printable",
			frame:       "<item><type>636f7265</type><code>00010203</code></item>",
			expectedErr: kindPtr(DecodeErrorBadHex),
		},
		{
			name:        "Error - Unsupported Encoding",
			frame:       "<item><type>636f7265</type><code>61736172</code><data encoding=\"hex\">00</data></item>",
			expectedErr: kindPtr(DecodeErrorBadEncoding),
		},
		{
			name:        "Error - Corrupt Base64",
			frame:       "<item><type>636f7265</type><code>61736172</code><data encoding=\"base64\">!!!</data></item>",
			expectedErr: kindPtr(DecodeErrorBadEncoding),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Decode([]byte(tt.frame))

			if tt.expectedErr != nil {
				if err == nil {
					t.Fatalf("expected %s error, got nil", *tt.expectedErr)
				}
				if !IsDecodeError(err, *tt.expectedErr) {
					t.Errorf("expected %s error, got %v", *tt.expectedErr, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.validate != nil {
				tt.validate(t, ev)
			}
		})
	}
}

func TestDecode_Base64RoundTrip(t *testing.T) {
	payloads := [][]byte{
		{},
		[]byte("x"),
		{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10},
		bytes.Repeat([]byte{0x00, 0x7f, 0x80, 0xff}, 300),
	}

	for i, payload := range payloads {
		ev, err := Decode([]byte(itemXML("ssnc", "PICT", payload)))
		if err != nil {
			t.Fatalf("payload %d: unexpected error: %v", i, err)
		}
		if !bytes.Equal(ev.Payload, payload) {
			t.Errorf("payload %d: round trip mismatch, got %d bytes want %d", i, len(ev.Payload), len(payload))
		}
	}
}

func kindPtr(k DecodeErrorKind) *DecodeErrorKind {
	return &k
}
