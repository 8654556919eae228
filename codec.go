package linestream

import (
	"github.com/pkg/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
)

// Codec maps between line text and the bytes on the wire.
// A Codec is shared and must be safe for concurrent use; the same Codec is
// used for every line a Framer reads or writes, and callers that build
// literal payloads should encode them with Framer.Codec so byte counts agree.
type Codec interface {
	// Name returns the charset name of the codec.
	Name() string
	// Encode converts text into wire bytes.
	Encode(text string) ([]byte, error)
	// Decode converts wire bytes into text.
	Decode(b []byte) (string, error)
}

// Predefined codecs.
var (
	// UTF8 passes bytes through unchanged in both directions.
	UTF8 Codec = NewCodec("UTF-8", encoding.Nop)
	// Latin1 is ISO-8859-1, the usual fallback for servers that send 8-bit
	// text without declaring a charset.
	Latin1 Codec = NewCodec("ISO-8859-1", charmap.ISO8859_1)
)

type textCodec struct {
	name string
	enc  encoding.Encoding
}

// NewCodec returns a Codec backed by a golang.org/x/text encoding.
func NewCodec(name string, enc encoding.Encoding) Codec {
	return textCodec{name: name, enc: enc}
}

func (c textCodec) Name() string {
	return c.name
}

func (c textCodec) Encode(text string) ([]byte, error) {
	b, err := c.enc.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return nil, errors.Wrapf(err, "linestream: encode %s", c.name)
	}
	return b, nil
}

func (c textCodec) Decode(b []byte) (string, error) {
	out, err := c.enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", errors.Wrapf(err, "linestream: decode %s", c.name)
	}
	return string(out), nil
}

// CodecFor resolves a charset name, as found in a MIME header or a server
// capability, into a Codec. An empty name yields UTF8.
func CodecFor(charset string) (Codec, error) {
	if charset == "" {
		return UTF8, nil
	}

	enc, _ := ianaindex.MIME.Encoding(charset)
	if enc == nil {
		enc, _ = ianaindex.IANA.Encoding(charset)
	}
	if enc == nil {
		return nil, errors.Wrapf(ErrUnknownCharset, "%q", charset)
	}

	name, err := ianaindex.MIME.Name(enc)
	if err != nil || name == "" {
		name = charset
	}
	return NewCodec(name, enc), nil
}
