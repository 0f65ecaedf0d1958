// Package filters implements the stream encodings applied to output
// streams. Only the encode direction is needed here; readers decode.
package filters

import (
	"bytes"
	"compress/zlib"
	"encoding/hex"
	"fmt"
)

// PDF filter names as they appear in stream dictionaries.
const (
	FlateName    = "FlateDecode"
	ASCIIHexName = "ASCIIHexDecode"
)

// FlateEncode compresses data with zlib at the default level. The same
// input always yields the same bytes, which the deterministic-output
// guarantee relies on.
func FlateEncode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return nil, fmt.Errorf("filters: flate encode: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("filters: flate encode: %w", err)
	}
	return buf.Bytes(), nil
}

// ASCIIHexEncode renders data as uppercase hex with the closing ">"
// end-of-data marker.
func ASCIIHexEncode(data []byte) []byte {
	out := make([]byte, hex.EncodedLen(len(data))+1)
	hex.Encode(out, data)
	for i, c := range out[:len(out)-1] {
		if c >= 'a' && c <= 'f' {
			out[i] = c - 'a' + 'A'
		}
	}
	out[len(out)-1] = '>'
	return out
}
