// Package xref renders cross-reference data for the file trailer, as a
// classic table or as xref stream entries.
package xref

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Table renders a classic cross-reference section covering the free head
// entry plus objects 1..len(offsets), where offsets[i] is the byte offset
// of object i+1.
func Table(offsets []int64) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	return buf.Bytes()
}

// Stream field widths: 1-byte type, 4-byte offset, 2-byte generation.
var streamW = []int64{1, 4, 2}

// Stream renders xref stream entry data covering the free head entry plus
// objects 1..len(offsets). The returned widths belong in the stream
// dictionary's /W array.
func Stream(offsets []int64) (data []byte, w []int64) {
	entrySize := int(streamW[0] + streamW[1] + streamW[2])
	data = make([]byte, 0, (len(offsets)+1)*entrySize)

	// Object 0: free, next free 0, generation 65535.
	data = append(data, 0)
	data = appendUint32(data, 0)
	data = append(data, 0xFF, 0xFF)

	for _, off := range offsets {
		data = append(data, 1)
		data = appendUint32(data, uint32(off))
		data = append(data, 0, 0)
	}
	return data, streamW
}

func appendUint32(b []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(b, tmp[:]...)
}
