package cache

import (
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// ContentKey is the content-addressed identity of a resource. Two resources
// with equal keys are semantically interchangeable and are emitted as one
// object. Keys must include every discriminating input: the resource kind,
// the raw content digest, and any encoding parameter that changes the bytes
// that would be emitted.
type ContentKey [blake2b.Size256]byte

func (k ContentKey) String() string { return hex.EncodeToString(k[:]) }

// NewKey digests a resource kind tag and its discriminating fields. Field
// lengths are mixed into the digest so that adjacent fields cannot alias.
func NewKey(kind string, fields ...[]byte) ContentKey {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(kind))
	var n [8]byte
	for _, f := range fields {
		binary.BigEndian.PutUint64(n[:], uint64(len(f)))
		h.Write(n[:])
		h.Write(f)
	}
	var key ContentKey
	h.Sum(key[:0])
	return key
}

// KeyWriter accumulates discriminating fields incrementally for resources
// whose identity is spread over many small values.
type KeyWriter struct {
	h interface {
		Write([]byte) (int, error)
		Sum([]byte) []byte
	}
}

func NewKeyWriter(kind string) *KeyWriter {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(kind))
	return &KeyWriter{h: h}
}

func (w *KeyWriter) Bytes(f []byte) *KeyWriter {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(f)))
	w.h.Write(n[:])
	w.h.Write(f)
	return w
}

func (w *KeyWriter) String(s string) *KeyWriter { return w.Bytes([]byte(s)) }

func (w *KeyWriter) Uint64(v uint64) *KeyWriter {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], v)
	w.h.Write(n[:])
	return w
}

func (w *KeyWriter) Key() ContentKey {
	var key ContentKey
	w.h.Sum(key[:0])
	return key
}
