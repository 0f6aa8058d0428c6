package planfmt

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/blake2b"

	"github.com/opal-lang/ischeme/core/invariant"
)

const (
	// Magic is the file magic number "ISCH" (4 bytes)
	Magic = "ISCH"

	// Version is the format version (uint16, little-endian)
	Version uint16 = 0x0001

	maxCommands = 1 << 16
	maxBodyLen  = 32 * 1024 * 1024
)

// Write writes a plan to w and returns the BLAKE2b-256 hash of its body.
// Format: MAGIC(4) | VERSION(2) | BODY_LEN(4) | BODY (canonical CBOR)
func Write(w io.Writer, p *Plan) ([32]byte, error) {
	body, err := Canonical(p)
	if err != nil {
		return [32]byte{}, err
	}
	if len(body) > maxBodyLen {
		return [32]byte{}, fmt.Errorf("plan body %d bytes exceeds maximum %d", len(body), maxBodyLen)
	}

	var buf bytes.Buffer
	buf.WriteString(Magic)
	invariant.ExpectNoError(binary.Write(&buf, binary.LittleEndian, Version), "encode version")
	invariant.ExpectNoError(binary.Write(&buf, binary.LittleEndian, uint32(len(body))), "encode body length")
	buf.Write(body)

	if _, err := w.Write(buf.Bytes()); err != nil {
		return [32]byte{}, fmt.Errorf("write plan: %w", err)
	}
	return blake2b.Sum256(body), nil
}
