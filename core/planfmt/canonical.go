package planfmt

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("planfmt: canonical encoder: %v", err))
	}
	decMode, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("planfmt: decoder: %v", err))
	}
}

// Canonical returns the canonical CBOR encoding of the plan.
// Equal plans always encode to identical bytes.
func Canonical(p *Plan) ([]byte, error) {
	if len(p.Commands) > maxCommands {
		return nil, fmt.Errorf("plan has %d commands, maximum is %d", len(p.Commands), maxCommands)
	}
	data, err := encMode.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode plan: %w", err)
	}
	return data, nil
}

// Digest returns the BLAKE2b-256 hash of the canonical encoding.
func Digest(p *Plan) ([32]byte, error) {
	data, err := Canonical(p)
	if err != nil {
		return [32]byte{}, err
	}
	return blake2b.Sum256(data), nil
}

func decodeCanonical(data []byte) (*Plan, error) {
	var p Plan
	if err := decMode.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	return &p, nil
}
