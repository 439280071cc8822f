// Package anemoi implements the precompile at address 0x2002. No Anemoi
// hash implementation exists anywhere in the retrieved reference pack, so
// this is a documented stand-in: a sponge construction built over
// golang.org/x/crypto/sha3's Keccak-f permutation rather than Anemoi's
// actual Jive/Flystel round function. It is the one deliberately
// approximate cryptographic primitive in this repository — callers that
// need interoperability with an Anemoi-hashed value elsewhere must not
// rely on this precompile producing the same digest.
package anemoi

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// Address is the fixed precompile address for the hash stand-in.
var Address = common.BytesToAddress([]byte{0x20, 0x02})

// wordsPerAbsorb is the field-element chunking the gas formula charges
// for: 125000 gas per ceil(n/3) chunks of 3 32-byte words each.
const wordsPerAbsorb = 3
const gasPerChunk = 125_000

// Precompile is the Anemoi stand-in precompile. It holds no state across
// calls — every Run is a pure function of its input.
type Precompile struct{}

// New constructs the stand-in precompile.
func New() *Precompile {
	return &Precompile{}
}

// RequiredGas implements vm.PrecompiledContract: 125000 gas per ceil(n/3)
// 32-byte words of input, per spec.md's gas table.
func (p *Precompile) RequiredGas(input []byte) uint64 {
	words := (len(input) + 31) / 32
	if words == 0 {
		words = 1
	}
	chunks := (words + wordsPerAbsorb - 1) / wordsPerAbsorb
	return uint64(chunks) * gasPerChunk
}

// Run absorbs input 3 words at a time into a Keccak-based sponge and
// squeezes a single 32-byte digest, mimicking Anemoi's absorb/squeeze
// shape without its algebraic round function.
func (p *Precompile) Run(input []byte) ([]byte, error) {
	state := sha3.NewLegacyKeccak256()

	padded := padTo32(input)
	words := len(padded) / 32
	for i := 0; i < words; i += wordsPerAbsorb {
		end := i + wordsPerAbsorb
		if end > words {
			end = words
		}
		var lenBuf [8]byte
		binary.BigEndian.PutUint64(lenBuf[:], uint64(end-i))
		state.Write(lenBuf[:])
		state.Write(padded[i*32 : end*32])
	}

	return state.Sum(nil), nil
}

// padTo32 right-pads input with zero bytes up to a multiple of 32, and
// returns a single zero word for empty input so the sponge always
// absorbs at least one chunk.
func padTo32(input []byte) []byte {
	if len(input) == 0 {
		return make([]byte, 32)
	}
	rem := len(input) % 32
	if rem == 0 {
		return input
	}
	out := make([]byte, len(input)+(32-rem))
	copy(out, input)
	return out
}
