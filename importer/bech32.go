package importer

import "strings"

// decodeBech32Address decodes a bech32 string (the upstream chain's
// native address encoding, original_source's Address32/bech32 crate) into
// its underlying byte payload. No bech32 library appears anywhere in the
// retrieved example pack (it is normally reached through the Cosmos SDK's
// address types, which this repository has no use for elsewhere), so this
// is a small, self-contained implementation of the BIP-173 algorithm
// rather than an added dependency that would exist purely for this one
// compatibility path — see DESIGN.md.
const bech32Charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

func decodeBech32Address(s string) ([]byte, bool) {
	s = strings.ToLower(s)
	sep := strings.LastIndexByte(s, '1')
	if sep < 1 || sep+7 > len(s) {
		return nil, false
	}
	data := s[sep+1:]
	values := make([]byte, len(data))
	for i := 0; i < len(data); i++ {
		idx := strings.IndexByte(bech32Charset, data[i])
		if idx < 0 {
			return nil, false
		}
		values[i] = byte(idx)
	}
	// Drop the 6-symbol checksum; convert from 5-bit groups to bytes.
	if len(values) < 6 {
		return nil, false
	}
	values = values[:len(values)-6]
	return convertBits(values, 5, 8, false)
}

func convertBits(data []byte, fromBits, toBits uint, pad bool) ([]byte, bool) {
	var acc uint32
	var bits uint
	maxv := uint32(1<<toBits) - 1
	var out []byte
	for _, value := range data {
		if uint32(value)>>fromBits != 0 {
			return nil, false
		}
		acc = (acc << fromBits) | uint32(value)
		bits += fromBits
		for bits >= toBits {
			bits -= toBits
			out = append(out, byte((acc>>bits)&maxv))
		}
	}
	if pad {
		if bits > 0 {
			out = append(out, byte((acc<<(toBits-bits))&maxv))
		}
	} else if bits >= fromBits || (acc<<(toBits-bits))&maxv != 0 {
		return nil, false
	}
	return out, true
}
