package bridgeabi

import (
	"math/big"
)

// errorStringSelector is the 4-byte selector of Error(string), the encoding
// solidity uses for require(...) reasons.
var errorStringSelector = [4]byte{0x08, 0xc3, 0x79, 0xa0}

// DecodeRevert extracts the human-readable reason from revert return data.
// ok is false when the data is not an Error(string) payload.
func DecodeRevert(ret []byte) (string, bool) {
	if len(ret) < 4+32+32 {
		return "", false
	}
	if ret[0] != errorStringSelector[0] || ret[1] != errorStringSelector[1] ||
		ret[2] != errorStringSelector[2] || ret[3] != errorStringSelector[3] {
		return "", false
	}
	body := ret[4:]

	offset := new(big.Int).SetBytes(body[:32])
	if !offset.IsUint64() || offset.Uint64() != 32 {
		return "", false
	}
	lenWord := new(big.Int).SetBytes(body[32:64])
	if !lenWord.IsUint64() {
		return "", false
	}
	strLen := lenWord.Uint64()
	if uint64(len(body)) < 64+strLen {
		return "", false
	}
	return string(body[64 : 64+strLen]), true
}
