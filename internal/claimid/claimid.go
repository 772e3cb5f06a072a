package claimid

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

const (
	claimPrefixV1    = "cs-claim"
	transferPrefixV1 = "cs-transfer"
)

// ClaimIDV1 computes the canonical dedupe id for an observed claim:
//
//	keccak256("cs-claim" || networkKey || bridge || claimNumBE8)
//
// claimNum here is the on-chain claim number, never the display index.
func ClaimIDV1(networkKey string, bridge common.Address, claimNum uint64) [32]byte {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write([]byte(claimPrefixV1))
	_, _ = h.Write([]byte(networkKey))
	_, _ = h.Write(bridge[:])

	var num [8]byte
	binary.BigEndian.PutUint64(num[:], claimNum)
	_, _ = h.Write(num[:])

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// TransferIDV1 computes the canonical dedupe id for an observed transfer
// event, bound to its emitting log position.
func TransferIDV1(networkKey string, bridge common.Address, txHash common.Hash, logIndex uint) [32]byte {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write([]byte(transferPrefixV1))
	_, _ = h.Write([]byte(networkKey))
	_, _ = h.Write(bridge[:])
	_, _ = h.Write(txHash[:])

	var idx [4]byte
	binary.BigEndian.PutUint32(idx[:], uint32(logIndex))
	_, _ = h.Write(idx[:])

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
