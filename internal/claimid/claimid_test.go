package claimid

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestClaimIDV1Deterministic(t *testing.T) {
	t.Parallel()

	bridge := common.HexToAddress("0x0aB991E04cCbE74Ca5d979Fe297ABaB6e9C70a8d")

	a := ClaimIDV1("ethereum", bridge, 47)
	b := ClaimIDV1("ethereum", bridge, 47)
	if a != b {
		t.Fatalf("same inputs produced different ids")
	}
	if a == ([32]byte{}) {
		t.Fatalf("id must not be zero")
	}
}

func TestClaimIDV1DistinguishesInputs(t *testing.T) {
	t.Parallel()

	bridge := common.HexToAddress("0x0aB991E04cCbE74Ca5d979Fe297ABaB6e9C70a8d")
	other := common.HexToAddress("0x91C79A253481bAa22E7E481f6509E70e5E6A883F")

	base := ClaimIDV1("ethereum", bridge, 47)
	if base == ClaimIDV1("bsc", bridge, 47) {
		t.Fatalf("network key must participate in the id")
	}
	if base == ClaimIDV1("ethereum", other, 47) {
		t.Fatalf("bridge address must participate in the id")
	}
	if base == ClaimIDV1("ethereum", bridge, 48) {
		t.Fatalf("claim number must participate in the id")
	}
}

func TestClaimAndTransferDomainsAreDisjoint(t *testing.T) {
	t.Parallel()

	bridge := common.HexToAddress("0x0aB991E04cCbE74Ca5d979Fe297ABaB6e9C70a8d")
	// A transfer whose hashed payload could collide with a claim's must still
	// produce a different id thanks to the domain prefix.
	claim := ClaimIDV1("ethereum", bridge, 1)
	transfer := TransferIDV1("ethereum", bridge, common.Hash{}, 1)
	if claim == transfer {
		t.Fatalf("claim and transfer ids must live in separate domains")
	}
}

func TestTransferIDV1BoundToLogPosition(t *testing.T) {
	t.Parallel()

	bridge := common.HexToAddress("0x0aB991E04cCbE74Ca5d979Fe297ABaB6e9C70a8d")
	tx := common.HexToHash("0x6a8d3c9f41276f1e9bdbb8d1d57b9ca7ee29c9b62a9e30b6eaf3745cbce8d1aa")

	base := TransferIDV1("ethereum", bridge, tx, 0)
	if base == TransferIDV1("ethereum", bridge, tx, 1) {
		t.Fatalf("log index must participate in the id")
	}
	if base != TransferIDV1("ethereum", bridge, tx, 0) {
		t.Fatalf("same inputs produced different ids")
	}
}
