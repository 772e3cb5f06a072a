// Package stake computes counterstake amounts and transaction preconditions:
// the minimum opposing stake for a challenge, and ERC20 allowance checks
// ahead of claim/challenge/deposit submissions.
package stake

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/counterstake/bridge-client/internal/claims"
)

var (
	ErrNoStake = errors.New("stake: claim has no stake on the current outcome")

	ratioNum   = big.NewInt(150)
	ratioDenom = big.NewInt(100)
	one        = big.NewInt(1)
)

// RequiredCounterStake returns the minimum stake, in smallest units, needed
// to challenge the claim, and the only outcome the challenge may back.
//
// The formula is currentOutcomeStake * 150 / 100 + 1 with truncating integer
// division; the +1 smallest unit is a deliberate anti-tie floor.
func RequiredCounterStake(c claims.Claim) (*big.Int, claims.Outcome, error) {
	current := c.CurrentOutcomeStake()
	if current == nil || current.Sign() <= 0 {
		return nil, 0, fmt.Errorf("%w: claim %s", ErrNoStake, c.ClaimNum)
	}
	required := new(big.Int).Mul(current, ratioNum)
	required.Quo(required, ratioDenom)
	required.Add(required, one)
	return required, c.CurrentOutcome.Opposite(), nil
}
