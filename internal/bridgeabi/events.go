package bridgeabi

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// NewClaimEvent mirrors the counterstake NewClaim log. ClaimNum is the
// on-chain claim number; it is the only number valid for challenge/withdraw
// calldata.
type NewClaimEvent struct {
	ClaimNum         *big.Int
	AuthorAddress    common.Address
	SenderAddress    string
	RecipientAddress common.Address
	Txid             string
	Txts             uint32
	Amount           *big.Int
	Reward           *big.Int
	Stake            *big.Int
	Data             string
	ExpiryTs         uint32
}

type NewExpatriationEvent struct {
	SenderAddress  common.Address
	Amount         *big.Int
	Reward         *big.Int
	ForeignAddress string
	Data           string
}

type NewRepatriationEvent struct {
	SenderAddress common.Address
	Amount        *big.Int
	Reward        *big.Int
	HomeAddress   string
	Data          string
}

type NewChallengeEvent struct {
	ClaimNum       *big.Int
	AuthorAddress  common.Address
	Outcome        uint8
	CurrentOutcome uint8
	Stake          *big.Int
	YesStake       *big.Int
	NoStake        *big.Int
	ExpiryTs       uint32
}

// EventTopic returns the topic hash for a bridge event by name.
func EventTopic(name string) (common.Hash, error) {
	if err := initABI(); err != nil {
		return common.Hash{}, err
	}
	ev, ok := bridgeABI.Events[name]
	if !ok {
		return common.Hash{}, fmt.Errorf("%w: no event %q", ErrInvalidInput, name)
	}
	return ev.ID, nil
}

func unpackLog(out any, name string, lg types.Log) error {
	if err := initABI(); err != nil {
		return err
	}
	ev, ok := bridgeABI.Events[name]
	if !ok {
		return fmt.Errorf("%w: no event %q", ErrInvalidInput, name)
	}
	if len(lg.Topics) == 0 || lg.Topics[0] != ev.ID {
		return fmt.Errorf("%w: log topic does not match %s", ErrInvalidInput, name)
	}
	if err := bridgeABI.UnpackIntoInterface(out, name, lg.Data); err != nil {
		return fmt.Errorf("bridgeabi: unpack %s: %w", name, err)
	}
	return nil
}

func ParseNewClaim(lg types.Log) (NewClaimEvent, error) {
	var ev NewClaimEvent
	if err := unpackLog(&ev, "NewClaim", lg); err != nil {
		return NewClaimEvent{}, err
	}
	return ev, nil
}

func ParseNewExpatriation(lg types.Log) (NewExpatriationEvent, error) {
	var ev NewExpatriationEvent
	if err := unpackLog(&ev, "NewExpatriation", lg); err != nil {
		return NewExpatriationEvent{}, err
	}
	return ev, nil
}

func ParseNewRepatriation(lg types.Log) (NewRepatriationEvent, error) {
	var ev NewRepatriationEvent
	if err := unpackLog(&ev, "NewRepatriation", lg); err != nil {
		return NewRepatriationEvent{}, err
	}
	return ev, nil
}

func ParseNewChallenge(lg types.Log) (NewChallengeEvent, error) {
	var ev NewChallengeEvent
	if err := unpackLog(&ev, "NewChallenge", lg); err != nil {
		return NewChallengeEvent{}, err
	}
	return ev, nil
}
