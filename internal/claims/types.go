package claims

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/counterstake/bridge-client/internal/amount"
	"github.com/counterstake/bridge-client/internal/network"
)

// Outcome is the binary claim outcome space.
type Outcome uint8

const (
	OutcomeNo  Outcome = 0
	OutcomeYes Outcome = 1
)

func (o Outcome) String() string {
	if o == OutcomeYes {
		return "YES"
	}
	return "NO"
}

// Opposite returns the only outcome a claim can currently be challenged with.
func (o Outcome) Opposite() Outcome {
	return 1 - o
}

// Claim is reconstructed from chain logs, never persisted. All numeric
// fields are canonical decimal strings in the token's smallest unit.
type Claim struct {
	ID [32]byte `json:"id"`

	// DisplayNum is the 1-based enumeration index, assigned per scan and
	// meaningful only for presentation.
	DisplayNum int `json:"displayNum"`
	// ClaimNum is the on-chain claim number. Challenge and withdraw
	// calldata must carry this number, never DisplayNum.
	ClaimNum string `json:"claimNum"`

	NetworkKey    string             `json:"network"`
	BridgeAddress common.Address     `json:"bridgeAddress"`
	BridgeType    network.BridgeType `json:"bridgeType"`
	TokenSymbol   string             `json:"tokenSymbol"`
	TokenAddress  common.Address     `json:"tokenAddress"`

	SenderAddress    string         `json:"senderAddress"`
	RecipientAddress common.Address `json:"recipientAddress"`
	AuthorAddress    common.Address `json:"authorAddress"`

	Txid string `json:"txid"`
	Txts uint32 `json:"txts"`

	Amount string `json:"amount"`
	Reward string `json:"reward"`

	CurrentOutcome Outcome `json:"currentOutcome"`
	YesStake       string  `json:"yesStake"`
	NoStake        string  `json:"noStake"`

	ExpiryTs uint32 `json:"expiryTs"`
	Finished bool   `json:"finished"`
	// Withdrawn requires the withdrawal receipt; scans leave it false and
	// callers needing it query the contract directly.
	Withdrawn bool `json:"withdrawn"`

	Data string `json:"data,omitempty"`

	BlockNumber uint64      `json:"blockNumber"`
	TxHash      common.Hash `json:"transactionHash"`
}

// CurrentOutcomeStake returns the stake currently backing the winning
// outcome, in smallest units.
func (c Claim) CurrentOutcomeStake() *big.Int {
	if c.CurrentOutcome == OutcomeYes {
		return amount.MustBig(c.YesStake)
	}
	return amount.MustBig(c.NoStake)
}

// BigClaimNum parses the on-chain claim number for calldata packing.
func (c Claim) BigClaimNum() *big.Int {
	return amount.MustBig(c.ClaimNum)
}

// Transfer is reconstructed from NewExpatriation/NewRepatriation logs.
type Transfer struct {
	ID [32]byte `json:"id"`

	// EventType is "expatriation" or "repatriation".
	EventType string `json:"eventType"`

	NetworkKey    string             `json:"network"`
	BridgeAddress common.Address     `json:"bridgeAddress"`
	BridgeType    network.BridgeType `json:"bridgeType"`

	SenderAddress common.Address `json:"senderAddress"`
	Amount        string         `json:"amount"`
	Reward        string         `json:"reward"`

	// Exactly one of ForeignAddress / HomeAddress is set, per direction.
	ForeignAddress string `json:"foreignAddress,omitempty"`
	HomeAddress    string `json:"homeAddress,omitempty"`

	Data string `json:"data,omitempty"`

	BlockNumber uint64      `json:"blockNumber"`
	TxHash      common.Hash `json:"transactionHash"`
	LogIndex    uint        `json:"logIndex"`
}

const (
	EventExpatriation = "expatriation"
	EventRepatriation = "repatriation"
)
