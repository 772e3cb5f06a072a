// Package bridgeabi carries the counterstake bridge, assistant, ERC20, and
// batch-precompile ABI fragments the client needs, parsed once and shared.
package bridgeabi

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

var ErrInvalidInput = errors.New("bridgeabi: invalid input")

var (
	initOnce sync.Once
	initErr  error

	bridgeABI    abi.ABI
	assistantABI abi.ABI
	erc20ABI     abi.ABI
	batchABI     abi.ABI
)

func initABI() error {
	initOnce.Do(func() {
		parse := func(name, src string) (abi.ABI, bool) {
			a, err := abi.JSON(strings.NewReader(src))
			if err != nil {
				initErr = fmt.Errorf("bridgeabi: parse %s ABI: %w", name, err)
				return abi.ABI{}, false
			}
			return a, true
		}

		var ok bool
		if bridgeABI, ok = parse("bridge", bridgeABIJSON); !ok {
			return
		}
		if assistantABI, ok = parse("assistant", assistantABIJSON); !ok {
			return
		}
		if erc20ABI, ok = parse("erc20", erc20ABIJSON); !ok {
			return
		}
		batchABI, _ = parse("batch", batchABIJSON)
	})
	return initErr
}

const bridgeABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"internalType":"uint256","name":"claim_num","type":"uint256"},
      {"internalType":"address","name":"author_address","type":"address"},
      {"internalType":"string","name":"sender_address","type":"string"},
      {"internalType":"address","name":"recipient_address","type":"address"},
      {"internalType":"string","name":"txid","type":"string"},
      {"internalType":"uint32","name":"txts","type":"uint32"},
      {"internalType":"uint256","name":"amount","type":"uint256"},
      {"internalType":"int256","name":"reward","type":"int256"},
      {"internalType":"uint256","name":"stake","type":"uint256"},
      {"internalType":"string","name":"data","type":"string"},
      {"internalType":"uint32","name":"expiry_ts","type":"uint32"}
    ],
    "name":"NewClaim",
    "type":"event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"internalType":"address","name":"sender_address","type":"address"},
      {"internalType":"uint256","name":"amount","type":"uint256"},
      {"internalType":"int256","name":"reward","type":"int256"},
      {"internalType":"string","name":"foreign_address","type":"string"},
      {"internalType":"string","name":"data","type":"string"}
    ],
    "name":"NewExpatriation",
    "type":"event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"internalType":"address","name":"sender_address","type":"address"},
      {"internalType":"uint256","name":"amount","type":"uint256"},
      {"internalType":"uint256","name":"reward","type":"uint256"},
      {"internalType":"string","name":"home_address","type":"string"},
      {"internalType":"string","name":"data","type":"string"}
    ],
    "name":"NewRepatriation",
    "type":"event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"internalType":"uint256","name":"claim_num","type":"uint256"},
      {"internalType":"address","name":"author_address","type":"address"},
      {"internalType":"uint8","name":"outcome","type":"uint8"},
      {"internalType":"uint8","name":"current_outcome","type":"uint8"},
      {"internalType":"uint256","name":"stake","type":"uint256"},
      {"internalType":"uint256","name":"yes_stake","type":"uint256"},
      {"internalType":"uint256","name":"no_stake","type":"uint256"},
      {"internalType":"uint32","name":"expiry_ts","type":"uint32"}
    ],
    "name":"NewChallenge",
    "type":"event"
  },
  {
    "inputs": [
      {"internalType":"string","name":"txid","type":"string"},
      {"internalType":"uint32","name":"txts","type":"uint32"},
      {"internalType":"uint256","name":"amount","type":"uint256"},
      {"internalType":"int256","name":"reward","type":"int256"},
      {"internalType":"uint256","name":"stake","type":"uint256"},
      {"internalType":"string","name":"sender_address","type":"string"},
      {"internalType":"address","name":"recipient_address","type":"address"},
      {"internalType":"string","name":"data","type":"string"}
    ],
    "name":"claim",
    "outputs":[],
    "stateMutability":"payable",
    "type":"function"
  },
  {
    "inputs": [
      {"internalType":"uint256","name":"claim_num","type":"uint256"},
      {"internalType":"uint8","name":"stake_on","type":"uint8"},
      {"internalType":"uint256","name":"stake","type":"uint256"}
    ],
    "name":"challenge",
    "outputs":[],
    "stateMutability":"payable",
    "type":"function"
  },
  {
    "inputs": [{"internalType":"uint256","name":"claim_num","type":"uint256"}],
    "name":"withdraw",
    "outputs":[],
    "stateMutability":"nonpayable",
    "type":"function"
  },
  {
    "inputs": [],
    "name":"settings",
    "outputs": [
      {"internalType":"address","name":"tokenAddress","type":"address"},
      {"internalType":"uint16","name":"ratio100","type":"uint16"},
      {"internalType":"uint16","name":"counterstake_coef100","type":"uint16"},
      {"internalType":"uint32","name":"min_tx_age","type":"uint32"},
      {"internalType":"uint256","name":"min_stake","type":"uint256"},
      {"internalType":"uint256","name":"large_threshold","type":"uint256"}
    ],
    "stateMutability":"view",
    "type":"function"
  },
  {
    "inputs": [{"internalType":"uint256","name":"amount","type":"uint256"}],
    "name":"getRequiredStake",
    "outputs": [{"internalType":"uint256","name":"","type":"uint256"}],
    "stateMutability":"view",
    "type":"function"
  },
  {
    "inputs": [],
    "name":"last_claim_num",
    "outputs": [{"internalType":"uint64","name":"","type":"uint64"}],
    "stateMutability":"view",
    "type":"function"
  }
]`

const assistantABIJSON = `[
  {
    "inputs": [{"internalType":"uint256","name":"stake_asset_amount","type":"uint256"}],
    "name":"buyShares",
    "outputs":[],
    "stateMutability":"payable",
    "type":"function"
  },
  {
    "inputs": [
      {"internalType":"uint256","name":"stake_asset_amount","type":"uint256"},
      {"internalType":"uint256","name":"image_asset_amount","type":"uint256"}
    ],
    "name":"buyShares",
    "outputs":[],
    "stateMutability":"payable",
    "type":"function"
  },
  {
    "inputs": [{"internalType":"uint256","name":"net_shares_amount","type":"uint256"}],
    "name":"redeemShares",
    "outputs":[],
    "stateMutability":"nonpayable",
    "type":"function"
  },
  {
    "inputs": [],
    "name":"withdrawManagementFee",
    "outputs":[],
    "stateMutability":"nonpayable",
    "type":"function"
  },
  {
    "inputs": [],
    "name":"withdrawSuccessFee",
    "outputs":[],
    "stateMutability":"nonpayable",
    "type":"function"
  },
  {
    "inputs": [{"internalType":"address","name":"newManager","type":"address"}],
    "name":"assignNewManager",
    "outputs":[],
    "stateMutability":"nonpayable",
    "type":"function"
  },
  {
    "inputs": [],
    "name":"management_fee10000",
    "outputs": [{"internalType":"uint16","name":"","type":"uint16"}],
    "stateMutability":"view",
    "type":"function"
  },
  {
    "inputs": [],
    "name":"success_fee10000",
    "outputs": [{"internalType":"uint16","name":"","type":"uint16"}],
    "stateMutability":"view",
    "type":"function"
  },
  {
    "inputs": [],
    "name":"swap_fee10000",
    "outputs": [{"internalType":"uint16","name":"","type":"uint16"}],
    "stateMutability":"view",
    "type":"function"
  },
  {
    "inputs": [],
    "name":"managerAddress",
    "outputs": [{"internalType":"address","name":"","type":"address"}],
    "stateMutability":"view",
    "type":"function"
  }
]`

const erc20ABIJSON = `[
  {
    "inputs": [
      {"internalType":"address","name":"spender","type":"address"},
      {"internalType":"uint256","name":"amount","type":"uint256"}
    ],
    "name":"approve",
    "outputs": [{"internalType":"bool","name":"","type":"bool"}],
    "stateMutability":"nonpayable",
    "type":"function"
  },
  {
    "inputs": [
      {"internalType":"address","name":"owner","type":"address"},
      {"internalType":"address","name":"spender","type":"address"}
    ],
    "name":"allowance",
    "outputs": [{"internalType":"uint256","name":"","type":"uint256"}],
    "stateMutability":"view",
    "type":"function"
  },
  {
    "inputs": [{"internalType":"address","name":"account","type":"address"}],
    "name":"balanceOf",
    "outputs": [{"internalType":"uint256","name":"","type":"uint256"}],
    "stateMutability":"view",
    "type":"function"
  },
  {
    "inputs": [],
    "name":"decimals",
    "outputs": [{"internalType":"uint8","name":"","type":"uint8"}],
    "stateMutability":"view",
    "type":"function"
  }
]`

// batchABIJSON is the 3DPass Batch precompile, used to issue the two
// assistant approvals of a wrapped-import deposit in one transaction.
const batchABIJSON = `[
  {
    "inputs": [
      {"internalType":"address[]","name":"to","type":"address[]"},
      {"internalType":"uint256[]","name":"value","type":"uint256[]"},
      {"internalType":"bytes[]","name":"callData","type":"bytes[]"},
      {"internalType":"uint64[]","name":"gasLimit","type":"uint64[]"}
    ],
    "name":"batchAll",
    "outputs":[],
    "stateMutability":"nonpayable",
    "type":"function"
  }
]`
