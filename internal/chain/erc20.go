package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const erc20BalanceOfABIJSON = `[
  {"inputs": [{"internalType": "address", "name": "account", "type": "address"}], "name": "balanceOf", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

var (
	balanceOfABI    abi.ABI
	balanceOfOnce   sync.Once
	balanceOfABIErr error
)

func getBalanceOfABI() (abi.ABI, error) {
	balanceOfOnce.Do(func() {
		balanceOfABI, balanceOfABIErr = abi.JSON(strings.NewReader(erc20BalanceOfABIJSON))
	})
	return balanceOfABI, balanceOfABIErr
}

// BalanceOf returns the ERC-20 token balance of owner at the given block.
// A nil block number queries the latest state.
func (c *Client) BalanceOf(ctx context.Context, token common.Address, owner common.Address, blockNumber *big.Int) (*big.Int, error) {
	parsed, err := getBalanceOfABI()
	if err != nil {
		return nil, err
	}

	input, err := parsed.Pack("balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("pack balanceOf: %w", err)
	}

	output, err := c.CallContract(ctx, ethereum.CallMsg{To: &token, Data: input}, blockNumber)
	if err != nil {
		return nil, err
	}

	results, err := parsed.Unpack("balanceOf", output)
	if err != nil {
		return nil, fmt.Errorf("unpack balanceOf: %w", err)
	}
	if len(results) != 1 {
		return nil, fmt.Errorf("unexpected balanceOf outputs: %d", len(results))
	}
	balance, ok := results[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf type %T", results[0])
	}
	return balance, nil
}
