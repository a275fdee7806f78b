package service

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// txFields is the JSON transaction object accepted by eth_sendTransaction
// and eth_signTransaction. Gas and nonce are trusted as prepared by the
// chain adapter upstream.
type txFields struct {
	From                 string          `json:"from"`
	To                   *common.Address `json:"to"`
	Value                *hexutil.Big    `json:"value"`
	Gas                  *hexutil.Uint64 `json:"gas"`
	GasPrice             *hexutil.Big    `json:"gasPrice"`
	MaxFeePerGas         *hexutil.Big    `json:"maxFeePerGas"`
	MaxPriorityFeePerGas *hexutil.Big    `json:"maxPriorityFeePerGas"`
	Nonce                *hexutil.Uint64 `json:"nonce"`
	Data                 hexutil.Bytes   `json:"data"`
	Input                hexutil.Bytes   `json:"input"`
}

// assemble builds the unsigned transaction. Fields carrying EIP-1559 fees
// produce a dynamic-fee transaction, anything else a legacy one.
func (f txFields) assemble(chainID *big.Int) (*types.Transaction, error) {
	value := new(big.Int)
	if f.Value != nil {
		value = (*big.Int)(f.Value)
	}
	var gas uint64
	if f.Gas != nil {
		gas = uint64(*f.Gas)
	}
	var nonce uint64
	if f.Nonce != nil {
		nonce = uint64(*f.Nonce)
	}
	data := []byte(f.Data)
	if len(data) == 0 {
		data = []byte(f.Input)
	}

	if f.MaxFeePerGas != nil || f.MaxPriorityFeePerGas != nil {
		feeCap := new(big.Int)
		if f.MaxFeePerGas != nil {
			feeCap = (*big.Int)(f.MaxFeePerGas)
		}
		tipCap := new(big.Int)
		if f.MaxPriorityFeePerGas != nil {
			tipCap = (*big.Int)(f.MaxPriorityFeePerGas)
		}
		return types.NewTx(&types.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     nonce,
			GasTipCap: tipCap,
			GasFeeCap: feeCap,
			Gas:       gas,
			To:        f.To,
			Value:     value,
			Data:      data,
		}), nil
	}

	gasPrice := new(big.Int)
	if f.GasPrice != nil {
		gasPrice = (*big.Int)(f.GasPrice)
	}
	return types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       f.To,
		Value:    value,
		Data:     data,
	}), nil
}

func (f txFields) toSummary() string {
	if f.To == nil {
		return "contract creation"
	}
	return f.To.Hex()
}
