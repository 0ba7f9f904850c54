// Package verify decides whether a transaction receipt contains a qualifying
// stablecoin payment to the treasury. It is a pure function of the receipt:
// no network access, no state.
package verify

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// ErrTransactionFailed means the claimed transaction reverted on chain.
	ErrTransactionFailed = errors.New("transaction failed on chain")
	// ErrNoQualifyingPayment means the receipt carries no token transfer to
	// the treasury.
	ErrNoQualifyingPayment = errors.New("no qualifying token transfer to treasury")
	// ErrInsufficientAmount means transfers to the treasury sum below the
	// required price.
	ErrInsufficientAmount = errors.New("insufficient amount")
)

var transferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// Transfer is a decoded ERC-20 Transfer event.
type Transfer struct {
	From  common.Address
	To    common.Address
	Value *big.Int
}

// DecodeTransfer decodes a log as an ERC-20 Transfer event. The second
// return is false for anything that does not have the expected shape;
// malformed or unrelated logs are not errors, they are simply not transfers.
func DecodeTransfer(lg *types.Log) (*Transfer, bool) {
	// topics: 0 event sig, 1 from (indexed), 2 to (indexed); value in data.
	if lg == nil || len(lg.Topics) < 3 || lg.Topics[0] != transferTopic {
		return nil, false
	}
	if len(lg.Data) < 32 {
		return nil, false
	}
	return &Transfer{
		From:  common.BytesToAddress(lg.Topics[1].Bytes()),
		To:    common.BytesToAddress(lg.Topics[2].Bytes()),
		Value: new(big.Int).SetBytes(lg.Data[:32]),
	}, true
}

// Params configures what counts as payment.
type Params struct {
	Token    common.Address // ERC-20 contract whose transfers qualify
	Treasury common.Address // destination that must be paid
	Price    *big.Int       // required total, smallest token unit
}

// Record is the derived payment: who paid, and how much reached the treasury.
type Record struct {
	Payer      common.Address
	AmountPaid *big.Int
}

// Payment scans a receipt for transfers of the payment token to the treasury.
//
// The payer is the sender of the first qualifying transfer in log order;
// qualifying transfers from other senders still count toward the total but
// do not change the payer. A relayer that forwards funds from an address
// other than the buyer's will therefore be credited as the payer.
func Payment(receipt *types.Receipt, p Params) (*Record, error) {
	if receipt == nil {
		return nil, fmt.Errorf("receipt required")
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, ErrTransactionFailed
	}

	var payer *common.Address
	paid := new(big.Int)

	for _, lg := range receipt.Logs {
		if lg == nil || lg.Address != p.Token {
			continue
		}
		transfer, ok := DecodeTransfer(lg)
		if !ok {
			continue
		}
		if transfer.To != p.Treasury {
			continue
		}
		paid.Add(paid, transfer.Value)
		if payer == nil {
			from := transfer.From
			payer = &from
		}
	}

	if payer == nil {
		return nil, ErrNoQualifyingPayment
	}
	if paid.Cmp(p.Price) < 0 {
		return nil, fmt.Errorf("%w: paid=%s required=%s", ErrInsufficientAmount, paid, p.Price)
	}

	return &Record{Payer: *payer, AmountPaid: paid}, nil
}
