package mintgate

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// PaymentClaim is the untrusted input to the mint pipeline: the hash of a
// transaction the caller says paid the treasury.
type PaymentClaim struct {
	TxHash string `json:"txHash"`
}

// MintResult is the confirmed outcome of a mint submission.
type MintResult struct {
	Recipient  common.Address `json:"recipient"`
	MintTxHash common.Hash    `json:"mintTxHash"`
}

// MintOutcome is what ProcessPayment returns on success. AlreadyProcessed is
// set when the claim had completed before this call; the embedded result is
// then the one recorded at first completion.
type MintOutcome struct {
	MintedTo         common.Address
	MintTxHash       common.Hash
	AlreadyProcessed bool
}

// ErrReceiptNotFound is returned by LedgerClient.Receipt when the network has
// no record of the transaction, including transactions still pending.
var ErrReceiptNotFound = errors.New("transaction receipt not found")

// PendingMint is the handle for a submitted but unconfirmed mint call.
type PendingMint interface {
	// TxHash returns the hash of the submitted mint transaction.
	TxHash() common.Hash

	// Wait blocks until the transaction is mined, then reports its outcome.
	// A mined-but-reverted transaction is an error, not a result.
	Wait(ctx context.Context) (*MintResult, error)
}

// LedgerClient is the read/write boundary to the chain. Implementations
// hold the one signing identity used for mint submissions.
//
// SubmitMint performs exactly one state-changing call per invocation and
// must not be called concurrently from the same signing identity; the
// orchestrator serializes calls through a SubmitQueue.
type LedgerClient interface {
	// Receipt fetches the finalized outcome of a transaction.
	// Returns ErrReceiptNotFound if the network has no record of it.
	Receipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)

	// SubmitMint submits a mint of quantity tokens to payer and returns a
	// handle for awaiting confirmation.
	SubmitMint(ctx context.Context, payer common.Address, quantity *big.Int) (PendingMint, error)

	// ContractOwner reads the registered owner of the mint contract.
	ContractOwner(ctx context.Context) (common.Address, error)

	// SignerAddress returns the address of the signing identity.
	SignerAddress() common.Address
}
