// Package mintgate verifies stablecoin payments on an EVM chain and mints
// one collectible token per qualifying payment, exactly once.
package mintgate

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/x402apes/mintgate/idempotency"
	"github.com/x402apes/mintgate/verify"
)

var txHashPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// One token per qualifying payment, by policy.
var mintQuantity = big.NewInt(1)

// MintService orchestrates a payment claim from validation through
// confirmed mint: validate the hash, check the processed set, fetch and
// verify the receipt, precheck contract ownership, then submit the mint
// through the serialized queue and record completion.
type MintService struct {
	ledger LedgerClient
	store  idempotency.Store[MintResult]
	queue  *SubmitQueue
	cfg    *Config
	log    zerolog.Logger
}

// ServiceOption configures a MintService.
type ServiceOption func(*MintService)

// WithLogger sets the service logger. Default: a disabled logger.
func WithLogger(log zerolog.Logger) ServiceOption {
	return func(s *MintService) {
		s.log = log
	}
}

// WithQueue shares a submission queue across services. Needed only when
// several services submit through the same signing identity.
func WithQueue(q *SubmitQueue) ServiceOption {
	return func(s *MintService) {
		s.queue = q
	}
}

// NewMintService creates the orchestrator.
func NewMintService(ledger LedgerClient, store idempotency.Store[MintResult], cfg *Config, opts ...ServiceOption) *MintService {
	s := &MintService{
		ledger: ledger,
		store:  store,
		queue:  NewSubmitQueue(),
		cfg:    cfg,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProcessPayment runs one payment claim to a terminal state.
//
// Returns a MintOutcome on success, including the already-processed case
// (same recipient and mint hash as the first completion). Failures are
// either a *MintError carrying the rejection/retry classification, or a
// plain error for infrastructure faults the caller should treat as
// transient.
//
// Safe for concurrent use: claims for distinct transactions proceed in
// parallel, claims for the same transaction are collapsed onto a single
// mint attempt.
func (s *MintService) ProcessPayment(ctx context.Context, claim PaymentClaim) (*MintOutcome, error) {
	if !txHashPattern.MatchString(claim.TxHash) {
		return nil, NewMintError(ErrCodeInvalidClaim, "txHash must be a 0x-prefixed 32-byte hex string", nil)
	}
	key := strings.ToLower(claim.TxHash)

	log := s.log.With().
		Str("claim_id", uuid.NewString()).
		Str("tx_hash", key).
		Logger()

	status, prior, done, err := s.store.CheckAndMark(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("check processed set: %w", err)
	}

	switch status {
	case idempotency.StatusProcessed:
		log.Debug().Str("mint_tx", prior.MintTxHash.Hex()).Msg("claim already processed")
		return alreadyProcessed(prior), nil

	case idempotency.StatusInFlight:
		log.Debug().Msg("claim in flight elsewhere, waiting")
		prior, err := s.store.WaitForResult(ctx, key, done)
		if err != nil {
			return nil, fmt.Errorf("wait for in-flight claim: %w", err)
		}
		if prior != nil {
			return alreadyProcessed(prior), nil
		}
		// The in-flight attempt failed; the claim is eligible again.
		return s.ProcessPayment(ctx, claim)

	case idempotency.StatusNotFound:
		// This task owns the claim.
	}

	outcome, err := s.mint(ctx, log, claim)
	if err != nil {
		if failErr := s.store.Fail(ctx, key, done); failErr != nil {
			log.Error().Err(failErr).Msg("failed to release claim reservation")
		}
		return nil, err
	}

	result := &MintResult{Recipient: outcome.MintedTo, MintTxHash: outcome.MintTxHash}
	if err := s.store.Complete(ctx, key, result, done); err != nil {
		// The mint is confirmed on chain; a store failure must not turn it
		// into a client-visible error. But with no record, a repeat of this
		// claim can mint again once the reservation ages out. The window is
		// bounded by the reservation TTL; nothing re-checks mint state on
		// chain.
		log.Error().Err(err).Msg("mint confirmed but not recorded; duplicate claims may mint again")
	}
	log.Info().
		Str("minted_to", outcome.MintedTo.Hex()).
		Str("mint_tx", outcome.MintTxHash.Hex()).
		Msg("mint confirmed")
	return outcome, nil
}

// mint carries a reserved claim through verification, the ownership
// precheck and the serialized submission.
func (s *MintService) mint(ctx context.Context, log zerolog.Logger, claim PaymentClaim) (*MintOutcome, error) {
	record, err := s.verifyPayment(ctx, claim)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Str("payer", record.Payer.Hex()).
		Str("amount_paid", record.AmountPaid.String()).
		Msg("payment verified")

	if err := s.checkOwnership(ctx); err != nil {
		return nil, err
	}

	if err := s.queue.Acquire(ctx); err != nil {
		return nil, NewMintError(ErrCodeSubmissionFailed,
			"timed out waiting for the submission slot", nil)
	}
	defer s.queue.Release()

	pending, err := s.ledger.SubmitMint(ctx, record.Payer, mintQuantity)
	if err != nil {
		return nil, NewMintError(ErrCodeSubmissionFailed,
			fmt.Sprintf("mint submission rejected: %v", err), nil)
	}
	log.Info().Str("mint_tx", pending.TxHash().Hex()).Msg("mint submitted")

	confirmCtx, cancel := context.WithTimeout(ctx, s.cfg.ConfirmTimeout)
	defer cancel()

	result, err := pending.Wait(confirmCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, NewMintError(ErrCodeConfirmationTimeout,
				fmt.Sprintf("mint %s not confirmed within %s", pending.TxHash().Hex(), s.cfg.ConfirmTimeout),
				nil)
		}
		return nil, NewMintError(ErrCodeSubmissionFailed,
			fmt.Sprintf("mint confirmation failed: %v", err), nil)
	}

	return &MintOutcome{MintedTo: result.Recipient, MintTxHash: result.MintTxHash}, nil
}

// verifyPayment fetches the receipt and derives the payment record.
func (s *MintService) verifyPayment(ctx context.Context, claim PaymentClaim) (*verify.Record, error) {
	receiptCtx, cancel := context.WithTimeout(ctx, s.cfg.ReceiptTimeout)
	defer cancel()

	receipt, err := s.ledger.Receipt(receiptCtx, common.HexToHash(claim.TxHash))
	if err != nil {
		if errors.Is(err, ErrReceiptNotFound) {
			return nil, NewMintError(ErrCodeReceiptNotFound,
				"transaction not found; it may still be pending", nil)
		}
		return nil, fmt.Errorf("fetch receipt: %w", err)
	}

	record, err := verify.Payment(receipt, verify.Params{
		Token:    s.cfg.PaymentToken,
		Treasury: s.cfg.Treasury,
		Price:    s.cfg.Price,
	})
	if err != nil {
		switch {
		case errors.Is(err, verify.ErrTransactionFailed):
			return nil, NewMintError(ErrCodeTransactionFailed, "claimed transaction failed on chain", nil)
		case errors.Is(err, verify.ErrNoQualifyingPayment):
			return nil, NewMintError(ErrCodeNoQualifyingPayment,
				"no payment-token transfer to the treasury found in transaction", nil)
		case errors.Is(err, verify.ErrInsufficientAmount):
			return nil, NewMintError(ErrCodeInsufficientAmount, err.Error(), nil)
		default:
			return nil, NewMintError(ErrCodeInvalidClaim, err.Error(), nil)
		}
	}
	return record, nil
}

// checkOwnership enforces that the signing identity is the registered owner
// of the mint contract. A mismatch is an operator problem, not a claim
// problem.
func (s *MintService) checkOwnership(ctx context.Context) error {
	owner, err := s.ledger.ContractOwner(ctx)
	if err != nil {
		return fmt.Errorf("read contract owner: %w", err)
	}
	signer := s.ledger.SignerAddress()
	if owner != signer {
		return NewMintError(ErrCodeMisconfigured,
			"signing identity is not the mint contract owner",
			map[string]interface{}{
				"onchainOwner": owner.Hex(),
				"signer":       signer.Hex(),
				"contract":     s.cfg.MintContract.Hex(),
			})
	}
	return nil
}

func alreadyProcessed(result *MintResult) *MintOutcome {
	return &MintOutcome{
		MintedTo:         result.Recipient,
		MintTxHash:       result.MintTxHash,
		AlreadyProcessed: true,
	}
}
