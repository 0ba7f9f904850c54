// Package chain implements the ledger boundary over an EVM JSON-RPC
// endpoint using go-ethereum.
package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/x402apes/mintgate"
)

// Minimal ABI for the mint contract: the owner-gated mint entrypoint and the
// owner read used for the precondition check.
const mintContractABI = `[
	{"inputs":[{"name":"payer","type":"address"},{"name":"quantity","type":"uint256"}],"name":"mintAfterPayment","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[],"name":"owner","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"}
]`

// Client talks to the chain with a single signing identity. It implements
// mintgate.LedgerClient.
type Client struct {
	eth         *ethclient.Client
	contractABI abi.ABI

	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    *big.Int

	contract common.Address
	gasLimit uint64
}

// Dial connects to rpcURL and prepares the signing identity from a
// hex-encoded private key (with or without "0x" prefix).
func Dial(ctx context.Context, rpcURL, privateKeyHex string, contract common.Address, gasLimit uint64) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain id: %w", err)
	}

	contractABI, err := abi.JSON(strings.NewReader(mintContractABI))
	if err != nil {
		return nil, fmt.Errorf("parse mint ABI: %w", err)
	}

	return &Client{
		eth:         eth,
		contractABI: contractABI,
		privateKey:  privateKey,
		address:     crypto.PubkeyToAddress(privateKey.PublicKey),
		chainID:     chainID,
		contract:    contract,
		gasLimit:    gasLimit,
	}, nil
}

// SignerAddress returns the address of the signing identity.
func (c *Client) SignerAddress() common.Address {
	return c.address
}

// Receipt fetches the finalized outcome of a transaction. Pending and
// unknown transactions both surface as mintgate.ErrReceiptNotFound.
func (c *Client) Receipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	receipt, err := c.eth.TransactionReceipt(ctx, txHash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, mintgate.ErrReceiptNotFound
		}
		return nil, fmt.Errorf("fetch receipt %s: %w", txHash.Hex(), err)
	}
	return receipt, nil
}

// ContractOwner reads owner() from the mint contract.
func (c *Client) ContractOwner(ctx context.Context) (common.Address, error) {
	data, err := c.contractABI.Pack("owner")
	if err != nil {
		return common.Address{}, fmt.Errorf("pack owner call: %w", err)
	}

	result, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &c.contract, Data: data}, nil)
	if err != nil {
		return common.Address{}, fmt.Errorf("owner call: %w", err)
	}

	outputs, err := c.contractABI.Unpack("owner", result)
	if err != nil {
		return common.Address{}, fmt.Errorf("unpack owner result: %w", err)
	}
	owner, ok := outputs[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("owner result is not an address")
	}
	return owner, nil
}

// SubmitMint signs and sends one mintAfterPayment(payer, quantity) call.
// Callers must serialize invocations; the nonce is read from pending state
// at submission time.
func (c *Client) SubmitMint(ctx context.Context, payer common.Address, quantity *big.Int) (mintgate.PendingMint, error) {
	data, err := c.contractABI.Pack("mintAfterPayment", payer, quantity)
	if err != nil {
		return nil, fmt.Errorf("pack mint call: %w", err)
	}

	nonce, err := c.eth.PendingNonceAt(ctx, c.address)
	if err != nil {
		return nil, fmt.Errorf("pending nonce: %w", err)
	}

	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("gas price: %w", err)
	}

	tx := types.NewTransaction(nonce, c.contract, big.NewInt(0), c.gasLimit, gasPrice, data)

	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.privateKey)
	if err != nil {
		return nil, fmt.Errorf("sign mint tx: %w", err)
	}

	if err := c.eth.SendTransaction(ctx, signedTx); err != nil {
		return nil, fmt.Errorf("send mint tx: %w", err)
	}

	return &pendingMint{eth: c.eth, tx: signedTx, payer: payer}, nil
}

// pendingMint is a submitted mint awaiting confirmation.
type pendingMint struct {
	eth   *ethclient.Client
	tx    *types.Transaction
	payer common.Address
}

func (p *pendingMint) TxHash() common.Hash {
	return p.tx.Hash()
}

// Wait blocks until the mint is mined. A reverted mint is an error.
func (p *pendingMint) Wait(ctx context.Context) (*mintgate.MintResult, error) {
	receipt, err := bind.WaitMined(ctx, p.eth, p.tx)
	if err != nil {
		return nil, fmt.Errorf("await mint %s: %w", p.tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("mint %s reverted", p.tx.Hash().Hex())
	}
	return &mintgate.MintResult{
		Recipient:  p.payer,
		MintTxHash: receipt.TxHash,
	}, nil
}

var (
	_ mintgate.LedgerClient = (*Client)(nil)
	_ mintgate.PendingMint  = (*pendingMint)(nil)
)
