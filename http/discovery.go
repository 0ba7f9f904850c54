package http

import (
	"github.com/x402apes/mintgate"
)

// PaymentRequired is the body of an HTTP 402 discovery response: the
// machine-readable advertisement of how to pay for a resource.
type PaymentRequired struct {
	X402Version int             `json:"x402Version"`
	Accepts     []PaymentOption `json:"accepts"`
}

// PaymentOption describes one acceptable way to pay.
type PaymentOption struct {
	Scheme            string                 `json:"scheme"`
	Network           string                 `json:"network"`
	MaxAmountRequired string                 `json:"maxAmountRequired"`
	Resource          string                 `json:"resource"`
	Description       string                 `json:"description"`
	MimeType          string                 `json:"mimeType"`
	PayTo             string                 `json:"payTo"`
	MaxTimeoutSeconds int                    `json:"maxTimeoutSeconds"`
	Asset             string                 `json:"asset"`
	OutputSchema      map[string]interface{} `json:"outputSchema,omitempty"`
	Extra             map[string]interface{} `json:"extra,omitempty"`
}

func baseOption(cfg *mintgate.Config) PaymentOption {
	return PaymentOption{
		Scheme:            "exact",
		Network:           cfg.Network,
		MaxAmountRequired: cfg.Price.String(),
		Resource:          cfg.Resource,
		MimeType:          "application/json",
		PayTo:             cfg.Treasury.Hex(),
		MaxTimeoutSeconds: cfg.MaxTimeoutSeconds(),
		Asset:             cfg.Asset,
	}
}

// mintDiscovery advertises the combined pay-and-mint resource. The txHash
// body field is optional here: the payment layer fills it in after payment.
func mintDiscovery(cfg *mintgate.Config) PaymentRequired {
	opt := baseOption(cfg)
	opt.Description = "Mint one x402Apes NFT automatically after USDC payment confirmation."
	opt.OutputSchema = map[string]interface{}{
		"input": map[string]interface{}{
			"type":     "http",
			"method":   "POST",
			"bodyType": "json",
			"bodyFields": map[string]interface{}{
				"txHash": map[string]interface{}{
					"type":        "string",
					"required":    false,
					"description": "Filled automatically by x402 after payment. Leave empty.",
				},
				"resource": map[string]interface{}{
					"type":        "string",
					"required":    false,
					"description": "Optional echo of the resource id.",
				},
			},
			"headerFields": map[string]interface{}{
				"x-402-txhash": map[string]interface{}{
					"type":        "string",
					"required":    false,
					"description": "Alternative place where x402 may send the txHash.",
				},
			},
		},
		"output": map[string]interface{}{
			"ok":        true,
			"mintedTo":  "0x...",
			"nftTxHash": "0x...",
			"note":      "Mint completed.",
		},
	}
	opt.Extra = map[string]interface{}{
		"project":       "x402Apes",
		"autoConfirm":   true,
		"onePerPayment": true,
	}
	return PaymentRequired{X402Version: cfg.X402Version, Accepts: []PaymentOption{opt}}
}

// payDiscovery advertises the payment-only resource: the client just pays,
// then confirms separately with the resulting txHash.
func payDiscovery(cfg *mintgate.Config) PaymentRequired {
	opt := baseOption(cfg)
	opt.Resource = "pay:x402apes:usdc10"
	opt.Description = "Pay the x402Apes treasury in USDC. After paying, use the confirm endpoint with the txHash to mint."
	opt.OutputSchema = map[string]interface{}{
		"input":  map[string]interface{}{"type": "http", "method": "POST", "bodyType": "json"},
		"output": map[string]interface{}{"ok": true, "note": "Payment completed. Now call the confirm endpoint with txHash."},
	}
	opt.Extra = map[string]interface{}{
		"project": "x402Apes",
		"type":    "payment-only",
	}
	return PaymentRequired{X402Version: cfg.X402Version, Accepts: []PaymentOption{opt}}
}

// confirmDiscovery advertises the confirmation resource. It charges nothing
// itself; it verifies an already-made payment by txHash.
func confirmDiscovery(cfg *mintgate.Config) PaymentRequired {
	opt := baseOption(cfg)
	opt.MaxAmountRequired = "0"
	opt.Resource = "confirm:x402apes:mint"
	opt.Description = "Confirm a USDC payment by txHash and mint one x402Apes NFT to the payer."
	opt.OutputSchema = map[string]interface{}{
		"input": map[string]interface{}{
			"type":     "http",
			"method":   "POST",
			"bodyType": "json",
			"bodyFields": map[string]interface{}{
				"txHash": map[string]interface{}{
					"type":        "string",
					"required":    true,
					"description": "USDC payment tx hash. Must be a Transfer to the treasury.",
				},
			},
		},
		"output": map[string]interface{}{
			"ok":        true,
			"mintedTo":  "0x...",
			"nftTxHash": "0x...",
			"note":      "Mint completed.",
		},
	}
	opt.Extra = map[string]interface{}{
		"project": "x402Apes",
		"type":    "confirmation-only",
	}
	return PaymentRequired{X402Version: cfg.X402Version, Accepts: []PaymentOption{opt}}
}
