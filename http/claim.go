package http

import "github.com/gin-gonic/gin"

// claimRequest is the POST body of the mint/confirm endpoints. Both fields
// are optional at the wire level; txHash may arrive via header or query
// instead.
type claimRequest struct {
	TxHash   string `json:"txHash"`
	Resource string `json:"resource"`
}

// txHashHeaders are checked in order when the body carries no txHash.
// Payment layers differ in which spelling they send.
var txHashHeaders = []string{"x-402-txhash", "x-402-tx-hash", "x-tx-hash"}

// extractTxHash resolves the claimed transaction hash from body, headers or
// query string, in that precedence.
func extractTxHash(c *gin.Context, body claimRequest) string {
	if body.TxHash != "" {
		return body.TxHash
	}
	for _, h := range txHashHeaders {
		if v := c.GetHeader(h); v != "" {
			return v
		}
	}
	return c.Query("txHash")
}
