// Package http exposes the mint service over HTTP: x402 discovery documents
// on GET, payment claims on POST. All payment semantics live in the core;
// this layer only shapes requests and responses.
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/x402apes/mintgate"
)

// Server wires the mint service into a gin router.
type Server struct {
	svc *mintgate.MintService
	cfg *mintgate.Config
	log zerolog.Logger
}

// NewServer creates the HTTP surface for a mint service.
func NewServer(svc *mintgate.MintService, cfg *mintgate.Config, log zerolog.Logger) *Server {
	return &Server{svc: svc, cfg: cfg, log: log}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.Header("Allow", "GET, POST")
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	r.GET("/api/mint", s.discover(mintDiscovery))
	r.POST("/api/mint", s.handleClaim)

	r.GET("/api/pay", s.discover(payDiscovery))
	r.POST("/api/pay", func(c *gin.Context) {
		// The payment itself is executed by the client's payment layer;
		// there is no txHash at this step.
		c.JSON(http.StatusOK, gin.H{
			"ok":   true,
			"note": "USDC payment executed by x402. Next: use the confirm endpoint with the txHash to mint.",
		})
	})

	r.GET("/api/confirm", s.discover(confirmDiscovery))
	r.POST("/api/confirm", s.handleClaim)

	r.POST("/api/notify", s.handleClaim)

	return r
}

// discover serves a 402 discovery document. The 402 status is load-bearing:
// indexers treat anything else as a non-paid resource.
func (s *Server) discover(doc func(*mintgate.Config) PaymentRequired) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusPaymentRequired, doc(s.cfg))
	}
}

// handleClaim runs a payment claim through the mint service.
func (s *Server) handleClaim(c *gin.Context) {
	var body claimRequest
	// An empty or non-JSON body is fine; the txHash may be elsewhere.
	_ = c.ShouldBindJSON(&body)

	if body.Resource != "" && body.Resource != s.cfg.Resource {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid resource"})
		return
	}

	txHash := extractTxHash(c, body)
	if txHash == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Missing txHash",
			"hint":  "Approve the payment first; the payment layer sends txHash automatically.",
		})
		return
	}

	outcome, err := s.svc.ProcessPayment(c.Request.Context(), mintgate.PaymentClaim{TxHash: txHash})
	if err != nil {
		s.renderError(c, err)
		return
	}

	if outcome.AlreadyProcessed {
		c.JSON(http.StatusOK, gin.H{
			"ok":        true,
			"note":      "Already processed",
			"txHash":    txHash,
			"mintedTo":  outcome.MintedTo.Hex(),
			"nftTxHash": outcome.MintTxHash.Hex(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"mintedTo":  outcome.MintedTo.Hex(),
		"nftTxHash": outcome.MintTxHash.Hex(),
		"note":      "Minted automatically after USDC payment confirmation.",
	})
}

// renderError maps the core's error taxonomy onto HTTP statuses: claim
// rejections are the caller's fault, transient failures invite a retry,
// misconfiguration is the operator's problem.
func (s *Server) renderError(c *gin.Context, err error) {
	var me *mintgate.MintError
	if !errors.As(err, &me) {
		s.log.Error().Err(err).Str("path", c.FullPath()).Msg("claim failed on infrastructure")
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream failure, try again later"})
		return
	}

	status := http.StatusBadRequest
	switch {
	case me.Retryable():
		status = http.StatusServiceUnavailable
	case me.Fatal():
		status = http.StatusInternalServerError
		s.log.Error().
			Str("code", me.Code).
			Interface("details", me.Details).
			Msg("mint service misconfigured")
	}

	resp := gin.H{"error": me.Message, "code": me.Code}
	if me.Fatal() {
		resp["x402Version"] = s.cfg.X402Version
		resp["details"] = me.Details
	}
	c.JSON(status, resp)
}
