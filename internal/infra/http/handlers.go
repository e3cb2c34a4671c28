package http

import (
	"errors"
	"net/http"

	"mintgate/internal/domain"
	"mintgate/internal/infra/custody"
	"mintgate/internal/infra/logging"
	"mintgate/internal/usecase"

	"github.com/gin-gonic/gin"
)

const (
	maxRequestBodyBytes = 16 << 10
	mintPath            = "/api/mint"
)

type mintRequest struct {
	Address string `json:"address"`
	Token   string `json:"token"`
}

type mintResponse struct {
	Result custody.VoucherPayload `json:"result"`
}

func (s *Server) handleMint(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		c.Header("Allow", http.MethodPost)
		writeEmpty(c, http.StatusMethodNotAllowed)
		return
	}
	if s.initErr != nil || s.issueUC == nil {
		writeEmpty(c, http.StatusInternalServerError)
		return
	}
	if !s.enforceRateLimit(c, routeMint) {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBodyBytes)
	var req mintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeEmpty(c, http.StatusBadRequest)
		return
	}

	resp, err := s.issueUC.Execute(c.Request.Context(), usecase.IssueVoucherRequest{
		RequestID: logging.RequestIDFrom(c),
		Raw: domain.RawMintRequest{
			Address: req.Address,
			Token:   req.Token,
		},
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, mintResponse{Result: custody.EncodeVoucher(resp.Voucher)})
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.initErr != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "misconfigured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"signer_mode": s.signerMode,
		"audit":       s.store.Enabled(),
		"counters":    limiterStatus(c.Request.Context(), s.counters),
	})
}

// writeError never puts error detail on the wire; callers only see a status.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var upstream *domain.UpstreamStatusError
	switch {
	case errors.As(err, &upstream):
		if upstream.StatusCode >= 100 && upstream.StatusCode <= 999 {
			status = upstream.StatusCode
		}
	case errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrAdmissionRejected),
		errors.Is(err, domain.ErrAdmissionUnavailable):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrPolicyDenied):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrQuotaExceeded):
		status = http.StatusTooManyRequests
	}
	writeEmpty(c, status)
}

func writeEmpty(c *gin.Context, status int) {
	c.JSON(status, gin.H{})
}

// handleGatewayNoRoute catches methods gin's Any does not register, such as
// WebDAV verbs, so every non-POST on the mint path still gets a 405.
func (s *Server) handleGatewayNoRoute(c *gin.Context) {
	if c.Request.URL.Path == mintPath {
		s.handleMint(c)
		return
	}
	handleNoRoute(c)
}

func handleNoRoute(c *gin.Context) {
	writeEmpty(c, http.StatusNotFound)
}
