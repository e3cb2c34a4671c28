package http

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"mintgate/internal/config"
	"mintgate/internal/domain"
	"mintgate/internal/infra/custody"
	"mintgate/internal/infra/logging"
	"mintgate/internal/infra/metrics"
	"mintgate/internal/infra/ratelimit"
	"mintgate/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CustodyServer is the remote signing task the gateway's webhook mode posts
// to. It holds the signing key and the execution quota.
type CustodyServer struct {
	cfg     config.Config
	r       *gin.Engine
	log     logrus.FieldLogger
	metrics *metrics.Recorder

	minter   usecase.Minter
	quota    domain.RateLimiter
	secret   string
	resource *domain.Address
	backend  string
	initErr  error
}

func NewCustodyServer(cfg config.Config, log logrus.FieldLogger) *CustodyServer {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &CustodyServer{
		cfg:     cfg,
		r:       r,
		log:     log,
		metrics: metrics.NewRecorder(),
		secret:  cfg.CustodyWebhookSecret,
	}
	s.initDeps()
	s.routes()
	return s
}

type CustodyDeps struct {
	Minter   usecase.Minter
	Secret   string
	Resource *domain.Address
	Metrics  *metrics.Recorder
	Log      logrus.FieldLogger
}

func NewCustodyServerWithDeps(cfg config.Config, deps CustodyDeps) *CustodyServer {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &CustodyServer{
		cfg:      cfg,
		r:        r,
		log:      deps.Log,
		metrics:  deps.Metrics,
		minter:   deps.Minter,
		secret:   deps.Secret,
		resource: deps.Resource,
	}
	if s.metrics == nil {
		s.metrics = metrics.NewRecorder()
	}
	s.routes()
	return s
}

func (s *CustodyServer) initDeps() {
	var errs []error
	if s.secret == "" {
		errs = append(errs, errors.New("CUSTODY_WEBHOOK_SECRET is required"))
	}
	if s.cfg.ResourceAddress != "" {
		resource, err := domain.ParseAddress(s.cfg.ResourceAddress)
		if err != nil {
			errs = append(errs, fmt.Errorf("NFT_ADDRESS: %w", err))
		} else {
			s.resource = &resource
		}
	}

	quota, err := ratelimit.NewQuotaFromConfig(s.cfg, nil)
	if err != nil {
		errs = append(errs, fmt.Errorf("quota store: %w", err))
	}
	s.quota = quota
	minter, backend, err := buildLocalMinter(s.cfg, s.metrics, quota)
	if err != nil {
		errs = append(errs, fmt.Errorf("signer: %w", err))
	} else {
		s.minter = minter
		s.backend = backend
	}
	s.initErr = errors.Join(errs...)
}

func (s *CustodyServer) routes() {
	s.r.Use(logging.RequestID(), logging.AccessLog(s.logger()))

	s.r.POST("/autotasks/:secret", s.handleAutotask)
	s.r.GET("/healthz", s.handleHealth)
	s.r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	s.r.NoRoute(handleNoRoute)
}

func (s *CustodyServer) InitErr() error {
	return s.initErr
}

func (s *CustodyServer) Handler() http.Handler {
	return s.r
}

func (s *CustodyServer) Close() error {
	return closeLimiter(s.quota)
}

func (s *CustodyServer) handleAutotask(c *gin.Context) {
	if s.secret == "" || subtle.ConstantTimeCompare([]byte(c.Param("secret")), []byte(s.secret)) != 1 {
		writeEmpty(c, http.StatusNotFound)
		return
	}
	runID := uuid.NewString()
	if s.initErr != nil || s.minter == nil {
		c.JSON(http.StatusInternalServerError, custody.TaskRun{RunID: runID, Status: "error", Message: "task not configured"})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBodyBytes)
	var req custody.MintTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, custody.TaskRun{RunID: runID, Status: "error", Message: "invalid request"})
		return
	}
	requester, err := domain.ParseAddress(req.UserAddress)
	if err != nil {
		c.JSON(http.StatusBadRequest, custody.TaskRun{RunID: runID, Status: "error", Message: "invalid userAddress"})
		return
	}
	resource, err := domain.ParseAddress(req.ContractAddress)
	if err != nil {
		c.JSON(http.StatusBadRequest, custody.TaskRun{RunID: runID, Status: "error", Message: "invalid contractAddress"})
		return
	}
	if s.resource != nil && resource != *s.resource {
		c.JSON(http.StatusBadRequest, custody.TaskRun{RunID: runID, Status: "error", Message: "contract not served"})
		return
	}

	entry := s.logger().WithFields(logrus.Fields{
		"request_id": logging.RequestIDFrom(c),
		"run_id":     runID,
		"requester":  requester.Hex(),
	})
	minted, err := s.minter.Mint(c.Request.Context(), requester, resource)
	if err != nil {
		stage := domain.StageSigned
		var stageErr *domain.StageError
		if errors.As(err, &stageErr) {
			stage = stageErr.Stage
		}
		s.metrics.ObserveIssuance(stage, usecase.OutcomeFor(err))
		entry.WithField("error_code", usecase.ErrorCode(err)).WithError(err).Error("task run failed")
		if errors.Is(err, domain.ErrQuotaExceeded) {
			c.JSON(http.StatusTooManyRequests, custody.TaskRun{RunID: runID, Status: "error", Message: "quota exceeded"})
			return
		}
		c.JSON(http.StatusOK, custody.TaskRun{RunID: runID, Status: "error", Message: "task run failed"})
		return
	}

	// The result travels as a JSON encoded string, as the hosted task
	// runner reports it.
	payload, err := json.Marshal(custody.EncodeVoucher(minted.Voucher))
	if err == nil {
		payload, err = json.Marshal(string(payload))
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, custody.TaskRun{RunID: runID, Status: "error", Message: "encode result"})
		return
	}
	s.metrics.ObserveIssuance(domain.StageResponded, domain.IssuanceIssued)
	if minted.Slot != nil {
		entry = entry.WithField("slot", minted.Slot.String())
	}
	entry.Info("task run succeeded")
	c.JSON(http.StatusOK, custody.TaskRun{RunID: runID, Status: custody.StatusSuccess, Result: payload})
}

func (s *CustodyServer) handleHealth(c *gin.Context) {
	if s.initErr != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "misconfigured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"key_backend": s.backend,
		"quota":       limiterStatus(c.Request.Context(), s.quota),
	})
}

func (s *CustodyServer) logger() logrus.FieldLogger {
	if s.log == nil {
		return logrus.StandardLogger()
	}
	return s.log
}
