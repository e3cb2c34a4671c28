package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"mintgate/internal/config"
	"mintgate/internal/domain"
	"mintgate/internal/infra/captcha"
	"mintgate/internal/infra/db"
	"mintgate/internal/infra/logging"
	"mintgate/internal/infra/metrics"
	"mintgate/internal/infra/policyopa"
	"mintgate/internal/infra/ratelimit"
	"mintgate/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Server struct {
	cfg   config.Config
	store *db.Store
	r     *gin.Engine
	log   logrus.FieldLogger

	issueUC    *usecase.IssueVoucher
	metrics    *metrics.Recorder
	signerMode string
	initErr    error

	counters            domain.RateLimiter
	quota               domain.RateLimiter
	rateLimiter         domain.RateLimiter
	rateLimitRequests   int
	rateLimitWindow     time.Duration
	rateLimitFailClosed bool
}

func NewServer(cfg config.Config, store *db.Store, log logrus.FieldLogger) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:     cfg,
		store:   store,
		r:       r,
		log:     log,
		metrics: metrics.NewRecorder(),
	}
	s.initDeps()
	s.routes()
	return s
}

type ServerDeps struct {
	Issue       *usecase.IssueVoucher
	RateLimiter domain.RateLimiter
	Metrics     *metrics.Recorder
	Log         logrus.FieldLogger
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:     cfg,
		r:       r,
		log:     deps.Log,
		issueUC: deps.Issue,
		metrics: deps.Metrics,
	}
	if s.metrics == nil {
		s.metrics = metrics.NewRecorder()
	}
	s.signerMode = cfg.EffectiveSignerMode()
	s.counters = deps.RateLimiter
	s.initRateLimit(deps.RateLimiter)
	s.routes()
	return s
}

func (s *Server) initDeps() {
	var errs []error

	resource, err := domain.ParseAddress(s.cfg.ResourceAddress)
	if err != nil {
		errs = append(errs, fmt.Errorf("NFT_ADDRESS: %w", err))
	}

	limiter, err := ratelimit.NewFromConfig(s.cfg, nil)
	if err != nil {
		errs = append(errs, fmt.Errorf("rate limiter: %w", err))
	}
	s.counters = limiter
	s.initRateLimit(limiter)

	var verifier usecase.AdmissionVerifier
	if hc, err := captcha.NewFromConfig(s.cfg); err == nil {
		verifier = hc.WithHTTPClient(s.metrics.HTTPClient("captcha", s.cfg.UpstreamTimeout()))
	} else {
		errs = append(errs, err)
	}

	quota, err := ratelimit.NewQuotaFromConfig(s.cfg, nil)
	if err != nil {
		errs = append(errs, fmt.Errorf("quota store: %w", err))
	}
	s.quota = quota

	minter, mode, err := buildMinter(s.cfg, s.metrics, quota)
	if err != nil {
		errs = append(errs, fmt.Errorf("signer: %w", err))
	}
	s.signerMode = mode

	var policy usecase.IssuancePolicy
	if s.cfg.PolicyBundlePath != "" {
		engine, err := policyopa.NewEngineFromBundlePath(context.Background(), s.cfg.PolicyBundlePath)
		if err != nil {
			errs = append(errs, fmt.Errorf("policy bundle: %w", err))
		} else {
			policy = engine
			s.logger().WithField("bundle_hash", engine.BundleHash()).Info("issuance policy loaded")
		}
	}

	var audit *usecase.AuditEmitter
	if s.store.Enabled() {
		audit = usecase.NewAuditEmitter(db.NewIssuanceEventRepository(s.store.DB), nil)
	}

	s.issueUC = &usecase.IssueVoucher{
		Gate:     &usecase.AdmissionGate{Verifier: verifier},
		Minter:   minter,
		Resource: resource,
		Policy:   policy,
		Audit:    audit,
		Metrics:  s.metrics,
		Log:      s.logger(),
	}
	s.initErr = errors.Join(errs...)
}

func (s *Server) initRateLimit(override domain.RateLimiter) {
	s.rateLimitRequests = s.cfg.RateLimitRequests
	s.rateLimitWindow = s.cfg.RateLimitWindow()
	s.rateLimitFailClosed = s.cfg.RateLimitFailClosed
	if s.rateLimitRequests <= 0 {
		return
	}
	if override != nil {
		s.rateLimiter = override
		return
	}
	s.rateLimiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{MaxKeys: s.cfg.RateLimitMaxKeys})
}

func (s *Server) routes() {
	s.r.Use(logging.RequestID(), logging.AccessLog(s.logger()))

	s.r.Any(mintPath, s.handleMint)
	s.r.GET("/healthz", s.handleHealth)
	s.r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	s.r.NoRoute(s.handleGatewayNoRoute)
}

// InitErr reports configuration problems found while wiring dependencies.
// The server still answers requests, failing mint calls with 500.
func (s *Server) InitErr() error {
	return s.initErr
}

func (s *Server) Handler() http.Handler {
	return s.r
}

// Close releases the counter store connections, if any.
func (s *Server) Close() error {
	return errors.Join(closeLimiter(s.counters), closeLimiter(s.quota))
}

func (s *Server) logger() logrus.FieldLogger {
	if s.log == nil {
		return logrus.StandardLogger()
	}
	return s.log
}
