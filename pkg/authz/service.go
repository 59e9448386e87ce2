package authz

import (
	"context"
	"fmt"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	stringadapter "github.com/casbin/casbin/v2/persist/string-adapter"
	"github.com/sirupsen/logrus"
)

// Service provides helpers for enforcing authorization decisions.
type Service struct {
	cfg          Config
	enforcer     *casbin.Enforcer
	logger       *logrus.Entry
	flagProvider FlagProvider
	mu           sync.RWMutex
}

// NewService constructs a Service with the provided config.
func NewService(cfg Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg = cfg.normalized()

	var logger *logrus.Entry
	if cfg.Logger != nil {
		logger = cfg.Logger.WithField("component", "authz")
	} else {
		logger = logrus.WithField("component", "authz")
	}

	enf, err := newEnforcer(cfg)
	if err != nil {
		return nil, err
	}

	provider := cfg.FlagProvider
	if provider == nil {
		if cfg.FlagPath != "" {
			provider = NewFileFlagProvider(cfg.FlagPath, cfg.FlagMode)
		} else {
			provider = StaticFlagProvider(cfg.FlagMode)
		}
	}

	return &Service{
		cfg:          cfg,
		enforcer:     enf,
		logger:       logger,
		flagProvider: provider,
	}, nil
}

// NewDefaultService builds a Service over the embedded role capability policy.
func NewDefaultService(logger *logrus.Logger, mode Mode) (*Service, error) {
	return NewService(Config{
		Logger:       logger,
		FlagProvider: StaticFlagProvider(mode),
	})
}

func newEnforcer(cfg Config) (*casbin.Enforcer, error) {
	if !cfg.usesEmbeddedDefaults() {
		enf, err := casbin.NewEnforcer(cfg.ModelPath, fileadapter.NewAdapter(cfg.PolicyPath))
		if err != nil {
			return nil, fmt.Errorf("authz: failed to initialize enforcer: %w", err)
		}
		if err := enf.LoadPolicy(); err != nil {
			return nil, fmt.Errorf("authz: failed to load policies: %w", err)
		}
		return enf, nil
	}

	modelText, policyText, err := embeddedModelAndPolicy()
	if err != nil {
		return nil, fmt.Errorf("authz: failed to read embedded defaults: %w", err)
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("authz: failed to parse embedded model: %w", err)
	}
	enf, err := casbin.NewEnforcer(m, stringadapter.NewAdapter(policyText))
	if err != nil {
		return nil, fmt.Errorf("authz: failed to initialize enforcer: %w", err)
	}
	return enf, nil
}

// Mode reports the default enforcement mode currently in effect.
func (s *Service) Mode() Mode {
	return s.flagProvider.ModeFor("")
}

// Authorize returns an error if the request is denied.
func (s *Service) Authorize(ctx context.Context, req Request) error {
	mode := s.flagProvider.ModeFor(req.Object)
	if mode == ModeDisabled {
		return nil
	}

	allowed, err := s.Check(ctx, req)
	if err != nil {
		return err
	}
	if allowed {
		return nil
	}

	entry := s.logger.WithContext(ctx).WithFields(logrus.Fields{
		"subject": req.Subject,
		"object":  req.Object,
		"action":  req.Action,
		"mode":    mode,
	})
	if mode == ModeShadow {
		entry.Warn("authz shadow deny")
		return nil
	}
	entry.Warn("authz denied request")
	return forbiddenError(req)
}

// Check evaluates a request without returning an authorization error.
func (s *Service) Check(ctx context.Context, req Request) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res, err := s.enforcer.Enforce(req.Subject, req.Object, req.Action)
	if err != nil {
		return false, fmt.Errorf("authz: enforce failed: %w", err)
	}
	return res, nil
}

// ReloadPolicy reloads policy data from its source.
func (s *Service) ReloadPolicy(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enforcer.LoadPolicy(); err != nil {
		return fmt.Errorf("authz: reload policy failed: %w", err)
	}
	s.logger.WithContext(ctx).Info("authz policy reloaded")
	return nil
}

var (
	defaultServiceOnce sync.Once
	defaultService     *Service
	defaultServiceErr  error
)

// Use returns a singleton Service configured via environment variables.
func Use() *Service {
	defaultServiceOnce.Do(func() {
		defaultService, defaultServiceErr = NewService(DefaultConfig())
	})
	if defaultServiceErr != nil {
		panic(defaultServiceErr)
	}
	return defaultService
}
