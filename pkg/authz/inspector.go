package authz

import (
	"context"
	"fmt"
	"time"
)

// InspectionResult captures the full outcome of an authorization evaluation.
type InspectionResult struct {
	Allowed         bool          `json:"allowed"`
	Mode            Mode          `json:"mode"`
	Trace           []string      `json:"trace"`
	Latency         time.Duration `json:"latency"`
	OriginalRequest Request       `json:"request"`
}

// Inspect evaluates a request and returns the matched policy rule for debugging.
func (s *Service) Inspect(ctx context.Context, req Request) (InspectionResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := time.Now()
	allowed, trace, err := s.enforcer.EnforceEx(req.Subject, req.Object, req.Action)
	latency := time.Since(start)
	if err != nil {
		return InspectionResult{}, fmt.Errorf("authz: inspect failed: %w", err)
	}

	result := InspectionResult{
		Allowed:         allowed,
		Mode:            s.flagProvider.ModeFor(req.Object),
		Trace:           append([]string{}, trace...),
		Latency:         latency,
		OriginalRequest: req,
	}
	recordInspectMetrics(result.Mode, result.Allowed, latency)
	return result, nil
}
