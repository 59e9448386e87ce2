package authz

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Expectation is one expected policy decision, keyed by role rather than subject.
type Expectation struct {
	Role    string `yaml:"role" json:"role"`
	Object  string `yaml:"object" json:"object"`
	Action  string `yaml:"action" json:"action"`
	Allowed bool   `yaml:"allowed" json:"allowed"`
	Note    string `yaml:"note,omitempty" json:"note,omitempty"`
}

// Mismatch reports an expectation the loaded policy disagrees with.
type Mismatch struct {
	Expectation
	Actual bool   `json:"actual"`
	Reason string `json:"reason"`
}

// LoadExpectations reads a YAML list of expectations.
func LoadExpectations(path string) ([]Expectation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []Expectation
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("authz: parse expectations: %w", err)
	}
	return out, nil
}

// Verify checks every expectation against the policy, regardless of mode.
func (s *Service) Verify(ctx context.Context, expectations []Expectation) ([]Mismatch, error) {
	var out []Mismatch
	for _, exp := range expectations {
		allowed, err := s.Check(ctx, NewRequest(SubjectForRole(exp.Role), exp.Object, exp.Action))
		if err != nil {
			return nil, err
		}
		if allowed != exp.Allowed {
			out = append(out, Mismatch{Expectation: exp, Actual: allowed, Reason: "decision mismatch"})
		}
	}
	return out, nil
}
