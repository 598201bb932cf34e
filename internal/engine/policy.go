package engine

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"

	"github.com/roach88/blocksched/internal/durations"
	"github.com/roach88/blocksched/internal/ir"
	"github.com/roach88/blocksched/internal/passes"
)

// Policy names.
const (
	// PolicyNone schedules without padding.
	PolicyNone  = "none"
	PolicyDelay = "delay"
	PolicyDD    = "dd"
)

// DefaultDDSequence is used when a dd policy names no sequence.
var DefaultDDSequence = []string{"x", "x"}

// PolicyConfig selects and configures the padding policy of a run. It is
// read from scenario files and CLI flags and recorded with every run.
type PolicyConfig struct {
	// Name is PolicyNone, PolicyDelay or PolicyDD. Empty means PolicyDelay.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// The remaining fields only apply to PolicyDD.
	Sequence     []string  `yaml:"sequence,omitempty,flow" json:"sequence,omitempty"`
	Qubits       []int     `yaml:"qubits,omitempty,flow" json:"qubits,omitempty"`
	Spacing      []float64 `yaml:"spacing,omitempty,flow" json:"spacing,omitempty"`
	Alignment    int64     `yaml:"alignment,omitempty" json:"alignment,omitempty"`
	Distribution string    `yaml:"distribution,omitempty" json:"distribution,omitempty"`
	SkipReset    *bool     `yaml:"skip_reset,omitempty" json:"skip_reset,omitempty"`
}

// Normalized returns a copy with defaults filled in, so equivalent
// configurations compare and record identically.
func (c PolicyConfig) Normalized() PolicyConfig {
	out := c
	if out.Name == "" {
		out.Name = PolicyDelay
	}
	if out.Name != PolicyDD {
		return PolicyConfig{Name: out.Name}
	}
	if len(out.Sequence) == 0 {
		out.Sequence = slices.Clone(DefaultDDSequence)
	}
	if out.Alignment == 0 {
		out.Alignment = 1
	}
	if out.Distribution == "" {
		out.Distribution = passes.SlackMiddle
	}
	if out.SkipReset == nil {
		skip := true
		out.SkipReset = &skip
	}
	return out
}

// Build creates the policy for provider. It returns nil for PolicyNone.
func (c PolicyConfig) Build(provider durations.Provider) (passes.Policy, error) {
	c = c.Normalized()
	switch c.Name {
	case PolicyNone:
		return nil, nil
	case PolicyDelay:
		return passes.DelayPolicy{}, nil
	case PolicyDD:
		seq := make([]ir.Node, len(c.Sequence))
		for i, name := range c.Sequence {
			seq[i] = ir.Node{Kind: ir.KindForName(name), Name: name}
		}
		opts := []passes.DDOption{
			passes.WithPulseAlignment(c.Alignment),
			passes.WithExtraSlackDistribution(c.Distribution),
			passes.WithSkipResetQubits(*c.SkipReset),
		}
		if len(c.Qubits) > 0 {
			opts = append(opts, passes.WithQubits(c.Qubits...))
		}
		if len(c.Spacing) > 0 {
			opts = append(opts, passes.WithSpacing(c.Spacing...))
		}
		dd, err := passes.NewDynamicalDecoupling(provider, seq, opts...)
		if err != nil {
			return nil, NewInvalidPolicyError(c.Name, err.Error())
		}
		return dd, nil
	default:
		return nil, NewInvalidPolicyError(c.Name, fmt.Sprintf("unknown policy %q", c.Name))
	}
}

// Canonical returns the normalized configuration as canonical JSON. Spacing
// fractions are recorded as strings.
func (c PolicyConfig) Canonical() (string, error) {
	c = c.Normalized()
	m := map[string]any{"name": c.Name}
	if c.Name == PolicyDD {
		m["sequence"] = c.Sequence
		m["alignment"] = c.Alignment
		m["distribution"] = c.Distribution
		m["skip_reset"] = *c.SkipReset
		if len(c.Qubits) > 0 {
			m["qubits"] = c.Qubits
		}
		if len(c.Spacing) > 0 {
			spacing := make([]string, len(c.Spacing))
			for i, s := range c.Spacing {
				spacing[i] = strconv.FormatFloat(s, 'g', -1, 64)
			}
			m["spacing"] = spacing
		}
	}
	data, err := ir.MarshalCanonical(m)
	if err != nil {
		return "", fmt.Errorf("encode policy options: %w", err)
	}
	return string(data), nil
}

// recordedOptions mirrors the JSON written by Canonical.
type recordedOptions struct {
	Name         string   `json:"name"`
	Sequence     []string `json:"sequence"`
	Qubits       []int    `json:"qubits"`
	Spacing      []string `json:"spacing"`
	Alignment    int64    `json:"alignment"`
	Distribution string   `json:"distribution"`
	SkipReset    *bool    `json:"skip_reset"`
}

// ParsePolicyOptions decodes options recorded by Canonical.
func ParsePolicyOptions(data string) (PolicyConfig, error) {
	var rec recordedOptions
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return PolicyConfig{}, fmt.Errorf("decode policy options: %w", err)
	}
	cfg := PolicyConfig{
		Name:         rec.Name,
		Sequence:     rec.Sequence,
		Qubits:       rec.Qubits,
		Alignment:    rec.Alignment,
		Distribution: rec.Distribution,
		SkipReset:    rec.SkipReset,
	}
	for _, s := range rec.Spacing {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return PolicyConfig{}, fmt.Errorf("decode policy options: spacing %q: %w", s, err)
		}
		cfg.Spacing = append(cfg.Spacing, f)
	}
	return cfg.Normalized(), nil
}
