package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/blocksched/internal/engine"
)

// Scenario defines a scheduling scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden files.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Circuit is the path of the circuit document (.yaml, .yml or .cue).
	// Relative paths are resolved against the scenario file location.
	Circuit string `yaml:"circuit"`

	// Policy configures padding. Empty means delay padding.
	Policy engine.PolicyConfig `yaml:"policy,omitempty"`

	// Patching toggles the measurement duration patch. Defaults to on.
	Patching *bool `yaml:"patching,omitempty"`

	// ExpectError is the error code the run must fail with, e.g.
	// DURATION_MISSING. Assertions are not evaluated for such scenarios.
	ExpectError string `yaml:"expect_error,omitempty"`

	// Assertions validate the padded result.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Assertion validates one property of the padded result.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Qubit selects the lane (wire_sequence).
	Qubit *int `yaml:"qubit,omitempty"`

	// Ops are the expected labels in wire order (wire_sequence).
	Ops []string `yaml:"ops,omitempty,flow"`

	// Graph names the graph to search (slot, node_count). Empty means the
	// root graph; nested block graphs are named by their circuit path, e.g.
	// "bell.then".
	Graph string `yaml:"graph,omitempty"`

	// Label and Kind select nodes (slot, node_count).
	Label string `yaml:"label,omitempty"`
	Kind  string `yaml:"kind,omitempty"`

	// Occurrence picks the nth node with Label, counting from 1 (slot).
	Occurrence int `yaml:"occurrence,omitempty"`

	Block *int   `yaml:"block,omitempty"`
	Start *int64 `yaml:"start,omitempty"`

	// Count is the expected number (block_count, node_count).
	Count *int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertWireSequence = "wire_sequence"
	AssertSlot         = "slot"
	AssertBlockCount   = "block_count"
	AssertNodeCount    = "node_count"
	AssertStored       = "stored"
	AssertReplay       = "replay"
)

// CircuitNotFoundError is returned when a scenario references a circuit
// file that doesn't exist.
type CircuitNotFoundError struct {
	Scenario     string
	CircuitPath  string
	ResolvedPath string
}

// Error implements the error interface.
func (e *CircuitNotFoundError) Error() string {
	return fmt.Sprintf(
		"scenario %q references circuit file %q which does not exist (resolved to: %s)",
		e.Scenario,
		e.CircuitPath,
		e.ResolvedPath,
	)
}

// LoadScenario reads and parses a scenario YAML file, resolving the circuit
// path relative to the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file, resolving
// the circuit path relative to basePath. Returns an error if the file
// doesn't exist, is malformed, contains unknown fields (typos), or is
// missing required fields.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	// Resolve before validation so the existence check sees the real path.
	original := scenario.Circuit
	if !filepath.IsAbs(scenario.Circuit) && basePath != "" {
		scenario.Circuit = filepath.Join(basePath, scenario.Circuit)
	}
	if _, err := os.Stat(scenario.Circuit); os.IsNotExist(err) {
		return nil, &CircuitNotFoundError{
			Scenario:     scenario.Name,
			CircuitPath:  original,
			ResolvedPath: scenario.Circuit,
		}
	}
	return scenario, nil
}

// ParseScenario decodes a scenario with strict field checking and validates
// it. The circuit path is not resolved.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches typos like "assertion:"
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Circuit == "" {
		return fmt.Errorf("circuit is required")
	}
	if s.ExpectError == "" && len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required unless expect_error is set")
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertWireSequence:
		if a.Qubit == nil {
			return fmt.Errorf("assertions[%d]: qubit is required for wire_sequence", index)
		}
		if a.Ops == nil {
			return fmt.Errorf("assertions[%d]: ops is required for wire_sequence (use [] for an idle qubit)", index)
		}
	case AssertSlot:
		if a.Label == "" {
			return fmt.Errorf("assertions[%d]: label is required for slot", index)
		}
		if a.Block == nil && a.Start == nil {
			return fmt.Errorf("assertions[%d]: block or start is required for slot", index)
		}
		if a.Occurrence < 0 {
			return fmt.Errorf("assertions[%d]: occurrence must be positive", index)
		}
	case AssertBlockCount:
		if a.Count == nil || *a.Count < 1 {
			return fmt.Errorf("assertions[%d]: positive count is required for block_count", index)
		}
	case AssertNodeCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for node_count", index)
		}
		if a.Label == "" && a.Kind == "" {
			return fmt.Errorf("assertions[%d]: label or kind is required for node_count", index)
		}
	case AssertStored, AssertReplay:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
