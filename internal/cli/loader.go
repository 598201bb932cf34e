package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/blocksched/internal/circuit"
	"github.com/roach88/blocksched/internal/durations"
	"github.com/roach88/blocksched/internal/engine"
	"github.com/roach88/blocksched/internal/harness"
	"github.com/roach88/blocksched/internal/store"
)

// PolicyFlags configures the padding policy from the command line.
type PolicyFlags struct {
	Name         string
	Sequence     []string
	Qubits       []int
	Spacing      []float64
	Alignment    int64
	Distribution string
	NoSkipReset  bool
	File         string // YAML policy file, wins over the other flags
}

func (p *PolicyFlags) register(cmd *cobra.Command, defaultPolicy string) {
	fs := cmd.Flags()
	fs.StringVar(&p.Name, "policy", defaultPolicy, "padding policy (none|delay|dd)")
	fs.StringSliceVar(&p.Sequence, "dd-sequence", nil, "decoupling gates, e.g. x,y,x,y (dd only)")
	fs.IntSliceVar(&p.Qubits, "qubits", nil, "qubits to decouple, others get delays (dd only)")
	fs.Float64SliceVar(&p.Spacing, "dd-spacing", nil, "fractions of the gap before each pulse and after the last (dd only)")
	fs.Int64Var(&p.Alignment, "alignment", 0, "pulse alignment in ticks (dd only)")
	fs.StringVar(&p.Distribution, "distribution", "", "where alignment leftovers go: middle|edges (dd only)")
	fs.BoolVar(&p.NoSkipReset, "no-skip-reset", false, "decouple gaps after resets and at circuit start (dd only)")
	fs.StringVar(&p.File, "policy-file", "", "YAML policy configuration")
}

// Config returns the policy configuration the flags describe.
func (p *PolicyFlags) Config() (engine.PolicyConfig, error) {
	if p.File != "" {
		return loadPolicyFile(p.File)
	}
	cfg := engine.PolicyConfig{
		Name:         p.Name,
		Sequence:     p.Sequence,
		Qubits:       p.Qubits,
		Spacing:      p.Spacing,
		Alignment:    p.Alignment,
		Distribution: p.Distribution,
	}
	if p.NoSkipReset {
		skip := false
		cfg.SkipReset = &skip
	}
	return cfg, nil
}

func loadPolicyFile(path string) (engine.PolicyConfig, error) {
	var cfg engine.PolicyConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read policy file: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse policy file %s: %w", path, err)
	}
	return cfg, nil
}

// RunFlags are the flags shared by commands that run the pipeline.
type RunFlags struct {
	Policy   PolicyFlags
	NoPatch  bool
	MaxNodes int
}

func (r *RunFlags) register(cmd *cobra.Command, defaultPolicy string) {
	r.Policy.register(cmd, defaultPolicy)
	cmd.Flags().BoolVar(&r.NoPatch, "no-patch", false, "use measure and reset durations as given")
	cmd.Flags().IntVar(&r.MaxNodes, "max-nodes", engine.DefaultMaxNodes, "reject circuits with more nodes (0 disables)")
}

func (r *RunFlags) engineOptions() []engine.EngineOption {
	opts := []engine.EngineOption{engine.WithMaxNodes(r.MaxNodes)}
	if r.NoPatch {
		opts = append(opts, engine.WithDurationOptions(durations.WithPatching(false)))
	}
	return opts
}

// loadCircuit reads a circuit document. Invalid documents are failures;
// unreadable files are command errors.
func loadCircuit(path string) (*circuit.Document, error) {
	doc, err := circuit.Load(path)
	if err != nil {
		var de *circuit.DocumentError
		if errors.As(err, &de) {
			return nil, WrapExitError(ExitFailure, "invalid circuit", err)
		}
		return nil, WrapExitError(ExitCommandError, "failed to load circuit", err)
	}
	return doc, nil
}

// openStore opens the run database at path.
func openStore(path string) (*store.Store, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// openEngine creates an engine. With an empty db path runs are not
// recorded; otherwise the store is opened and the engine resumes after its
// last run. The caller closes the returned store when non-nil.
func openEngine(ctx context.Context, db string, ids engine.IDGenerator, opts []engine.EngineOption) (*engine.Engine, *store.Store, error) {
	if db == "" {
		return engine.New(nil, ids, opts...), nil, nil
	}
	st, err := openStore(db)
	if err != nil {
		return nil, nil, err
	}
	eng, err := engine.Resume(ctx, st, ids, opts...)
	if err != nil {
		st.Close()
		return nil, nil, WrapExitError(ExitCommandError, "failed to resume from database", err)
	}
	return eng, st, nil
}

// reportRunError prints a failed run with its error code and returns the
// matching exit error.
func reportRunError(f *OutputFormatter, circuitName string, err error) error {
	code := harness.ErrorCode(err)
	_ = f.Error(code, err.Error(), map[string]string{"circuit": circuitName})
	if code == "UNKNOWN" {
		return WrapExitError(ExitCommandError, "run failed", err)
	}
	return WrapExitError(ExitFailure, "run failed", err)
}

// commandContext returns the command's context, or a background context
// when it has none.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
