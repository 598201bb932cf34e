package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/blocksched/internal/circuit"
	"github.com/roach88/blocksched/internal/durations"
	"github.com/roach88/blocksched/internal/engine"
	"github.com/roach88/blocksched/internal/passes"
	"github.com/roach88/blocksched/internal/store"
	"github.com/roach88/blocksched/internal/testutil"
)

// CodeInvalidDocument is the error code reported for circuit documents that
// fail to load or validate.
const CodeInvalidDocument = "INVALID_DOCUMENT"

// Run executes a scenario against a fresh in-memory store and evaluates its
// assertions. The returned error covers harness failures (unreadable
// circuit, store setup); scenario failures are reported in Result.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	eng := newEngine(st, scenario)
	result := NewResult()

	doc, err := circuit.Load(scenario.Circuit)
	if err != nil {
		var de *circuit.DocumentError
		if !errors.As(err, &de) {
			return nil, fmt.Errorf("failed to load circuit: %w", err)
		}
	}
	var res *engine.Result
	if err == nil {
		res, err = eng.Run(ctx, doc, scenario.Policy)
	}
	if err != nil {
		result.ErrorCode = ErrorCode(err)
		slog.Debug("scenario run failed", "scenario", scenario.Name, "code", result.ErrorCode, "error", err)
		switch {
		case scenario.ExpectError == "":
			result.AddError(fmt.Sprintf("run failed: %v", err))
		case scenario.ExpectError != result.ErrorCode:
			result.AddError(fmt.Sprintf("expected error %s, got %s: %v", scenario.ExpectError, result.ErrorCode, err))
		}
		return result, nil
	}

	result.Run = res
	if scenario.ExpectError != "" {
		result.AddError(fmt.Sprintf("expected error %s, run succeeded", scenario.ExpectError))
		return result, nil
	}
	for _, msg := range EvaluateAssertions(ctx, eng, res, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// newEngine builds an engine with ids and seqs that depend only on the
// scenario, so stored runs and goldens are reproducible.
func newEngine(st *store.Store, scenario *Scenario) *engine.Engine {
	opts := []engine.EngineOption{engine.WithClock(testutil.NewRunClock(0))}
	if scenario.Patching != nil {
		opts = append(opts, engine.WithDurationOptions(durations.WithPatching(*scenario.Patching)))
	}
	return engine.New(st, testutil.NewSequentialIDs(scenario.Name), opts...)
}

// ErrorCode returns the code of the typed error in err's chain, or
// "UNKNOWN" when it carries none.
func ErrorCode(err error) string {
	var pe *passes.PassError
	if errors.As(err, &pe) {
		return string(pe.Code)
	}
	var de *durations.DurationError
	if errors.As(err, &de) {
		return string(de.Code)
	}
	var re *engine.RunError
	if errors.As(err, &re) {
		return string(re.Code)
	}
	var doc *circuit.DocumentError
	if errors.As(err, &doc) {
		return CodeInvalidDocument
	}
	return "UNKNOWN"
}
