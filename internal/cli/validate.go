package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/blocksched/internal/circuit"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
}

// FileValidation is the validation outcome for one circuit file.
type FileValidation struct {
	Path    string `json:"path"`
	Circuit string `json:"circuit,omitempty"`
	Valid   bool   `json:"valid"`
	Field   string `json:"field,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ValidationResult is the JSON output structure for validation.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <circuit>...",
		Short: "Validate circuit documents",
		Long: `Validate circuit documents (.yaml, .yml or .cue) without scheduling them.

Checks wire indices, conditions, nested blocks, registers and duration
entries, and that the document builds into an operation graph.

Exit codes:
  0 - All circuits valid
  1 - At least one circuit invalid
  2 - Command error (unreadable file)

Examples:
  blocksched validate bell.yaml
  blocksched validate circuits/*.cue --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *ValidateOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(cmd, opts.RootOptions)
	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(paths))}

	for _, path := range paths {
		formatter.VerboseLog("Validating: %s", path)
		fv, err := validateFile(path)
		if err != nil {
			return err
		}
		if !fv.Valid {
			result.Valid = false
		}
		result.Files = append(result.Files, fv)
	}

	if opts.Format == "json" {
		if err := formatter.JSON(result); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		for _, fv := range result.Files {
			if fv.Valid {
				fmt.Fprintf(w, "✓ %s (%s)\n", fv.Path, fv.Circuit)
			} else {
				fmt.Fprintf(w, "✗ %s: %s\n", fv.Path, fv.Error)
			}
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}

// validateFile checks one document. Missing files are command errors.
func validateFile(path string) (FileValidation, error) {
	fv := FileValidation{Path: path}
	if _, err := os.Stat(path); err != nil {
		return fv, WrapExitError(ExitCommandError, fmt.Sprintf("failed to read %s", path), err)
	}

	doc, err := circuit.Load(path)
	if err == nil {
		fv.Circuit = doc.Name
		_, err = doc.Build()
	}
	if err == nil {
		fv.Valid = true
		return fv, nil
	}

	var de *circuit.DocumentError
	if errors.As(err, &de) {
		fv.Field = de.Field
	}
	fv.Error = err.Error()
	return fv, nil
}
