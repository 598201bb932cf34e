package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/blocksched/internal/engine"
	"github.com/roach88/blocksched/internal/render"
)

// DrawOptions holds flags for the draw command.
type DrawOptions struct {
	*RootOptions
	Run      RunFlags
	NoColor  bool
	NoDelays bool
}

// DrawOutput is the JSON payload of the draw command.
type DrawOutput struct {
	Circuit  string `json:"circuit"`
	Policy   string `json:"policy"`
	Blocks   int    `json:"blocks"`
	Timeline string `json:"timeline"`
}

// NewDrawCommand creates the draw command.
func NewDrawCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DrawOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "draw <circuit>",
		Short: "Draw the padded timeline of a circuit",
		Long: `Schedule and pad a circuit and draw one lane per qubit, one grid per
execution block, with nested blocks drawn below their node.

Examples:
  blocksched draw bell.yaml
  blocksched draw bell.yaml --policy none
  blocksched draw bell.yaml --policy dd --no-delays --no-color`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDraw(opts, args[0], cmd)
		},
	}

	opts.Run.register(cmd, engine.PolicyDelay)
	cmd.Flags().BoolVar(&opts.NoColor, "no-color", false, "draw without styling")
	cmd.Flags().BoolVar(&opts.NoDelays, "no-delays", false, "leave delay instructions out")

	return cmd
}

func runDraw(opts *DrawOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(cmd, opts.RootOptions)

	cfg, err := opts.Run.Policy.Config()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid policy", err)
	}
	doc, err := loadCircuit(path)
	if err != nil {
		return err
	}

	eng := engine.New(nil, nil, opts.Run.engineOptions()...)
	res, err := eng.Run(commandContext(cmd), doc, cfg)
	if err != nil {
		return reportRunError(formatter, doc.Name, err)
	}

	// JSON carries plain text; escape codes have no place in it.
	color := !opts.NoColor && opts.Format != "json"
	r := render.New(render.WithColor(color), render.WithDelays(!opts.NoDelays))
	timeline := r.Timeline(res.Output, res.Pass.NodeStartTime, res.Pass.NodeBlockGraphs)

	if opts.Format == "json" {
		return formatter.JSON(DrawOutput{
			Circuit:  res.Circuit,
			Policy:   res.Policy.Name,
			Blocks:   res.Blocks,
			Timeline: timeline,
		})
	}
	fmt.Fprint(formatter.Writer, timeline)
	return nil
}
