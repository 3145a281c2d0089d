package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tunekit/tunekit/pkg/sampling"
)

func newSamplingCommand() *cobra.Command {
	var steps int

	cmd := &cobra.Command{
		Use:   "sampling <dt-app> <dt-model>",
		Short: "Compute sampling factors for two step sizes",
		Long: `Compute how a model with step size dt-model is scheduled by a host
running at step size dt-app. Both are given in seconds.

The model must run an integer number of times per host step, or once
every integer number of host steps.`,
		Example: `  # Over-sampling: 4 model steps per host step
  tunectl sampling 0.001 0.00025

  # Under-sampling, showing the first 6 host steps
  tunectl sampling 0.001 0.003 --steps 6`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dtApp, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid application step %q: %w", args[0], err)
			}
			dtModel, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid model step %q: %w", args[1], err)
			}

			s, err := sampling.Compute(dtApp, dtModel)
			if err != nil {
				return err
			}

			schedule := make([]int, 0, steps)
			for i := 0; i < steps; i++ {
				schedule = append(schedule, s.Step())
			}
			s.Reset()

			if jsonOutput {
				return printJSON(struct {
					sampling.Sampling
					ModelStep float64 `json:"model_step"`
					Schedule  []int   `json:"schedule,omitempty"`
				}{s, s.ModelStep(dtApp), schedule})
			}

			fmt.Printf("Over-sampling factor:  %d\n", s.OverSampFac)
			fmt.Printf("Under-sampling factor: %d\n", s.UnderSampFac)
			fmt.Printf("Model step:            %gs\n", s.ModelStep(dtApp))
			if len(schedule) > 0 {
				fmt.Printf("Model steps per host step: %v\n", schedule)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&steps, "steps", 0, "show the model steps run in the first N host steps")

	return cmd
}
