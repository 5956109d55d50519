package main

import (
	"context"

	"github.com/spf13/cobra"

	"mini-wamp/message"
)

func callCmd(g *globalFlags) *cobra.Command {
	var (
		kwargs   map[string]string
		progress bool
	)

	cmd := &cobra.Command{
		Use:   "call <procedure> [args...]",
		Short: "Call a procedure and print its result",
		Long: `Call a procedure and print the result as JSON.

With --progress every progressive result is printed as it arrives.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, closeFn, err := g.join(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, cancel := context.WithTimeout(cmd.Context(), g.timeout)
			defer cancel()

			var onProgress func(*message.Result)
			if progress {
				onProgress = func(r *message.Result) {
					_ = printJSON(cmd, resultJSON(r))
				}
			}
			res, err := s.CallProgress(ctx, args[0], parseArgs(args[1:]), parseKwargs(kwargs), onProgress)
			if err != nil {
				return err
			}
			return printJSON(cmd, resultJSON(res))
		},
	}

	cmd.Flags().StringToStringVarP(&kwargs, "kw", "k", nil, "keyword argument key=value (repeatable)")
	cmd.Flags().BoolVarP(&progress, "progress", "p", false, "receive progressive results")

	return cmd
}

type resultOutput struct {
	Args   message.List `json:"args,omitempty"`
	Kwargs message.Dict `json:"kwargs,omitempty"`
}

func resultJSON(r *message.Result) resultOutput {
	return resultOutput{Args: r.Args, Kwargs: r.Kwargs}
}
