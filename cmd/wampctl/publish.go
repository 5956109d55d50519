package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func publishCmd(g *globalFlags) *cobra.Command {
	var (
		kwargs      map[string]string
		acknowledge bool
	)

	cmd := &cobra.Command{
		Use:   "publish <topic> [args...]",
		Short: "Publish an event to a topic",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, closeFn, err := g.join(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, cancel := context.WithTimeout(cmd.Context(), g.timeout)
			defer cancel()

			pub, err := s.Publish(ctx, args[0], parseArgs(args[1:]), parseKwargs(kwargs), acknowledge)
			if err != nil {
				return err
			}
			if pub != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "published %d\n", pub.Publication)
			}
			return nil
		},
	}

	cmd.Flags().StringToStringVarP(&kwargs, "kw", "k", nil, "keyword argument key=value (repeatable)")
	cmd.Flags().BoolVarP(&acknowledge, "ack", "a", false, "wait for the router to acknowledge")

	return cmd
}
