package main

import (
	"github.com/spf13/cobra"

	"mini-wamp/message"
)

type eventOutput struct {
	Topic       string       `json:"topic"`
	Publication uint64       `json:"publication"`
	Args        message.List `json:"args,omitempty"`
	Kwargs      message.Dict `json:"kwargs,omitempty"`
}

func subscribeCmd(g *globalFlags) *cobra.Command {
	var (
		count int
		match string
	)

	cmd := &cobra.Command{
		Use:   "subscribe <topic>",
		Short: "Print events published to a topic",
		Long: `Subscribe to a topic and print each event as one JSON line.

Runs until interrupted, or until --count events have arrived.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, closeFn, err := g.join(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			topic := args[0]
			var opts message.Dict
			if match != "" {
				opts = message.Dict{"match": match}
			}

			events := make(chan *message.Event, 64)
			sub, err := s.Subscribe(cmd.Context(), topic, opts, func(ev *message.Event) {
				select {
				case events <- ev:
				default:
				}
			})
			if err != nil {
				return err
			}

			seen := 0
			for count <= 0 || seen < count {
				select {
				case ev := <-events:
					seen++
					if err := printJSON(cmd, eventOutput{
						Topic:       topic,
						Publication: ev.Publication,
						Args:        ev.Args,
						Kwargs:      ev.Kwargs,
					}); err != nil {
						return err
					}
				case <-s.Done():
					return nil
				case <-cmd.Context().Done():
					return nil
				}
			}
			return s.Unsubscribe(cmd.Context(), sub.Subscription)
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 0, "exit after this many events (0 runs forever)")
	cmd.Flags().StringVar(&match, "match", "", "topic match policy (prefix, wildcard)")

	return cmd
}
