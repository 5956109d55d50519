// Command wampctl joins a WAMP realm and calls, publishes or subscribes from
// the command line.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"mini-wamp/client"
	"mini-wamp/config"
	"mini-wamp/logging"
	"mini-wamp/message"
)

type globalFlags struct {
	configPath string
	url        string
	realm      string
	logLevel   string
	timeout    time.Duration
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:   "wampctl",
		Short: "Talk to a WAMP router from the shell",
		Long: `wampctl joins a realm on a WAMP router and performs one operation.

Routers come from --url, or from the routers / registry sections of the
TOML file given with --config. Positional arguments are parsed as JSON and
fall back to plain strings.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&g.configPath, "config", "c", "", "TOML client config file")
	flags.StringVarP(&g.url, "url", "u", "", "router URL (ws://, wss://, tcp://, unix://)")
	flags.StringVarP(&g.realm, "realm", "r", "", "realm to join")
	flags.StringVar(&g.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	flags.DurationVar(&g.timeout, "timeout", 10*time.Second, "time allowed for joining and each reply")

	rootCmd.AddCommand(
		callCmd(g),
		publishCmd(g),
		subscribeCmd(g),
	)
	return rootCmd
}

// loadConfig merges the config file with the command-line overrides.
func (g *globalFlags) loadConfig() (config.ClientConfig, error) {
	cfg := config.Default()
	if g.configPath != "" {
		loaded, err := config.Load(g.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if g.url != "" {
		cfg.URL = g.url
		cfg.Routers = nil
		cfg.Registry.Endpoints = nil
	}
	if g.realm != "" {
		cfg.Realm = g.realm
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	return cfg, cfg.Validate()
}

func logger(cfg config.ClientConfig) zerolog.Logger {
	l := logging.ConfigureRuntime()
	if lvl, ok := logging.ParseLevel(cfg.LogLevel); ok {
		l = l.Level(lvl)
	}
	return l
}

// join connects, starts the session loop and waits for Welcome. The
// returned close function leaves the realm and waits for the loop to end.
func (g *globalFlags) join(ctx context.Context) (*client.Session, func(), error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	log := logger(cfg)

	runCtx, cancel := context.WithCancel(ctx)
	s, err := client.Connect(runCtx, cfg, client.WithLogger(log))
	if err != nil {
		cancel()
		return nil, nil, err
	}

	errc := make(chan error, 1)
	go func() { errc <- s.Run(runCtx) }()

	joinCtx, joinCancel := context.WithTimeout(ctx, g.timeout)
	defer joinCancel()
	select {
	case <-s.Joined():
	case err := <-errc:
		cancel()
		return nil, nil, fmt.Errorf("join %s: %w", cfg.Realm, err)
	case <-joinCtx.Done():
		cancel()
		<-s.Done()
		return nil, nil, fmt.Errorf("join %s: %w", cfg.Realm, joinCtx.Err())
	}

	closeFn := func() {
		if err := s.Leave(message.CloseNormal); err == nil {
			select {
			case <-s.Done():
			case <-time.After(g.timeout):
			}
		}
		cancel()
		<-s.Done()
	}
	return s, closeFn, nil
}

// parseArgs decodes each argument as JSON; anything that is not valid JSON
// is passed as a string.
func parseArgs(raw []string) message.List {
	if len(raw) == 0 {
		return nil
	}
	out := make(message.List, 0, len(raw))
	for _, a := range raw {
		out = append(out, parseValue(a))
	}
	return out
}

func parseKwargs(raw map[string]string) message.Dict {
	if len(raw) == 0 {
		return nil
	}
	out := make(message.Dict, len(raw))
	for k, v := range raw {
		out[k] = parseValue(v)
	}
	return out
}

func parseValue(s string) any {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return s
	}
	return v
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	return enc.Encode(v)
}
