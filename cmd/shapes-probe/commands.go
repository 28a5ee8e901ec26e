package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/samvad-hq/shapes-probe/internal/app"
	"github.com/samvad-hq/shapes-probe/internal/config"
	"github.com/samvad-hq/shapes-probe/internal/logger"
	"github.com/samvad-hq/shapes-probe/pkg/interpret"
	"github.com/samvad-hq/shapes-probe/pkg/shapes"
)

var historyFlags struct {
	limit int
}

var iconFlags struct {
	out  string
	size int
}

func helloCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hello",
		Short: "Call the hello endpoint once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return checkRun(cmd.Context(), shapes.EndpointHello)
		},
	}
}

func shapesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shapes",
		Short: "Call the shapes endpoint once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return checkRun(cmd.Context(), shapes.EndpointShapes)
		},
	}
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Call both endpoints every watch interval until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withProbe(cmd.Context(), func(ctx context.Context, p *app.Probe) error {
				if err := p.Watch(ctx); err != nil {
					return fmt.Errorf("watch: %w", err)
				}
				return nil
			})
		},
	}
}

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print recorded outcomes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withProbe(cmd.Context(), func(_ context.Context, p *app.Probe) error {
				recs, err := p.History(historyFlags.limit)
				if err != nil {
					return fmt.Errorf("read history: %w", err)
				}
				out := cmd.OutOrStdout()
				for _, r := range recs {
					fmt.Fprintf(out, "%s  %-6s %-16s %-9s %d\n",
						r.RecordedAt.Local().Format(time.RFC3339), r.Endpoint, r.Kind, r.Outcome, r.StatusCode)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&historyFlags.limit, "limit", 20, "maximum records to print (0 prints all)")
	return cmd
}

func iconCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "icon <name>",
		Short:     "Render one status icon as PNG",
		Args:      cobra.ExactArgs(1),
		ValidArgs: interpret.Icons(),
		RunE: func(cmd *cobra.Command, args []string) error {
			size := iconFlags.size
			if size <= 0 {
				cfg, err := config.Load()
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				size = cfg.IconSize
			}
			path, err := interpret.WriteIcon(iconFlags.out, args[0], size)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&iconFlags.out, "out", ".", "directory to write the PNG into")
	cmd.Flags().IntVar(&iconFlags.size, "size", 0, "icon edge in pixels (defaults to icon_size)")
	return cmd
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return writeConfig(cmd.OutOrStdout(), cfg.Redacted())
		},
	}
}

func writeConfig(w io.Writer, cfg config.Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

func checkRun(ctx context.Context, ep shapes.Endpoint) error {
	return withProbe(ctx, func(ctx context.Context, p *app.Probe) error {
		results, err := p.Check(ctx, ep)
		if err != nil {
			return fmt.Errorf("check %s: %w", ep, err)
		}
		for _, r := range results {
			if !r.Status.OK {
				return errNotOK
			}
		}
		return nil
	})
}

// withProbe loads config and logging, builds the probe and runs fn with a
// context cancelled on SIGINT or SIGTERM.
func withProbe(parent context.Context, fn func(context.Context, *app.Probe) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.InfoObj("shapes-probe starting", "config", cfg.Redacted())

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	probe, err := app.NewProbe(ctx, cfg, log, os.Stdout)
	if err != nil {
		logger.ErrorObj("failed to initialize probe", "error", err)
		return err
	}
	defer func() {
		if cerr := probe.Close(); cerr != nil {
			logger.ErrorObj("probe close failed", "error", cerr)
		}
	}()

	return fn(ctx, probe)
}
