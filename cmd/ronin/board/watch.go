package board

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/RpGmAx/ronin-mission-5/internal/config"
	"github.com/RpGmAx/ronin-mission-5/internal/events"
	"github.com/RpGmAx/ronin-mission-5/internal/observability"
	"github.com/RpGmAx/ronin-mission-5/pkg/identity"
)

// watch tails the cross-process event stream published by mutating
// commands running with the redis event sink.
func newWatchCmd(b *boardCmd) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream board events as they happen (redis event sink)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := b.loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			obs, err := observability.New(ctx, observability.ObsConfig{
				LogLevel:       cfg.Observability.LogLevel,
				LogFormat:      cfg.Observability.LogFormat,
				OTLPEndpoint:   cfg.Observability.OTLPEndpoint,
				OTLPProtocol:   cfg.Observability.OTLPProtocol,
				ServiceName:    cfg.Observability.ServiceName,
				ServiceVersion: cfg.Observability.ServiceVersion,
			}, os.Stderr)
			if err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = obs.Close(shutdownCtx)
			}()

			if addr := cfg.Observability.MetricsAddr; addr != "" {
				obs.ServeMetrics(ctx, addr)
			}

			sink, err := events.NewRedisSink(ctx, cfg.Events.Config)
			if err != nil {
				return err
			}
			obs.Shutdown.Register("event-sink", func(context.Context) error {
				return sink.Close()
			})

			fmt.Fprintln(os.Stderr, "watching for board events (ctrl+c to stop)")
			for ev := range sink.Subscribe(ctx) {
				printEvent(ev)
			}
			return nil
		},
	}
	config.BindWatchFlags(cmd, b.v)
	return cmd
}

func printEvent(ev events.Event) {
	switch ev.Type {
	case events.MessageCreated:
		fmt.Printf("%s  %s created: %s\n", formatTimestamp(ev.Timestamp), identity.Short(ev.Sender), ev.Message)
	case events.MessageUpdated:
		fmt.Printf("%s  %s updated: %s\n", formatTimestamp(ev.Timestamp), identity.Short(ev.Sender), ev.Message)
	case events.MessageDeleted:
		fmt.Printf("%s  %s deleted their message\n", formatTimestamp(ev.Timestamp), identity.Short(ev.Sender))
	default:
		fmt.Printf("%s  %s %s\n", formatTimestamp(ev.Timestamp), identity.Short(ev.Sender), ev.Type)
	}
}
