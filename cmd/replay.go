package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/persimmon-labs/uxagent-cli/internal/browser"
	"github.com/persimmon-labs/uxagent-cli/internal/observability"
	"github.com/persimmon-labs/uxagent-cli/internal/recorder"
)

// newReplayCmd creates and configures the `replay` command.
func newReplayCmd() *cobra.Command {
	replayCmd := &cobra.Command{
		Use:   "replay <trace-file>",
		Short: "Replays a recorded action trace in a live browser",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			url, _ := cmd.Flags().GetString("url")
			delay, _ := cmd.Flags().GetDuration("delay")
			if delay <= 0 {
				delay = appCfg.Simulation.ReplayDelay
			}

			rec := recorder.New(nil, logger)
			trace, err := rec.LoadTrace(args[0])
			if err != nil {
				return err
			}

			connector, err := browser.NewConnector(ctx, appCfg.Browser, logger)
			if err != nil {
				return err
			}
			defer connector.Close(context.Background())

			// An explicit starting URL takes precedence; otherwise the trace is
			// expected to open with its own navigate action.
			if url != "" {
				snap, err := connector.Navigate(ctx, url)
				if err != nil {
					return fmt.Errorf("failed to open starting URL: %w", err)
				}
				if snap.ErrorMessage != "" {
					return fmt.Errorf("failed to open starting URL: %s", snap.ErrorMessage)
				}
			}

			if err := rec.ReplayTrace(ctx, connector, trace, delay); err != nil {
				return err
			}
			logger.Info("Replay complete", zap.Int("actions", len(trace)))
			return nil
		},
	}

	replayCmd.Flags().String("url", "", "navigate here before replaying the trace")
	replayCmd.Flags().Duration("delay", time.Second, "pause between replayed actions")

	return replayCmd
}

func init() {
	rootCmd.AddCommand(newReplayCmd())
}
