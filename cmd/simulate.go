package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/persimmon-labs/uxagent-cli/api/schemas"
	"github.com/persimmon-labs/uxagent-cli/internal/agent"
	"github.com/persimmon-labs/uxagent-cli/internal/browser"
	"github.com/persimmon-labs/uxagent-cli/internal/config"
	"github.com/persimmon-labs/uxagent-cli/internal/embedding"
	"github.com/persimmon-labs/uxagent-cli/internal/llmclient"
	"github.com/persimmon-labs/uxagent-cli/internal/memory"
	"github.com/persimmon-labs/uxagent-cli/internal/observability"
	"github.com/persimmon-labs/uxagent-cli/internal/persona"
	"github.com/persimmon-labs/uxagent-cli/internal/recorder"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// newSimulateCmd creates and configures the `simulate` command.
func newSimulateCmd() *cobra.Command {
	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Runs persona-driven browsing sessions against a website",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("agent.max_cycles", cmd.Flags().Lookup("max-cycles")); err != nil {
				return err
			}
			if err := viper.BindPFlag("simulation.sessions", cmd.Flags().Lookup("sessions")); err != nil {
				return err
			}
			if err := viper.BindPFlag("browser.headless", cmd.Flags().Lookup("headless")); err != nil {
				return err
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg := appCfg
			if err := viper.Unmarshal(&cfg); err != nil {
				return fmt.Errorf("failed to apply flag overrides: %w", err)
			}

			url, _ := cmd.Flags().GetString("url")
			if url == "" {
				return fmt.Errorf("a starting URL is required (--url)")
			}
			intent, _ := cmd.Flags().GetString("intent")
			if intent == "" {
				return fmt.Errorf("an intent is required (--intent)")
			}

			personaPath, _ := cmd.Flags().GetString("persona")
			tracePath, _ := cmd.Flags().GetString("trace")
			memoryPath, _ := cmd.Flags().GetString("memory")
			outputPath, _ := cmd.Flags().GetString("output")

			basePersona, err := loadPersona(personaPath)
			if err != nil {
				return err
			}

			sessions := cfg.Simulation.Sessions
			if sessions < 1 {
				sessions = 1
			}
			logger.Info("Starting simulation",
				zap.String("url", url),
				zap.String("intent", intent),
				zap.Int("sessions", sessions),
			)

			results := make([]*agent.SessionResult, sessions)
			g, gctx := errgroup.WithContext(ctx)
			for i := 0; i < sessions; i++ {
				i := i
				g.Go(func() error {
					result, err := runOneSession(gctx, cfg, logger, sessionParams{
						index:      i,
						url:        url,
						intent:     intent,
						persona:    basePersona,
						tracePath:  indexedPath(tracePath, i, sessions),
						memoryPath: indexedPath(memoryPath, i, sessions),
					})
					if err != nil {
						return fmt.Errorf("session %d: %w", i+1, err)
					}
					results[i] = result
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			for i, result := range results {
				logger.Info("Session summary",
					zap.Int("session", i+1),
					zap.Int("cycles", result.CyclesCompleted),
					zap.Bool("completed", result.TaskCompleted),
					zap.String("final_url", result.FinalURL),
				)
			}
			if outputPath != "" {
				data, err := json.MarshalIndent(results, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal session results: %w", err)
				}
				if err := os.WriteFile(outputPath, data, 0o644); err != nil {
					return fmt.Errorf("failed to write session results: %w", err)
				}
				logger.Info("Wrote session results", zap.String("path", outputPath))
			}
			return nil
		},
	}

	simulateCmd.Flags().String("url", "", "starting URL for the session")
	simulateCmd.Flags().String("intent", "", "goal the persona tries to accomplish")
	simulateCmd.Flags().String("persona", "", "path to a persona JSON file (a built-in persona is used when omitted)")
	simulateCmd.Flags().Int("max-cycles", 10, "maximum fast loop cycles per session")
	simulateCmd.Flags().Int("sessions", 1, "number of concurrent sessions to run")
	simulateCmd.Flags().Bool("headless", true, "run the browser headless")
	simulateCmd.Flags().String("trace", "", "write the action trace of each session to this path")
	simulateCmd.Flags().String("memory", "", "write the memory snapshot of each session to this path")
	simulateCmd.Flags().String("output", "", "write session results as JSON to this path")

	return simulateCmd
}

type sessionParams struct {
	index      int
	url        string
	intent     string
	persona    schemas.Persona
	tracePath  string
	memoryPath string
}

// runOneSession builds a fully isolated stack (embedder, memory, model
// client, browser tab) and drives a session through it.
func runOneSession(ctx context.Context, cfg config.Config, logger *zap.Logger, p sessionParams) (*agent.SessionResult, error) {
	sessionLogger := logger.With(zap.Int("session", p.index+1))

	embedder, err := embedding.NewEmbedder(ctx, cfg.Embedding, sessionLogger)
	if err != nil {
		return nil, err
	}
	client, err := llmclient.NewClient(cfg.LLM, sessionLogger)
	if err != nil {
		return nil, err
	}

	stream := memory.NewStream(embedder, sessionLogger)

	connector, err := browser.NewConnector(ctx, cfg.Browser, sessionLogger)
	if err != nil {
		return nil, err
	}
	defer connector.Close(context.Background())

	// The recorder takes no stream of its own: the agent already writes its
	// actions into memory, the recorder only keeps the replayable trace.
	rec := recorder.New(nil, sessionLogger)
	rec.Start(fmt.Sprintf("session-%d", p.index+1))

	ag := agent.New(stream, connector, client, cfg.Agent, sessionLogger, agent.WithRecorder(rec))
	if err := ag.SetPersona(ctx, p.persona); err != nil {
		return nil, fmt.Errorf("failed to load persona into memory: %w", err)
	}
	if err := ag.SetIntent(ctx, p.intent); err != nil {
		return nil, fmt.Errorf("failed to load intent into memory: %w", err)
	}

	result, err := ag.RunSession(ctx, p.url)
	if err != nil {
		return nil, err
	}
	rec.Stop()

	if p.tracePath != "" {
		if err := rec.SaveTrace(p.tracePath); err != nil {
			sessionLogger.Warn("Could not save action trace", zap.Error(err))
		}
	}
	if p.memoryPath != "" {
		if err := stream.Save(p.memoryPath); err != nil {
			sessionLogger.Warn("Could not save memory snapshot", zap.Error(err))
		}
	}
	return result, nil
}

// loadPersona reads a persona from a JSON file, or returns the built-in
// fallback persona when no path is given.
func loadPersona(path string) (schemas.Persona, error) {
	if path == "" {
		return persona.Fallback(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read persona file: %w", err)
	}
	var p schemas.Persona
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse persona file %s: %w", path, err)
	}
	return p, nil
}

// indexedPath inserts a session suffix before the extension when more than
// one session writes to the same base path.
func indexedPath(path string, index, sessions int) string {
	if path == "" || sessions == 1 {
		return path
	}
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	return fmt.Sprintf("%s-%d%s", base, index+1, ext)
}

func init() {
	rootCmd.AddCommand(newSimulateCmd())
}
