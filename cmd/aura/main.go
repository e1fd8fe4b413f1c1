// Command aura is AURA's CLI entrypoint (SPEC_FULL.md §4.18), grounded on
// the teacher's cmd/nerd/main.go (cobra root command, persistent flags,
// zap logger bootstrap). It is intentionally a thin wrapper — all logic
// lives in internal/*, so the cognitive core is testable without the CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"codenerd/internal/capability"
	"codenerd/internal/checkpoint"
	"codenerd/internal/cognitive"
	"codenerd/internal/config"
	"codenerd/internal/diff"
	"codenerd/internal/healing"
	"codenerd/internal/logging"
	"codenerd/internal/memory"
	"codenerd/internal/parser"
	"codenerd/internal/provider"
	"codenerd/internal/provider/providertest"
	"codenerd/internal/runner"
	"codenerd/internal/safety"
	"codenerd/internal/snapshot"
	"codenerd/internal/value"
)

var (
	flagWorkspace  string
	flagVerbose    bool
	flagProvider   string
	flagMemoryFile string

	logger *zap.Logger
	audit  *logging.Audit
)

var rootCmd = &cobra.Command{
	Use:   "aura",
	Short: "AURA — a programming language and runtime cooperatively driven by humans and AI agents",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(flagVerbose)
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		audit = logging.NewAudit(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagWorkspace, "workspace", "w", "", "workspace directory (default: current)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagProvider, "provider", "", "agent provider: genai | openai_compat | mock")
	rootCmd.PersistentFlags().StringVar(&flagMemoryFile, "memory-file", "", "path to the healing memory document")

	rootCmd.AddCommand(runCmd, healCmd, undoCmd, redoCmd, memoryCmd)
	memoryCmd.AddCommand(memoryShowCmd, memoryPruneCmd)

	runCmd.Flags().Bool("cognitive", true, "drive the run with the agent-backed cognitive runtime (false = null runtime only)")
	healCmd.Flags().String("error", "", "the error message to heal")
	healCmd.Flags().Bool("safe", false, "snapshot the source before consulting the provider")
	healCmd.Flags().Bool("verify", false, "run the patch through a parse-verification pass before accepting it")
	memoryPruneCmd.Flags().Int("keep", 100, "number of reasoning episodes to keep")
}

func loadConfig() (config.Config, error) {
	ws := flagWorkspace
	if ws == "" {
		ws, _ = os.Getwd()
	}
	overrides := config.Config{Provider: flagProvider, MemoryFile: flagMemoryFile}
	return config.Load(ws, overrides)
}

// openSnapshotStore rehydrates the snapshot manager and undo history
// persisted under cfg.SnapshotDir by a prior `aura` invocation, so
// `undo`/`redo` (and a later `heal`) see healing actions recorded by an
// earlier process rather than starting from an empty in-memory history.
func openSnapshotStore(cfg config.Config) (*snapshot.Manager, *snapshot.UndoManager, error) {
	snaps, err := snapshot.LoadManager(cfg.SnapshotCapacity, cfg.SnapshotDir)
	if err != nil {
		return nil, nil, fmt.Errorf("loading snapshots: %w", err)
	}
	undo, err := snapshot.LoadUndoManager(snaps, cfg.UndoHistoryCap, cfg.SnapshotDir)
	if err != nil {
		return nil, nil, fmt.Errorf("loading undo history: %w", err)
	}
	return snaps, undo, nil
}

func buildProvider(cfg config.Config) (provider.AgentProvider, error) {
	switch cfg.Provider {
	case "genai":
		return provider.NewGenAIProvider(context.Background(), cfg.APIKey, cfg.Model)
	case "openai_compat":
		return provider.NewOpenAICompatProvider(cfg.APIKey, cfg.BaseURL, cfg.Model), nil
	default:
		return providertest.NewMockProvider(), nil
	}
}

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "run the cognitive runner end-to-end against a real or mock provider",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cognitiveEnabled, _ := cmd.Flags().GetBool("cognitive")

		p, err := buildProvider(cfg)
		if err != nil {
			return fmt.Errorf("building provider: %w", err)
		}

		checkpoints := checkpoint.NewManager(cfg.CheckpointCapacity)
		caps := capability.Standard()

		var newRuntime runner.NewRuntime
		if cognitiveEnabled {
			newRuntime = func() cognitive.Runtime {
				rtCfg := cognitive.Config{
					MaxFixLines:                     cfg.MaxFixLines,
					MaxBacktrackDepth:               cfg.MaxBacktrackDepth,
					MaxDeliberationsWithoutProgress: cfg.MaxDeliberationsWithoutProgress,
					MaxDeliberations:                cfg.MaxDeliberations,
				}
				return cognitive.New(p, rtCfg, nil, nil, args[0])
			}
		}

		runnerCfg := runner.Config{MaxRetries: cfg.MaxRetries, Validator: safety.New(safety.Config{MaxFixLines: cfg.MaxFixLines})}
		result := runner.Run(string(src), runnerCfg, newRuntime, checkpoints, caps)
		if result.Err != nil {
			return result.Err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", value.Display(result.Value))
		if len(result.AppliedFixes) > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "(%d fix(es) applied over %d retries)\n", len(result.AppliedFixes), result.Retries)
		}
		return nil
	},
}

var healCmd = &cobra.Command{
	Use:   "heal <file>",
	Short: "drive the healing engine directly against a source file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		errText, _ := cmd.Flags().GetString("error")
		safe, _ := cmd.Flags().GetBool("safe")
		verify, _ := cmd.Flags().GetBool("verify")

		p, err := buildProvider(cfg)
		if err != nil {
			return err
		}
		snaps, undo, err := openSnapshotStore(cfg)
		if err != nil {
			return err
		}
		engine := healing.NewEngine(p, snaps, undo, 0.6, true)

		audit.HealingAttempt(args[0])
		ctx := context.Background()
		files := []snapshot.FileSnapshot{{Path: args[0], Content: string(src)}}

		validator := safety.New(safety.Config{MaxFixLines: cfg.MaxFixLines})
		originalProg, err := parser.Parse(string(src))
		if err != nil {
			return fmt.Errorf("parsing original source: %w", err)
		}
		originalGoals := originalProg.GoalDescriptions()

		switch {
		case verify:
			result, failure, agentErr := engine.HealAndVerify(ctx, args[0], errText, provider.Context{Source: string(src)}, provider.SourceLocation{File: args[0]}, files, func(patchText string) error {
				verdict := validator.Validate(patchText, originalGoals)
				if !verdict.Verified {
					return fmt.Errorf("%s", verdict.Reason)
				}
				return nil
			})
			if agentErr != nil {
				return agentErr
			}
			if failure != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "verification failed: %s (snapshot %s)\n", failure.Error, failure.SnapshotID)
				return nil
			}
			return printHealingResult(cmd, result.HealingResult, args[0], string(src))
		case safe:
			result, agentErr := engine.HealErrorSafe(ctx, args[0], errText, provider.Context{Source: string(src)}, provider.SourceLocation{File: args[0]}, files)
			if agentErr != nil {
				return agentErr
			}
			fmt.Fprintf(cmd.OutOrStdout(), "snapshot: %s\n", result.SnapshotID)
			return printHealingResult(cmd, result.HealingResult, args[0], string(src))
		default:
			result, agentErr := engine.HealError(ctx, errText, provider.Context{Source: string(src)}, provider.SourceLocation{File: args[0]})
			if agentErr != nil {
				return agentErr
			}
			return printHealingResult(cmd, *result, args[0], string(src))
		}
	},
}

func printHealingResult(cmd *cobra.Command, result healing.HealingResult, path, oldSrc string) error {
	audit.HealingResult(path, string(result.Kind))
	switch result.Kind {
	case healing.ResultFixed:
		fmt.Fprintln(cmd.OutOrStdout(), diff.Unified(path, path, oldSrc, result.Patch.NewCode))
	case healing.ResultSuggested:
		fmt.Fprintf(cmd.OutOrStdout(), "%d suggestion(s) (not auto-applied)\n", len(result.Suggestions))
	case healing.ResultNeedsHuman:
		fmt.Fprintf(cmd.OutOrStdout(), "needs human input: %s\n", result.Reason)
	case healing.ResultCannotFix:
		fmt.Fprintln(cmd.OutOrStdout(), "cannot fix")
	}
	return nil
}

var undoCmd = &cobra.Command{
	Use:   "undo",
	Short: "undo the most recent recorded healing action",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		_, undo, err := openSnapshotStore(cfg)
		if err != nil {
			return err
		}
		action, snap, err := undo.PrepareUndo()
		if err != nil {
			return err
		}
		for _, f := range snap.Files {
			if err := os.WriteFile(f.Path, []byte(f.Content), 0o644); err != nil {
				return err
			}
		}
		if err := undo.ConfirmUndo(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "undid: %s\n", action.Description)
		return nil
	},
}

var redoCmd = &cobra.Command{
	Use:   "redo",
	Short: "redo the most recently undone healing action",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		_, undo, err := openSnapshotStore(cfg)
		if err != nil {
			return err
		}
		action, err := undo.PrepareRedo()
		if err != nil {
			return err
		}
		if err := undo.ConfirmRedo(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "redid: %s\n", action.Description)
		return nil
	},
}

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "inspect the healing memory document",
}

var memoryShowCmd = &cobra.Command{
	Use:   "show",
	Short: "print the healing memory document's patterns and episode count",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		doc, err := memory.Load(cfg.MemoryFile)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "version: %s\n", doc.Version)
		fmt.Fprintf(cmd.OutOrStdout(), "patterns: %d\n", len(doc.Patterns))
		for _, p := range doc.Patterns {
			fmt.Fprintf(cmd.OutOrStdout(), "  - %q -> %q (seen %d times)\n", p.Error, p.Fix, p.Count)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "episodes: %d\n", len(doc.ReasoningEpisodes))
		return nil
	},
}

var memoryPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "trim the reasoning-episode list to the most recent N entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		keep, _ := cmd.Flags().GetInt("keep")
		doc, err := memory.Load(cfg.MemoryFile)
		if err != nil {
			return err
		}
		if len(doc.ReasoningEpisodes) > keep {
			doc.ReasoningEpisodes = doc.ReasoningEpisodes[len(doc.ReasoningEpisodes)-keep:]
		}
		if err := memory.Save(cfg.MemoryFile, doc); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "kept %d episode(s)\n", len(doc.ReasoningEpisodes))
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
