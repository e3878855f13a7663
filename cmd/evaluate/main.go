package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"lead-orchestrator/internal/app"
	"lead-orchestrator/internal/common/config"
	"lead-orchestrator/internal/common/logger"
	"lead-orchestrator/internal/evaluation"
)

var (
	cfg        *config.Config
	log        logger.Logger
	configPath string
	outputDir  string
	asJSON     bool
	strict     bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run the lead qualification and message personalization evaluation suites",
		Long: `evaluate drives the live model through the evaluation suites, prints a
summary and writes every suite report as JSON to the output directory.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if configPath != "" {
				cfg, err = config.LoadFromFile(configPath)
			} else {
				cfg, err = config.Load()
			}
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if outputDir != "" {
				cfg.Evaluation.OutputDir = outputDir
			}
			log = logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a config YAML file")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output-dir", "o", "", "directory for JSON reports")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "print the run summary as JSON")
	rootCmd.PersistentFlags().BoolVar(&strict, "strict", false, "exit non-zero when the run misses the benchmark policy")

	rootCmd.AddCommand(
		runCmd("all", "Run the lead qualification and message personalization suites", evaluation.KindAll),
		runCmd("lead", "Run the lead qualification suite", evaluation.KindLeadQualification),
		runCmd("message", "Run the message personalization suite", evaluation.KindMessagePersonalization),
		comprehensiveCmd(),
		latestCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// newFramework builds the framework with the Redis index when enabled. The
// returned func releases the Redis connection.
func newFramework(ctx context.Context) (*evaluation.Framework, func(), error) {
	ai, err := app.NewAI(cfg.Grok, nil, log)
	if err != nil {
		return nil, nil, err
	}
	index, closeIndex, err := app.ConnectRedisIndex(ctx, cfg.Database.Redis, log)
	if err != nil {
		return nil, nil, err
	}
	fw := app.NewFramework(ai, cfg.Evaluation, index, nil, log)
	return fw, func() { _ = closeIndex() }, nil
}

func runCmd(use, short, kind string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			fw, closeFn, err := newFramework(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			report, err := fw.Run(ctx, kind)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				if err := printJSON(out, report.Summary); err != nil {
					return err
				}
			} else {
				printRunReport(out, report, fw.OutputDir())
			}

			policy := evaluation.PolicyFromConfig(cfg.Evaluation)
			if strict && !runHealthy(report, policy) {
				return fmt.Errorf("evaluation below policy: success rate %.1f%% (min %.1f%%)",
					report.OverallSuccessRate()*100, policy.MinSuccessRate*100)
			}
			return nil
		},
	}
}

func comprehensiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "comprehensive",
		Short: "Run prompt variation, failure case, consistency and performance suites",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			fw, closeFn, err := newFramework(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			report, err := fw.RunComprehensive(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				if err := printJSON(out, report); err != nil {
					return err
				}
			} else {
				printComprehensive(out, report)
			}

			policy := evaluation.PolicyFromConfig(cfg.Evaluation)
			if strict && !policy.Healthy(report.Suite.SuccessRate(), report.Suite.AverageResponseTime()) {
				return fmt.Errorf("comprehensive evaluation below policy: success rate %.1f%%", report.Suite.SuccessRate()*100)
			}
			return nil
		},
	}
}

func latestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "latest",
		Short: "Show the most recently published run from the Redis index",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			index, closeIndex, err := app.ConnectRedisIndex(ctx, cfg.Database.Redis, log)
			if err != nil {
				return err
			}
			defer closeIndex()
			if index == nil {
				return fmt.Errorf("redis is disabled; no evaluation index to read")
			}

			run, err := index.LatestRun(ctx)
			if err != nil {
				return err
			}
			if run == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No evaluation run has been published yet.")
				return nil
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), run)
			}
			printSummary(cmd.OutOrStdout(), *run)
			return nil
		},
	}
}
