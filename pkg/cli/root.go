// Package cli implements the pactplan command set: building matching
// execution plans from pact files and executing them against actual
// requests.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pactplan/pactplan/pkg/config"
	"github.com/pactplan/pactplan/pkg/logging"
	"github.com/pactplan/pactplan/pkg/models"
	"github.com/pactplan/pactplan/pkg/plan"
)

var (
	configPath string

	// Version is injected during build
	Version = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "pactplan",
	Short: "pactplan builds and executes pact matching execution plans",
	Long: `pactplan compiles the expected requests of a pact file into matching
execution plans, prints them, and executes them against actual requests.

Configuration can be provided via a YAML file passed with --config.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if code, ok := err.(exitError); ok {
			os.Exit(int(code))
		}
		os.Exit(1)
	}
}

// exitError carries a specific process exit code through cobra.
type exitError int

func (e exitError) Error() string {
	return fmt.Sprintf("exit code %d", int(e))
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a pactplan.yaml configuration file")
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(executeCmd)
}

// loadConfig reads the configured file, or the defaults when none is given.
func loadConfig() (config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.LoadFromFile(configPath)
}

func newLogger(cfg config.Config) *slog.Logger {
	return logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: logging.ParseFormat(cfg.Log.Format),
		Output: os.Stderr,
	})
}

// selectInteraction picks an HTTP interaction from a pact by description, or
// by index when no description is given.
func selectInteraction(pact *models.Pact, description string, index int) (*models.SynchronousHTTP, error) {
	if description != "" {
		for _, interaction := range pact.Interactions {
			if http := interaction.AsHTTP(); http != nil && http.Description() == description {
				return http, nil
			}
		}
		return nil, fmt.Errorf("no HTTP interaction with description %q", description)
	}
	if index < 0 || index >= len(pact.Interactions) {
		return nil, fmt.Errorf("interaction index %d out of range (pact has %d)", index, len(pact.Interactions))
	}
	http := pact.Interactions[index].AsHTTP()
	if http == nil {
		return nil, fmt.Errorf("interaction %d is not an HTTP interaction", index)
	}
	return http, nil
}

// buildPlanFor compiles the request plan for an interaction under the given
// configuration.
func buildPlanFor(pact *models.Pact, interaction *models.SynchronousHTTP, cfg config.Config, logger *slog.Logger) (*plan.ExecutionPlan, *plan.MatchingContext, error) {
	ctx := plan.NewMatchingContext(pact, interaction, logger)
	ctx.Config.AllowUnexpectedEntries = cfg.Matching.AllowUnexpectedEntries
	ctx.Config.ShowColour = cfg.Output.Colour
	built, err := plan.BuildRequestPlan(&interaction.Request, plan.NewBuilderRegistry(), ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("building plan for %q: %w", interaction.Description(), err)
	}
	return built, ctx, nil
}
