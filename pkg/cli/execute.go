package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pactplan/pactplan/pkg/models"
	"github.com/pactplan/pactplan/pkg/plan"
)

var (
	executePactPath    string
	executeRequestPath string
	executeDescription string
	executeIndex       int
)

var executeCmd = &cobra.Command{
	Use:   "execute",
	Short: "Execute the matching plan against an actual request",
	Long: `Execute builds the matching execution plan for a pact interaction and
walks it against an actual request read from a JSON file. The annotated
plan is printed; the exit code is non-zero when the request does not
match.`,
	RunE: runExecute,
}

func init() {
	executeCmd.Flags().StringVar(&executePactPath, "pact", "", "Path to the pact file (required)")
	executeCmd.Flags().StringVar(&executeRequestPath, "request", "", "Path to the actual request JSON (required)")
	executeCmd.Flags().StringVar(&executeDescription, "description", "", "Select the interaction by description")
	executeCmd.Flags().IntVar(&executeIndex, "interaction", 0, "Select the interaction by index")
	_ = executeCmd.MarkFlagRequired("pact")
	_ = executeCmd.MarkFlagRequired("request")
}

func runExecute(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	pact, err := models.LoadPactFile(executePactPath)
	if err != nil {
		return err
	}
	interaction, err := selectInteraction(pact, executeDescription, executeIndex)
	if err != nil {
		return err
	}
	built, ctx, err := buildPlanFor(pact, interaction, cfg, logger)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(executeRequestPath)
	if err != nil {
		return err
	}
	actual, err := models.ParseRequest(data)
	if err != nil {
		return err
	}

	executed := plan.ExecuteRequestPlan(built, &actual, ctx)
	cmd.Print(renderPlan(executed.PrettyForm(), cfg.Output.Colour))

	if executed.Result().IsError() {
		logger.Error("request did not match", "interaction", interaction.Description())
		return exitError(1)
	}
	logger.Info("request matched", "interaction", interaction.Description())
	return nil
}
