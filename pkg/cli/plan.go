package cli

import (
	"github.com/spf13/cobra"

	"github.com/pactplan/pactplan/pkg/models"
)

var (
	planPactPath    string
	planDescription string
	planIndex       int
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Build and print the matching execution plan for a pact interaction",
	RunE:  runPlan,
}

func init() {
	planCmd.Flags().StringVar(&planPactPath, "pact", "", "Path to the pact file (required)")
	planCmd.Flags().StringVar(&planDescription, "description", "", "Select the interaction by description")
	planCmd.Flags().IntVar(&planIndex, "interaction", 0, "Select the interaction by index")
	_ = planCmd.MarkFlagRequired("pact")
}

func runPlan(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	pact, err := models.LoadPactFile(planPactPath)
	if err != nil {
		return err
	}
	interaction, err := selectInteraction(pact, planDescription, planIndex)
	if err != nil {
		return err
	}
	built, _, err := buildPlanFor(pact, interaction, cfg, newLogger(cfg))
	if err != nil {
		return err
	}
	cmd.Print(renderPlan(built.PrettyForm(), false))
	return nil
}
