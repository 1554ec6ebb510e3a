package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/persimmon-labs/uxagent-cli/internal/llmclient"
	"github.com/persimmon-labs/uxagent-cli/internal/observability"
	"github.com/persimmon-labs/uxagent-cli/internal/persona"
)

// newPersonaCmd creates and configures the `persona` command.
func newPersonaCmd() *cobra.Command {
	personaCmd := &cobra.Command{
		Use:   "persona",
		Short: "Generates realistic user personas for simulations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			count, _ := cmd.Flags().GetInt("count")
			outputPath, _ := cmd.Flags().GetString("output")

			constraints := persona.Constraints{}
			constraints.AgeRange, _ = cmd.Flags().GetString("age-range")
			constraints.Gender, _ = cmd.Flags().GetString("gender")
			constraints.TechExperience, _ = cmd.Flags().GetString("tech-experience")
			constraints.IncomeLevel, _ = cmd.Flags().GetString("income")
			constraints.EducationLevel, _ = cmd.Flags().GetString("education")

			client, err := llmclient.NewClient(appCfg.LLM, logger)
			if err != nil {
				return err
			}

			generator := persona.NewGenerator(client, logger)
			personas := generator.GenerateN(ctx, count, constraints)

			data, err := json.MarshalIndent(personas, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal personas: %w", err)
			}

			if outputPath == "" {
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			if err := os.WriteFile(outputPath, data, 0o644); err != nil {
				return fmt.Errorf("failed to write personas: %w", err)
			}
			logger.Info("Wrote personas", zap.String("path", outputPath), zap.Int("count", len(personas)))
			return nil
		},
	}

	personaCmd.Flags().Int("count", 1, "number of personas to generate")
	personaCmd.Flags().String("age-range", "Any", "age range constraint (e.g. 18-25, 26-35)")
	personaCmd.Flags().String("gender", "Any", "gender constraint")
	personaCmd.Flags().String("tech-experience", "Any", "tech experience constraint (Beginner, Intermediate, Advanced)")
	personaCmd.Flags().String("income", "Any", "income level constraint (Low, Medium, High)")
	personaCmd.Flags().String("education", "Any", "education level constraint")
	personaCmd.Flags().String("output", "", "write personas as JSON to this path instead of stdout")

	return personaCmd
}

func init() {
	rootCmd.AddCommand(newPersonaCmd())
}
