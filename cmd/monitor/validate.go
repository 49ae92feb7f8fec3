package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lorrc/ticket-monitor/internal/config"
	"github.com/lorrc/ticket-monitor/internal/core/rules"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and rules",
	Long: `Load the environment configuration and the rules file without
contacting Freshdesk. Useful as a pre-deployment check.

Exit codes:
  0 - configuration and rules are valid
  1 - something is invalid (details printed to stderr)`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("rules", "r", "", "rules file to check (defaults to MONITOR_RULES_FILE)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	rulesFile, _ := cmd.Flags().GetString("rules")
	if rulesFile == "" {
		rulesFile = cfg.Monitor.RulesFile
	}

	evaluator, err := rules.LoadFile(rulesFile)
	if err != nil {
		return fmt.Errorf("invalid rules: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Freshdesk:     %s\n", cfg.Freshdesk.Domain)
	fmt.Fprintf(out, "  Poll interval: %s\n", cfg.Monitor.PollingInterval)
	fmt.Fprintf(out, "  Auto start:    %t\n", cfg.Monitor.AutoStart)
	fmt.Fprintf(out, "  Control auth:  %t\n", cfg.AuthEnabled())
	fmt.Fprintf(out, "  Rules:         %d\n", len(evaluator.Rules()))
	for _, rule := range evaluator.Rules() {
		fmt.Fprintf(out, "    - %s\n", rule.Name)
	}

	return nil
}
