package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"multivox/internal/preflight"
)

type statusCheck struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Optional bool   `json:"optional"`
	Detail   string `json:"detail"`
}

type statusReport struct {
	ConfigPath string        `json:"configPath"`
	StorageDir string        `json:"storageDir"`
	APIBind    string        `json:"apiBind"`
	Auth       bool          `json:"auth"`
	Checks     []statusCheck `json:"checks"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var offline bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check binaries, directories, history, and the translation endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			results := preflight.RunAll(cmd.Context(), cfg, preflight.Options{SkipNetwork: offline})

			report := statusReport{
				ConfigPath: ctx.configPath,
				StorageDir: cfg.Paths.StorageDir,
				APIBind:    cfg.Paths.APIBind,
				Auth:       cfg.Paths.APIToken != "",
				Checks:     make([]statusCheck, 0, len(results)),
			}
			for _, result := range results {
				report.Checks = append(report.Checks, statusCheck{
					Name:     result.Name,
					Passed:   result.Passed,
					Optional: result.Optional,
					Detail:   result.Detail,
				})
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), report)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config: %s\n", report.ConfigPath)
			fmt.Fprintf(out, "API: %s (auth: %s)\n", report.APIBind, yesNo(report.Auth))
			rows := make([][]string, 0, len(report.Checks))
			for _, check := range report.Checks {
				rows = append(rows, []string{check.Name, checkState(check), check.Detail})
			}
			renderTabular(out, []string{"Check", "Status", "Detail"}, rows, nil)
			if failed := preflight.Failed(results); len(failed) > 0 {
				fmt.Fprintf(out, "%d required check(s) failing; multivox serve will refuse to start\n", len(failed))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the translation endpoint probe")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the report as JSON")
	return cmd
}

func checkState(check statusCheck) string {
	switch {
	case check.Passed:
		return "ok"
	case check.Optional:
		return "warn"
	default:
		return "FAIL"
	}
}
