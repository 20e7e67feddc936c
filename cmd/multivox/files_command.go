package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"multivox/internal/logging"
	"multivox/internal/media"
)

type storedFile struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
	Modified  string `json:"modified"`
}

func newFilesCommand(ctx *commandContext) *cobra.Command {
	filesCmd := &cobra.Command{
		Use:   "files",
		Short: "Manage stored media assets",
	}

	filesCmd.AddCommand(newFilesListCommand(ctx))
	filesCmd.AddCommand(newFilesCleanCommand(ctx))

	return filesCmd
}

func newFilesListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List media in the storage directory, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			files, err := media.List(cfg.Paths.StorageDir)
			if err != nil {
				return fmt.Errorf("list stored media: %w", err)
			}

			if jsonOutput {
				out := make([]storedFile, 0, len(files))
				for _, file := range files {
					out = append(out, storedFile{
						Name:      file.Name,
						SizeBytes: file.Size,
						Modified:  file.ModTime.UTC().Format(time.RFC3339),
					})
				}
				return printJSON(cmd.OutOrStdout(), out)
			}

			out := cmd.OutOrStdout()
			if len(files) == 0 {
				fmt.Fprintln(out, "No stored media")
				return nil
			}
			var total int64
			rows := make([][]string, 0, len(files))
			for _, file := range files {
				total += file.Size
				rows = append(rows, []string{
					file.Name,
					formatAge(time.Since(file.ModTime)),
					humanize.Bytes(uint64(file.Size)),
				})
			}
			renderTabular(out, []string{"File", "Age", "Size"}, rows,
				[]columnAlignment{alignLeft, alignRight, alignRight})
			fmt.Fprintf(out, "Total: %d files, %s in %s\n", len(files), humanize.Bytes(uint64(total)), cfg.Paths.StorageDir)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print files as JSON")
	return cmd
}

func newFilesCleanCommand(ctx *commandContext) *cobra.Command {
	var maxAge time.Duration

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove stored media older than --max-age",
		Long: `Remove stored media older than --max-age.

Without --max-age the retention.max_age_hours setting is used. When neither is
set nothing is removed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			age := maxAge
			if age <= 0 {
				age = cfg.RetentionMaxAge()
			}
			out := cmd.OutOrStdout()
			if age <= 0 {
				fmt.Fprintln(out, "Retention disabled; pass --max-age to clean anyway")
				return nil
			}
			logger, err := newCLILogger(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			result := media.Sweep(cmd.Context(), cfg.Paths.StorageDir, age, logging.NewComponentLogger(logger, "retention"))
			if len(result.Removed) == 0 && len(result.Errors) == 0 {
				fmt.Fprintf(out, "No media older than %s\n", age)
				return nil
			}
			fmt.Fprintf(out, "Removed %d files (%s)\n", len(result.Removed), humanize.Bytes(uint64(result.Freed)))
			if len(result.Errors) > 0 {
				msgs := make([]string, 0, len(result.Errors))
				for _, e := range result.Errors {
					msgs = append(msgs, fmt.Sprintf("%s: %v", e.Path, e.Error))
				}
				return fmt.Errorf("%d removals failed:\n  %s", len(result.Errors), strings.Join(msgs, "\n  "))
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "Remove media last modified before this age (e.g. 72h)")
	return cmd
}

func formatAge(d time.Duration) string {
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return fmt.Sprintf("%dd", int(d.Hours()/24))
}
