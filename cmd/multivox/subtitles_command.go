package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"multivox/internal/language"
	"multivox/internal/pipeline"
	"multivox/internal/subtitles"
)

func newSubtitlesCommand(ctx *commandContext) *cobra.Command {
	var langFlag string
	var outPath string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "subtitles <media-file|url>",
		Short: "Transcribe media and print (or write) an SRT subtitle track",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("provide a media file path or URL. Example: multivox subtitles ./talk.mp4 --lang es\nRun multivox subtitles --help for more details")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			logger, err := newCLILogger(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			req := pipeline.Request{Language: langFlag}
			source := strings.TrimSpace(args[0])
			if isRemoteSource(source) {
				req.VideoURL = source
			} else {
				abs, err := filepath.Abs(source)
				if err != nil {
					return fmt.Errorf("resolve source path: %w", err)
				}
				info, err := os.Stat(abs)
				if err != nil {
					if os.IsNotExist(err) {
						return fmt.Errorf("source file %q not found", abs)
					}
					return fmt.Errorf("stat source: %w", err)
				}
				if info.IsDir() {
					return fmt.Errorf("source path %q is a directory", abs)
				}
				req.LocalPath = abs
			}

			stack := buildStack(cfg, logger)
			if err := stack.engine.Init(); err != nil {
				return err
			}
			if req.VideoURL != "" {
				if err := stack.acquirer.Init(); err != nil {
					return err
				}
			}

			result, err := stack.pipeline.Run(cmd.Context(), req)
			if err != nil {
				return err
			}

			stderr := cmd.ErrOrStderr()
			for _, notice := range result.Notices {
				fmt.Fprintf(stderr, "note: %s\n", notice)
			}
			for _, problem := range subtitles.Validate(result.SRT) {
				fmt.Fprintf(stderr, "warn: %s\n", problem)
			}

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), result)
			}
			if strings.TrimSpace(outPath) == "" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), result.SRT)
				return err
			}
			if err := os.WriteFile(outPath, []byte(result.SRT), 0o644); err != nil {
				return fmt.Errorf("write subtitles: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d cues (%s) to %s\n",
				subtitles.CountCues(result.SRT), language.DisplayName(result.Language), outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&langFlag, "lang", "l", language.Default, `Target language code, or "same" to keep the spoken language`)
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the SRT to this file instead of stdout")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the full result as JSON")
	return cmd
}

func isRemoteSource(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
