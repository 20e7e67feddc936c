package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"multivox/internal/api"
	"multivox/internal/history"
	"multivox/internal/language"
	"multivox/internal/logging"
	"multivox/internal/translation"
)

func newTranslateCommand(ctx *commandContext) *cobra.Command {
	var toFlag string
	var fromFlag string
	var ownerFlag string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "translate <text...>",
		Short: `Translate text (use "-" to read from stdin)`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			logger, err := newCLILogger(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			text := strings.Join(args, " ")
			if text == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(data)
			}
			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("text is required")
			}

			target := language.Normalize(toFlag)
			if target == "" || target == language.Same || !language.IsSupported(target) {
				return fmt.Errorf("unsupported target language %q (see multivox languages)", toFlag)
			}
			source := strings.TrimSpace(fromFlag)
			if source != "" && !strings.EqualFold(source, "auto") {
				if source = language.Normalize(source); source == "" {
					return fmt.Errorf("unrecognized source language %q", fromFlag)
				}
			}

			client := newTranslationClient(cfg)
			result, err := translation.TranslateDocument(cmd.Context(), client, text, source, target, cfg.Translation.ChunkSize)
			if err != nil {
				return fmt.Errorf("translate: %w", err)
			}

			resp := api.TranslateResponse{TranslatedText: result.Text, DetectedSourceLang: result.SourceLang}
			if owner := strings.TrimSpace(ownerFlag); owner != "" {
				if !cfg.History.Enabled {
					logging.WarnWithContext(logger, "history disabled; translation not saved", "history_disabled",
						logging.String("owner", owner),
						logging.String(logging.FieldErrorHint, "set history.enabled = true"),
					)
				} else {
					store, err := history.Open(cmd.Context(), cfg.History.DBPath)
					if err != nil {
						return fmt.Errorf("open history store: %w", err)
					}
					defer store.Close()
					entry, err := store.Save(cmd.Context(), history.Entry{
						Owner:          owner,
						SourceText:     text,
						SourceLang:     result.SourceLang,
						TargetLang:     target,
						TranslatedText: result.Text,
					})
					if err != nil {
						return fmt.Errorf("save translation: %w", err)
					}
					resp.TranslationID = entry.ID
				}
			}

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.TranslatedText)
			return nil
		},
	}

	cmd.Flags().StringVarP(&toFlag, "to", "t", language.Default, "Target language code")
	cmd.Flags().StringVarP(&fromFlag, "from", "f", "auto", "Source language code (auto detects)")
	cmd.Flags().StringVar(&ownerFlag, "owner", "", "Save the translation to this owner's history")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
	return cmd
}
