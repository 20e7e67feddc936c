package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"multivox/internal/api"
	"multivox/internal/config"
	"multivox/internal/history"
)

func openHistory(cmd *cobra.Command, cfg *config.Config) (*history.Store, error) {
	if !cfg.History.Enabled {
		return nil, fmt.Errorf("translation history is disabled (history.enabled = false)")
	}
	store, err := history.Open(cmd.Context(), cfg.History.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	return store, nil
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var ownerFlag string
	var limitFlag int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List saved translations for an owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			store, err := openHistory(cmd, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			owner := strings.TrimSpace(ownerFlag)
			entries, err := store.ListByOwner(cmd.Context(), owner, limitFlag)
			if err != nil {
				return err
			}
			dtos := api.FromHistoryEntries(entries)
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), api.HistoryListResponse{Owner: owner, Entries: dtos})
			}
			out := cmd.OutOrStdout()
			if len(dtos) == 0 {
				fmt.Fprintf(out, "No translations saved for %s\n", owner)
				return nil
			}
			rows := make([][]string, 0, len(dtos))
			for _, entry := range dtos {
				rows = append(rows, []string{
					entry.ID,
					entry.CreatedAt,
					entry.SourceLang + " -> " + entry.TargetLang,
					truncate(entry.SourceText, 40),
					truncate(entry.TranslatedText, 40),
				})
			}
			renderTabular(out, []string{"ID", "Created", "Languages", "Source", "Translation"}, rows, nil)
			return nil
		},
	}

	cmd.Flags().StringVar(&ownerFlag, "owner", "", "Owner whose translations to list (required)")
	cmd.Flags().IntVarP(&limitFlag, "limit", "n", history.DefaultListLimit, "Maximum entries to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print entries as JSON")
	_ = cmd.MarkFlagRequired("owner")

	cmd.AddCommand(newHistoryShowCommand(ctx))
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one saved translation as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			store, err := openHistory(cmd, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			entry, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), api.FromHistoryEntry(entry))
		},
	}
}

func truncate(value string, limit int) string {
	value = strings.Join(strings.Fields(value), " ")
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
