package main

import (
	"github.com/spf13/cobra"

	"multivox/internal/api"
	"multivox/internal/language"
)

func newLanguagesCommand() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:         "languages",
		Short:       "List supported target languages",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			langs := api.FromLanguages(language.Supported())
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), api.LanguagesResponse{Default: language.Default, Languages: langs})
			}
			rows := make([][]string, 0, len(langs)+1)
			for _, lang := range langs {
				rows = append(rows, []string{lang.Code, lang.Name})
			}
			rows = append(rows, []string{language.Same, language.DisplayName(language.Same)})
			renderTabular(cmd.OutOrStdout(), []string{"Code", "Language"}, rows, nil)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the catalog as JSON")
	return cmd
}
