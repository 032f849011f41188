package main

import (
	"fmt"
	"strings"

	"github.com/cvsubs74/dm-consent/pkg/pii"
	"github.com/spf13/cobra"
)

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <text>...",
		Short: "Classify text into a PII category using the configured LLM",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			backend, err := newBackend(cmd.Context(), cfg, nil)
			if err != nil {
				return err
			}
			if backend == nil {
				return fmt.Errorf("classification needs an API key (set DM_CONSENT_LLM_API_KEY or GEMINI_API_KEY)")
			}

			category := pii.NewClassifier(backend, nil).Classify(cmd.Context(), strings.Join(args, " "))
			fmt.Fprintln(cmd.OutOrStdout(), category)
			if category == pii.Error {
				return fmt.Errorf("classification failed")
			}
			return nil
		},
	}
}
