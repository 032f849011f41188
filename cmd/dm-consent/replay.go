package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/cvsubs74/dm-consent/pkg/datamap"
	"github.com/cvsubs74/dm-consent/pkg/output"
	"github.com/cvsubs74/dm-consent/pkg/projector"
	"github.com/cvsubs74/dm-consent/pkg/scenario"
	"github.com/spf13/cobra"
)

func newReplayCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "replay <scenario.yaml>",
		Short: "Apply a scenario file to an empty Data Map and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			sc, err := scenario.Load(args[0])
			if err != nil {
				return err
			}

			vocab := cfg.Vocabulary
			in := datamap.NewIntegrations(datamap.NewStore(),
				datamap.WithVocabulary(func() datamap.Vocabulary { return vocab }),
				datamap.WithVendorScanner(sc.Scanner()),
			)

			// step lines go to stderr so stdout stays a clean document
			progress := cmd.ErrOrStderr()
			if format == "text" {
				progress = cmd.OutOrStdout()
			}
			sum, err := sc.Replay(cmd.Context(), in, func(n int, op string, result datamap.Result, err error) {
				output.PrintStep(progress, n, op, result, err)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(progress, "%d applied, %d rejected\n\n", sum.Applied, sum.Rejected)

			return render(cmd.OutOrStdout(), format, in.Store())
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json, or dot")
	return cmd
}

func render(w io.Writer, format string, store *datamap.Store) error {
	switch format {
	case "text":
		output.PrintDataMap(w, store)
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(store.Snapshot())
	case "dot":
		dot, err := projector.RenderDOT(projector.Project(store))
		if err != nil {
			return err
		}
		_, err = w.Write(dot)
		return err
	default:
		return fmt.Errorf("unknown format %q (want text, json, or dot)", format)
	}
}
