package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/listenupapp/exercise-resolver/internal/catalog"
)

type catalogOutput struct {
	Source      string               `json:"source"`
	Version     string               `json:"version"`
	Fingerprint string               `json:"fingerprint"`
	Entries     int                  `json:"entries"`
	BuiltAt     time.Time            `json:"builtAt"`
	Diagnostics []catalog.Diagnostic `json:"diagnostics"`
}

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Load the catalog and report its size and diagnostics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer ctx.close()
			svc, err := ctx.service(cmd)
			if err != nil {
				return err
			}

			info, err := svc.Catalog()
			if err != nil {
				return err
			}
			out := catalogOutput{
				Source:      info.Source,
				Version:     info.Version,
				Fingerprint: info.Fingerprint,
				Entries:     info.Entries,
				BuiltAt:     info.BuiltAt,
				Diagnostics: info.Diagnostics,
			}
			if out.Diagnostics == nil {
				out.Diagnostics = []catalog.Diagnostic{}
			}

			if ctx.opts.json {
				return writeJSON(cmd, out)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, renderTable([]string{"Field", "Value"}, [][]string{
				{"Source", out.Source},
				{"Entries", strconv.Itoa(out.Entries)},
				{"Fingerprint", out.Fingerprint},
				{"Diagnostics", strconv.Itoa(len(out.Diagnostics))},
			}, nil))

			if len(out.Diagnostics) == 0 {
				return nil
			}
			rows := make([][]string, 0, len(out.Diagnostics))
			for _, d := range out.Diagnostics {
				rows = append(rows, []string{
					strconv.Itoa(d.Position), string(d.Kind), orDash(d.EntryID), orDash(d.Name), orDash(d.WinnerID),
				})
			}
			fmt.Fprintln(w, renderTable(
				[]string{"Position", "Kind", "ID", "Name", "Kept"},
				rows,
				[]columnAlignment{alignRight},
			))
			return nil
		},
	}
}
