package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/listenupapp/exercise-resolver/internal/matcher"
	"github.com/listenupapp/exercise-resolver/internal/search"
)

type resolveOutput struct {
	Query       matcher.Query       `json:"query"`
	Matched     bool                `json:"matched"`
	Tier        int                 `json:"tier,omitempty"`
	Confidence  matcher.Confidence  `json:"confidence,omitempty"`
	ID          string              `json:"id,omitempty"`
	Name        string              `json:"name,omitempty"`
	ImageURL    string              `json:"imageUrl,omitempty"`
	Suggestions []search.Suggestion `json:"suggestions,omitempty"`
}

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var equipment, muscle string
	var suggest bool
	var limit int

	cmd := &cobra.Command{
		Use:   "resolve <name>",
		Short: "Resolve one exercise name",
		Long: `Resolve an exercise name to a catalog entry.

Extra arguments are joined with spaces, so quoting the name is optional.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			svc, err := ctx.service(cmd)
			if err != nil {
				return err
			}

			q := matcher.Query{
				Name:         strings.Join(args, " "),
				Equipment:    equipment,
				TargetMuscle: muscle,
			}
			res, err := svc.Resolve(cmd.Context(), q)
			if err != nil {
				return err
			}

			out := resolveOutput{Query: q}
			if res != nil && res.Entry != nil {
				out.Matched = true
				out.Tier = res.Tier
				out.Confidence = res.Confidence
				out.ID = res.Entry.ID
				out.Name = res.Entry.Name
				out.ImageURL, _ = svc.ImageURL(res.Entry)
			} else if suggest {
				out.Suggestions, err = svc.Suggest(cmd.Context(), search.SuggestParams{
					Query:     q.Name,
					Equipment: equipment,
					Muscle:    muscle,
					Limit:     limit,
				})
				if err != nil {
					return err
				}
			}

			if ctx.opts.json {
				return writeJSON(cmd, out)
			}
			printResolve(cmd, out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&equipment, "equipment", "e", "", "Equipment hint, e.g. barbell")
	cmd.Flags().StringVarP(&muscle, "muscle", "m", "", "Target muscle hint, e.g. chest")
	cmd.Flags().BoolVar(&suggest, "suggest", false, "List similar catalog entries when nothing matches")
	cmd.Flags().IntVar(&limit, "limit", 5, "Maximum suggestions")
	return cmd
}

func printResolve(cmd *cobra.Command, out resolveOutput) {
	w := cmd.OutOrStdout()
	if !out.Matched {
		fmt.Fprintf(w, "No match for %q\n", out.Query.Name)
		if len(out.Suggestions) > 0 {
			rows := make([][]string, 0, len(out.Suggestions))
			for _, s := range out.Suggestions {
				rows = append(rows, []string{s.ID, s.Name, strconv.FormatFloat(s.Score, 'f', 3, 64)})
			}
			fmt.Fprintln(w, "Did you mean:")
			fmt.Fprintln(w, renderTable([]string{"ID", "Name", "Score"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight}))
		}
		return
	}

	rows := [][]string{
		{"ID", out.ID},
		{"Name", out.Name},
		{"Tier", strconv.Itoa(out.Tier)},
		{"Confidence", string(out.Confidence)},
		{"Image", orDash(out.ImageURL)},
	}
	fmt.Fprintln(w, renderTable([]string{"Field", "Value"}, rows, nil))
}
