package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/listenupapp/exercise-resolver/internal/matcher"
)

type batchRow struct {
	Query      matcher.Query      `json:"query"`
	Matched    bool               `json:"matched"`
	Tier       int                `json:"tier,omitempty"`
	Confidence matcher.Confidence `json:"confidence,omitempty"`
	ID         string             `json:"id,omitempty"`
	Name       string             `json:"name,omitempty"`
}

type batchOutput struct {
	Results []batchRow `json:"results"`
	Matched int        `json:"matched"`
	Total   int        `json:"total"`
}

func newBatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "batch <file.csv>",
		Short: "Resolve every row of a CSV file",
		Long: `Resolve a CSV of queries with columns name, equipment, muscle.

The equipment and muscle columns are optional. A first row whose first cell is
"name" is treated as a header. Use "-" to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()

			queries, err := readQueries(cmd, args[0])
			if err != nil {
				return err
			}

			svc, err := ctx.service(cmd)
			if err != nil {
				return err
			}

			results, err := svc.ResolveBatch(cmd.Context(), queries)
			if err != nil {
				return err
			}

			out := batchOutput{Results: make([]batchRow, len(queries)), Total: len(queries)}
			for i, q := range queries {
				row := batchRow{Query: q}
				if res := results[i]; res != nil && res.Entry != nil {
					row.Matched = true
					row.Tier = res.Tier
					row.Confidence = res.Confidence
					row.ID = res.Entry.ID
					row.Name = res.Entry.Name
					out.Matched++
				}
				out.Results[i] = row
			}

			if ctx.opts.json {
				return writeJSON(cmd, out)
			}
			printBatch(cmd, out)
			return nil
		},
	}
}

func readQueries(cmd *cobra.Command, path string) ([]matcher.Query, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}
	return parseQueries(r)
}

func parseQueries(r io.Reader) ([]matcher.Query, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var queries []matcher.Query
	for line := 1; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if line == 1 && len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), "name") {
			continue
		}

		q := matcher.Query{Name: field(record, 0), Equipment: field(record, 1), TargetMuscle: field(record, 2)}
		if q.Name == "" && q.Equipment == "" && q.TargetMuscle == "" {
			continue
		}
		queries = append(queries, q)
	}

	if len(queries) == 0 {
		return nil, errors.New("no queries in input")
	}
	return queries, nil
}

func field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func printBatch(cmd *cobra.Command, out batchOutput) {
	rows := make([][]string, 0, len(out.Results))
	for i, r := range out.Results {
		tier, match := "-", "-"
		if r.Matched {
			tier = strconv.Itoa(r.Tier)
			match = fmt.Sprintf("%s (%s)", r.Name, r.ID)
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), r.Query.Name, match, tier, orDash(string(r.Confidence))})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, renderTable(
		[]string{"#", "Query", "Match", "Tier", "Confidence"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
	))
	fmt.Fprintf(w, "Matched %d of %d\n", out.Matched, out.Total)
}
