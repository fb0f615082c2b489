// Package render projects team batches onto the player table.
package render

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/DoyleJ11/relay-dashboard/internal/telemetry"
)

// ResetHeader titles the per-row reset action column.
const ResetHeader = "Сбросить"

type Row struct {
	Tag   string   `json:"tag"`
	Team  string   `json:"team_name"`
	Cells []string `json:"cells"`
}

// Renderer is not safe for concurrent use; the collator keeps scratch buffers.
type Renderer struct {
	col *collate.Collator
}

// New builds a renderer comparing team names under locale, e.g. "ru".
// An unparseable locale falls back to language.Und.
func New(locale string) *Renderer {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Und
	}
	return &Renderer{col: collate.New(tag)}
}

// Rows flattens the batches in order and stable-sorts them by team name.
func (r *Renderer) Rows(teams []telemetry.TeamBatch) []Row {
	var rows []Row
	for _, batch := range teams {
		for _, p := range batch.Players {
			rows = append(rows, Row{
				Tag:   p.Tag.Text(),
				Team:  p.TeamName.Text(),
				Cells: p.Cells(),
			})
		}
	}
	slices.SortStableFunc(rows, func(a, b Row) int {
		return r.col.CompareString(a.Team, b.Team)
	})
	return rows
}

// WriteText writes the table with a header and one reset action per row.
func WriteText(w io.Writer, rows []Row) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := append(slices.Clone(telemetry.Columns), ResetHeader)
	if _, err := fmt.Fprintln(tw, strings.Join(header, "\t")); err != nil {
		return err
	}
	for _, row := range rows {
		line := append(slices.Clone(row.Cells), "reset/"+row.Tag)
		if _, err := fmt.Fprintln(tw, strings.Join(line, "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}
