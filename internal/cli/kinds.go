package cli

import (
	"strings"

	"posadmin/internal/format"
	"posadmin/internal/model"

	"github.com/spf13/cobra"
)

type kindInfo struct {
	Slug      string   `json:"slug"`
	Label     string   `json:"label"`
	Plural    string   `json:"plural"`
	Scoped    bool     `json:"scoped"`
	Groupable bool     `json:"groupable"`
	PerPage   int      `json:"perPage"`
	Columns   []string `json:"columns"`
}

type kindsResult struct {
	Data []kindInfo `json:"data"`
}

func (r kindsResult) Table() format.Table {
	t := format.Table{Headers: []string{"KIND", "LABEL", "SCOPED", "GROUPABLE", "COLUMNS"}}
	for _, k := range r.Data {
		t.Rows = append(t.Rows, []string{k.Slug, k.Label, yesNo(k.Scoped), yesNo(k.Groupable), strings.Join(k.Columns, ", ")})
	}
	return t
}

func newKindsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kinds",
		Short: "List the managed collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var out kindsResult
			for _, slug := range model.KindSlugs() {
				k, err := model.LookupKind(slug)
				if err != nil {
					return err
				}
				cols := k.Columns
				if cols == nil {
					cols = []string{}
				}
				out.Data = append(out.Data, kindInfo{
					Slug:      k.Slug,
					Label:     k.Label,
					Plural:    k.Plural(),
					Scoped:    k.Scoped,
					Groupable: k.Groupable,
					PerPage:   k.PerPage,
					Columns:   cols,
				})
			}
			return writeOut(cmd, app, out)
		},
	}
	return cmd
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
