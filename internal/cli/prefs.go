package cli

import (
	"errors"
	"time"

	"posadmin/internal/format"
	"posadmin/internal/logging"

	"github.com/spf13/cobra"
)

type prefEntry struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

type prefsResult struct {
	Data []prefEntry `json:"data"`
}

func (r prefsResult) Table() format.Table {
	t := format.Table{Headers: []string{"KEY", "VALUE", "UPDATED"}}
	for _, e := range r.Data {
		t.Rows = append(t.Rows, []string{e.Key, e.Value, e.UpdatedAt.Local().Format(time.DateTime)})
	}
	return t
}

type prefResult struct {
	Data prefEntry `json:"data"`
}

func (r prefResult) Table() format.Table {
	return format.Table{Headers: []string{"KEY", "VALUE"}, Rows: [][]string{{r.Data.Key, r.Data.Value}}}
}

func newPrefsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Persisted list-page preferences (page, view mode, expanded groups, sort)",
	}
	cmd.AddCommand(newPrefsGetCmd(app))
	cmd.AddCommand(newPrefsSetCmd(app))
	cmd.AddCommand(newPrefsListCmd(app))
	return cmd
}

func newPrefsGetCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print one preference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ps, err := openPrefs(cmd, logging.Discard())
			if err != nil {
				return err
			}
			defer ps.Close()
			v, ok, err := ps.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("pref not set: " + args[0])
			}
			return writeOut(cmd, app, prefResult{Data: prefEntry{Key: args[0], Value: v}})
		},
	}
	return cmd
}

func newPrefsSetCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store one preference",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ps, err := openPrefs(cmd, logging.Discard())
			if err != nil {
				return err
			}
			defer ps.Close()
			if err := ps.Set(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			return writeOut(cmd, app, prefResult{Data: prefEntry{Key: args[0], Value: args[1]}})
		},
	}
	return cmd
}

func newPrefsListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every stored preference",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ps, err := openPrefs(cmd, logging.Discard())
			if err != nil {
				return err
			}
			defer ps.Close()
			entries, err := ps.List(cmd.Context())
			if err != nil {
				return err
			}
			out := prefsResult{Data: []prefEntry{}}
			for _, e := range entries {
				out.Data = append(out.Data, prefEntry{Key: e.Key, Value: e.Value, UpdatedAt: e.UpdatedAt})
			}
			return writeOut(cmd, app, out)
		},
	}
	return cmd
}
