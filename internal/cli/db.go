package cli

import (
	"posadmin/internal/config"
	"posadmin/internal/format"

	"github.com/spf13/cobra"
)

type dbInfo struct {
	URL     string `json:"url"`
	Name    string `json:"name,omitempty"`
	Current bool   `json:"current"`
}

type dbResult struct {
	Data struct {
		Current   string   `json:"current"`
		Databases []dbInfo `json:"databases"`
	} `json:"data"`
}

func (r dbResult) Table() format.Table {
	t := format.Table{Headers: []string{"", "URL", "NAME"}}
	for _, d := range r.Data.Databases {
		mark := ""
		if d.Current {
			mark = "*"
		}
		t.Rows = append(t.Rows, []string{mark, d.URL, d.Name})
	}
	return t
}

func newDBResult(cfg *config.Config, current string) dbResult {
	var r dbResult
	r.Data.Current = current
	r.Data.Databases = []dbInfo{}
	for _, d := range cfg.Databases {
		url := config.NormalizeDB(d.URL)
		r.Data.Databases = append(r.Data.Databases, dbInfo{URL: url, Name: d.Name, Current: url == current})
	}
	return r
}

func newDBCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Tenant database selection",
	}
	cmd.AddCommand(newDBShowCmd(app))
	cmd.AddCommand(newDBUseCmd(app))
	return cmd
}

func newDBShowCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective database and the known ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return writeOut(cmd, app, newDBResult(cfg, cfg.EffectiveDB(app.DB)))
		},
	}
	return cmd
}

func newDBUseCmd(app *App) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "use <url>",
		Short: "Select the current database (registering it when new)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var saved config.Config
			err := config.Update(func(c *config.Config) error {
				if err := c.UseDB(args[0]); err != nil {
					return err
				}
				if name != "" {
					for i := range c.Databases {
						if config.NormalizeDB(c.Databases[i].URL) == c.CurrentDB {
							c.Databases[i].Name = name
						}
					}
				}
				saved = *c
				return nil
			})
			if err != nil {
				return err
			}
			return writeOut(cmd, app, newDBResult(&saved, saved.CurrentDB))
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name for the database")
	return cmd
}
