package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"posadmin/internal/collection"
	"posadmin/internal/config"
	"posadmin/internal/listpage"
	"posadmin/internal/logging"
	"posadmin/internal/model"
	"posadmin/internal/prefs"
	"posadmin/internal/tui"

	"github.com/spf13/cobra"
)

// LogFileName is the TUI log, next to config.json.
const LogFileName = "posadmin.log"

// pageKinds are the list pages of the TUI, in tab order.
var pageKinds = []model.Kind{
	model.KindApps,
	model.KindPaymentTerms,
	model.KindUsers,
	model.KindContacts,
	model.KindProperties,
}

func newTUICmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui [kind]",
		Short: "Open the interactive list pages",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slug := ""
			if len(args) == 1 {
				slug = args[0]
			}
			return runTUI(cmd, app, slug)
		},
	}
	return cmd
}

// HasListPage reports whether slug names a kind with a TUI list page.
func HasListPage(slug string) bool {
	if strings.TrimSpace(slug) == "" {
		return false
	}
	_, err := pageIndex(slug)
	return err == nil
}

func pageIndex(slug string) (int, error) {
	if strings.TrimSpace(slug) == "" {
		return 0, nil
	}
	k, err := model.LookupKind(slug)
	if err != nil {
		return 0, err
	}
	for i, pk := range pageKinds {
		if pk.Slug == k.Slug {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%s have no list page", k.Plural())
}

func runTUI(cmd *cobra.Command, app *App, slug string) error {
	start, err := pageIndex(slug)
	if err != nil {
		return err
	}

	dir, err := config.Dir()
	if err != nil {
		return err
	}
	stored, err := config.Load()
	if err != nil {
		return err
	}
	level := app.LogLevel
	if strings.TrimSpace(level) == "" {
		level = stored.LogLevel
	}
	log, closer, err := logging.NewFile(level, filepath.Join(dir, LogFileName))
	if err != nil {
		return err
	}
	defer closer.Close()
	app.log = log

	s, err := connect(cmd, app)
	if err != nil {
		return err
	}
	ps, err := openPrefs(cmd, log)
	if err != nil {
		return err
	}
	defer ps.Close()

	pages := newPages(cmd, s, ps)
	log.WithField("db", s.db).Info("tui start")
	return tui.Run(cmd.Context(), tui.Options{
		Pages:       pages,
		Start:       start,
		Tenant:      s.db,
		BannerDelay: s.cfg.BannerDelay(),
		Logger:      log,
	})
}

// newPages builds one controller per page kind. Groupable kinds share one
// categories store.
func newPages(cmd *cobra.Command, s *session, ps *prefs.Store) []*listpage.Controller {
	cats := collection.New(s.client, model.KindCategories, s.log)
	pages := make([]*listpage.Controller, 0, len(pageKinds))
	for _, k := range pageKinds {
		opts := listpage.Options{
			Kind:    k,
			Store:   collection.New(s.client, k, s.log),
			Prefs:   ps,
			PerPage: perPageFor(s.cfg, k),
			Workers: s.cfg.Workers(),
			Logger:  s.log,
		}
		if k.Groupable {
			opts.Categories = cats
		}
		pages = append(pages, listpage.New(cmd.Context(), opts))
	}
	return pages
}

// perPageFor prefers the configured page size over the kind's default.
func perPageFor(cfg config.Config, k model.Kind) int {
	if cfg.ItemsPerPage > 0 {
		return cfg.PerPage()
	}
	return k.PerPage
}
