package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"posadmin/internal/bulk"
	"posadmin/internal/format"
	"posadmin/internal/model"

	"github.com/spf13/cobra"
)

type entityResult struct {
	Data model.Entity `json:"data"`
}

func (r entityResult) Table() format.Table {
	return showResult{Data: r.Data}.Table()
}

func newCreateCmd(app *App) *cobra.Command {
	var name string
	var sets []string

	cmd := &cobra.Command{
		Use:   "create <kind>",
		Short: "Create an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := model.LookupKind(args[0])
			if err != nil {
				return err
			}
			draft, err := parseSets(sets)
			if err != nil {
				return err
			}
			draft["name"] = name

			s, err := connect(cmd, app)
			if err != nil {
				return err
			}
			store, _, err := loadCollection(cmd.Context(), s, k, false)
			if err != nil {
				return err
			}
			created, err := store.Create(cmd.Context(), draft)
			if err != nil {
				return err
			}
			return writeOut(cmd, app, entityResult{Data: created})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Name")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Extra field as key=value (repeatable; JSON values are decoded)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

// parseSets turns key=value pairs into a draft. Values that parse as JSON
// (numbers, booleans, null, arrays, objects) keep their type.
func parseSets(sets []string) (model.Draft, error) {
	out := model.Draft{}
	for _, kv := range sets {
		k, v, ok := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --set %q (want key=value)", kv)
		}
		var decoded any
		if err := json.Unmarshal([]byte(v), &decoded); err == nil {
			if _, isString := decoded.(string); !isString {
				out[k] = decoded
				continue
			}
		}
		out[k] = v
	}
	return out, nil
}

func newRenameCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename <kind> <id> <name>",
		Short: "Rename an entity",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := model.LookupKind(args[0])
			if err != nil {
				return err
			}
			s, err := connect(cmd, app)
			if err != nil {
				return err
			}
			store, _, err := loadCollection(cmd.Context(), s, k, false)
			if err != nil {
				return err
			}
			updated, err := store.Update(cmd.Context(), args[1], model.Patch{"name": args[2]})
			if err != nil {
				return err
			}
			return writeOut(cmd, app, entityResult{Data: updated})
		},
	}
	return cmd
}

type failure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

type bulkResult struct {
	Data struct {
		Op        string         `json:"op"`
		Requested []string       `json:"requested"`
		Succeeded []string       `json:"succeeded"`
		Failed    []failure      `json:"failed"`
		Created   []model.Entity `json:"created,omitempty"`
	} `json:"data"`
}

func newBulkResult(op string, out bulk.Outcome) bulkResult {
	var r bulkResult
	r.Data.Op = op
	r.Data.Requested = nonNil(out.Requested)
	r.Data.Succeeded = nonNil(out.Succeeded)
	r.Data.Failed = []failure{}
	for _, id := range out.Failed {
		r.Data.Failed = append(r.Data.Failed, failure{ID: id, Error: out.Errors[id].Error()})
	}
	r.Data.Created = out.Created
	return r
}

func (r bulkResult) Table() format.Table {
	t := format.Table{Headers: []string{"ID", "RESULT", "DETAIL"}}
	created := map[int]model.Entity{}
	for i, e := range r.Data.Created {
		created[i] = e
	}
	for i, id := range r.Data.Succeeded {
		detail := ""
		if e, ok := created[i]; ok {
			detail = fmt.Sprintf("created %s %q", e.ID, e.Name)
		}
		t.Rows = append(t.Rows, []string{id, "ok", detail})
	}
	for _, f := range r.Data.Failed {
		t.Rows = append(t.Rows, []string{f.ID, "failed", f.Error})
	}
	return t
}

// bulkError is returned when a bulk command achieved nothing.
type bulkError struct {
	op    string
	kind  model.Kind
	total int
	first error
}

func (e bulkError) Error() string {
	return fmt.Sprintf("could not %s %s: %v", e.op, e.kind.Count(e.total), e.first)
}

func (e bulkError) Unwrap() error { return e.first }

func newDeleteCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <kind> <id>...",
		Short: "Delete entities (failures on some ids do not stop the rest)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := model.LookupKind(args[0])
			if err != nil {
				return err
			}
			ids := args[1:]
			if !yes {
				return fmt.Errorf("refusing to delete %s without --yes", k.Count(len(ids)))
			}
			s, err := connect(cmd, app)
			if err != nil {
				return err
			}
			store, _, err := loadCollection(cmd.Context(), s, k, false)
			if err != nil {
				return err
			}
			out := bulk.Delete(cmd.Context(), store, ids, bulk.Options{Workers: s.cfg.Workers(), Logger: s.log})
			return writeBulk(cmd, app, k, "delete", out)
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the deletion")
	return cmd
}

func newDuplicateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "duplicate <kind> <id>...",
		Short: `Copy entities under the next free "(Copy N)" name`,
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := model.LookupKind(args[0])
			if err != nil {
				return err
			}
			s, err := connect(cmd, app)
			if err != nil {
				return err
			}
			store, _, err := loadCollection(cmd.Context(), s, k, false)
			if err != nil {
				return err
			}
			out := bulk.Duplicate(cmd.Context(), store, args[1:], bulk.Options{Workers: s.cfg.Workers(), Logger: s.log})
			return writeBulk(cmd, app, k, "duplicate", out)
		},
	}
	return cmd
}

// writeBulk prints the outcome. The command fails only when nothing succeeded.
func writeBulk(cmd *cobra.Command, app *App, k model.Kind, op string, out bulk.Outcome) error {
	if err := writeOut(cmd, app, newBulkResult(op, out)); err != nil {
		return err
	}
	if out.AllFailed() {
		return bulkError{op: op, kind: k, total: len(out.Requested), first: out.FirstError()}
	}
	return nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
