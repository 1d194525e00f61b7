package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"posadmin/internal/api"
	"posadmin/internal/api/apitest"
	"posadmin/internal/config"
	"posadmin/internal/model"
)

func runCLI(t *testing.T, srv *apitest.Server, args ...string) (stdout []byte, stderr []byte, err error) {
	t.Helper()

	cmd := newRootCmd(&App{client: srv})

	var outBuf bytes.Buffer
	var errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)

	e := cmd.Execute()
	return outBuf.Bytes(), errBuf.Bytes(), e
}

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("POSADMIN_CONFIG_DIR", dir)
	t.Setenv("POSADMIN_DB", "")
	t.Setenv("POSADMIN_FORMAT", "")
	t.Setenv("POSADMIN_LOG_LEVEL", "")
	return dir
}

func seedTerms(n int) *apitest.Server {
	items := make([]model.Entity, n)
	for i := range items {
		items[i] = model.Entity{ID: fmt.Sprint(i + 1), Name: fmt.Sprintf("Term %02d", i+1)}
	}
	return apitest.NewServer().Seed(model.KindPaymentTerms, items...)
}

func seedApps() *apitest.Server {
	return apitest.NewServer().
		Seed(model.KindCategories,
			model.Entity{ID: "1", Name: "Sales"},
			model.Entity{ID: "2", Name: "Admin"},
		).
		Seed(model.KindApps,
			model.Entity{ID: "10", Name: "Payroll", CategoryID: "1"},
			model.Entity{ID: "11", Name: "Paypal", CategoryID: "2"},
			model.Entity{ID: "12", Name: "Inventory", CategoryID: "1"},
			model.Entity{ID: "13", Name: "Reports", CategoryID: "2"},
		)
}

func decode(t *testing.T, b []byte) map[string]any {
	t.Helper()
	var env map[string]any
	if err := json.Unmarshal(b, &env); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, string(b))
	}
	return env
}

func entityIDs(t *testing.T, v any) []string {
	t.Helper()
	items, ok := v.([]any)
	if !ok {
		t.Fatalf("expected array, got %T", v)
	}
	var out []string
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			t.Fatalf("expected object, got %T", it)
		}
		id, _ := m["id"].(string)
		out = append(out, id)
	}
	return out
}

func TestKinds_ListsEveryKind(t *testing.T) {
	isolate(t)

	out, _, err := runCLI(t, apitest.NewServer(), "kinds")
	if err != nil {
		t.Fatalf("kinds: %v", err)
	}
	env := decode(t, out)
	data, _ := env["data"].([]any)
	if len(data) != len(model.KindSlugs()) {
		t.Fatalf("expected %d kinds, got %d", len(model.KindSlugs()), len(data))
	}
	if !strings.Contains(string(out), `"slug":"payment-terms"`) {
		t.Fatalf("expected payment-terms in output: %s", string(out))
	}
}

func TestList_PaginatesInNameOrder(t *testing.T) {
	isolate(t)

	out, _, err := runCLI(t, seedTerms(12), "list", "payment-terms", "--per-page", "5", "--page", "2")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	env := decode(t, out)
	got := entityIDs(t, env["data"])
	want := []string{"6", "7", "8", "9", "10"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("ids: got %v want %v", got, want)
	}
	p, _ := env["pagination"].(map[string]any)
	if p["start"] != float64(6) || p["end"] != float64(10) || p["total"] != float64(12) || p["pages"] != float64(3) {
		t.Fatalf("unexpected pagination: %#v", p)
	}
}

func TestList_PageIsClampedIntoRange(t *testing.T) {
	isolate(t)

	out, _, err := runCLI(t, seedTerms(12), "list", "payment-terms", "--per-page", "5", "--page", "9")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	env := decode(t, out)
	if got := entityIDs(t, env["data"]); strings.Join(got, ",") != "11,12" {
		t.Fatalf("expected last page, got %v", got)
	}
}

func TestList_SearchAndSortDescending(t *testing.T) {
	isolate(t)

	out, _, err := runCLI(t, seedTerms(12), "list", "payment-terms", "--search", "term 1", "--desc")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := entityIDs(t, decode(t, out)["data"])
	if strings.Join(got, ",") != "12,11,10" {
		t.Fatalf("got %v", got)
	}
}

func TestList_GroupedSearchExpandsGroupsWithHits(t *testing.T) {
	isolate(t)

	out, _, err := runCLI(t, seedApps(), "list", "apps", "--group", "--search", "pay")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	env := decode(t, out)
	groups, _ := env["groups"].([]any)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %#v", env["groups"])
	}
	for _, g := range groups {
		m := g.(map[string]any)
		if m["expanded"] != true {
			t.Fatalf("expected group %v expanded", m["label"])
		}
	}
	got := entityIDs(t, env["data"])
	if len(got) != 2 {
		t.Fatalf("expected the two hits, got %v", got)
	}
}

func TestList_GroupedWithoutExpandShowsHeadersOnly(t *testing.T) {
	isolate(t)

	out, _, err := runCLI(t, seedApps(), "list", "apps", "--group", "--expand", "Sales")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := entityIDs(t, decode(t, out)["data"])
	if strings.Join(got, ",") != "12,10" {
		t.Fatalf("expected only Sales apps (Inventory, Payroll), got %v", got)
	}
}

func TestList_Errors(t *testing.T) {
	isolate(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "unknown kind", args: []string{"list", "widgets"}, want: "unknown kind"},
		{name: "bad page size", args: []string{"list", "payment-terms", "--per-page", "7"}, want: "per-page must be one of 5, 10, 20, 50"},
		{name: "group non-groupable", args: []string{"list", "payment-terms", "--group"}, want: "cannot be grouped"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, seedTerms(3), tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestList_LoadFailureIsReturned(t *testing.T) {
	isolate(t)

	srv := seedTerms(3).FailOn(model.KindPaymentTerms, apitest.OpList, "", &api.StatusError{Code: 503, Message: "maintenance"})
	_, _, err := runCLI(t, srv, "list", "payment-terms")
	if err == nil || !strings.Contains(err.Error(), "maintenance") {
		t.Fatalf("expected load error, got %v", err)
	}
}

func TestList_TableFormat(t *testing.T) {
	isolate(t)

	out, _, err := runCLI(t, seedApps(), "list", "apps", "--format", "table")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	s := string(out)
	for _, want := range []string{"ID", "NAME", "CATEGORY", "Inventory", "Sales"} {
		if !strings.Contains(s, want) {
			t.Fatalf("expected %q in table:\n%s", want, s)
		}
	}
}

func TestShow_IncludesNavigation(t *testing.T) {
	isolate(t)

	out, _, err := runCLI(t, seedTerms(5), "show", "payment-terms", "003")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	env := decode(t, out)
	nav, _ := env["nav"].(map[string]any)
	if nav["index"] != float64(3) || nav["total"] != float64(5) || nav["prev"] != "2" || nav["next"] != "4" {
		t.Fatalf("unexpected nav: %#v", nav)
	}
}

func TestShow_FilteredOutHasNoNavigation(t *testing.T) {
	isolate(t)

	out, _, err := runCLI(t, seedTerms(5), "show", "payment-terms", "3", "--search", "term 01")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if _, ok := decode(t, out)["nav"]; ok {
		t.Fatalf("expected no nav for a filtered-out entity: %s", string(out))
	}
}

func TestShow_NotFound(t *testing.T) {
	isolate(t)

	_, _, err := runCLI(t, seedTerms(2), "show", "payment-terms", "99")
	if err == nil || !strings.Contains(err.Error(), "payment term not found: 99") {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreate_WithExtraFields(t *testing.T) {
	isolate(t)
	srv := seedTerms(1)

	out, _, err := runCLI(t, srv, "create", "payment-terms", "--name", "  Net 45 ", "--set", "days=45", "--set", "description=forty-five")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	data, _ := decode(t, out)["data"].(map[string]any)
	if data["name"] != "Net 45" || data["days"] != float64(45) || data["description"] != "forty-five" {
		t.Fatalf("unexpected created entity: %#v", data)
	}
	if n := len(srv.Items(model.KindPaymentTerms)); n != 2 {
		t.Fatalf("expected 2 stored terms, got %d", n)
	}
}

func TestCreate_Validation(t *testing.T) {
	isolate(t)

	_, _, err := runCLI(t, seedTerms(1), "create", "payment-terms", "--name", "   ")
	if err == nil || !strings.Contains(err.Error(), "name is required") {
		t.Fatalf("expected validation error, got %v", err)
	}
	_, _, err = runCLI(t, seedTerms(1), "create", "payment-terms", "--name", "x", "--set", "novalue")
	if err == nil || !strings.Contains(err.Error(), "want key=value") {
		t.Fatalf("expected --set error, got %v", err)
	}
}

func TestRename(t *testing.T) {
	isolate(t)
	srv := seedTerms(3)

	out, _, err := runCLI(t, srv, "rename", "payment-terms", "2", "Net 60")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	data, _ := decode(t, out)["data"].(map[string]any)
	if data["id"] != "2" || data["name"] != "Net 60" {
		t.Fatalf("unexpected entity: %#v", data)
	}

	_, _, err = runCLI(t, srv, "rename", "payment-terms", "42", "x")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDelete_RequiresYes(t *testing.T) {
	isolate(t)
	srv := seedTerms(2)

	_, _, err := runCLI(t, srv, "delete", "payment-terms", "1", "2")
	if err == nil || !strings.Contains(err.Error(), "refusing to delete 2 payment terms without --yes") {
		t.Fatalf("expected refusal, got %v", err)
	}
	if len(srv.Calls()) != 0 {
		t.Fatalf("expected no backend calls, got %v", srv.Calls())
	}
}

func TestDelete_PartialFailureSucceeds(t *testing.T) {
	isolate(t)
	srv := seedTerms(3).FailOn(model.KindPaymentTerms, apitest.OpDelete, "2", &api.StatusError{Code: 409, Message: "term in use"})

	out, _, err := runCLI(t, srv, "delete", "payment-terms", "1", "2", "3", "--yes")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	data, _ := decode(t, out)["data"].(map[string]any)
	succeeded, _ := data["succeeded"].([]any)
	failed, _ := data["failed"].([]any)
	if len(succeeded) != 2 || len(failed) != 1 {
		t.Fatalf("unexpected outcome: %#v", data)
	}
	f := failed[0].(map[string]any)
	if f["id"] != "2" || !strings.Contains(f["error"].(string), "term in use") {
		t.Fatalf("unexpected failure: %#v", f)
	}
	left := srv.Items(model.KindPaymentTerms)
	if len(left) != 1 || left[0].ID != "2" {
		t.Fatalf("expected only 2 left, got %v", left)
	}
}

func TestDelete_AllFailedExitsNonZero(t *testing.T) {
	isolate(t)
	srv := seedTerms(2).FailOn(model.KindPaymentTerms, apitest.OpDelete, "", &api.StatusError{Code: 403, Message: "database is read-only"})

	out, _, err := runCLI(t, srv, "delete", "payment-terms", "1", "2", "--yes")
	if err == nil || !strings.Contains(err.Error(), "could not delete 2 payment terms") {
		t.Fatalf("expected failure, got %v", err)
	}
	// The outcome is still printed for scripts.
	if !strings.Contains(string(out), `"failed"`) {
		t.Fatalf("expected outcome on stdout: %s", string(out))
	}
}

func TestDelete_UnknownIDFails(t *testing.T) {
	isolate(t)
	srv := seedTerms(2)

	out, _, err := runCLI(t, srv, "delete", "payment-terms", "9999", "--yes")
	if err == nil || !strings.Contains(err.Error(), "could not delete 1 payment term: payment term not found: 9999") {
		t.Fatalf("expected not found, got %v", err)
	}
	data, _ := decode(t, out)["data"].(map[string]any)
	if succeeded, _ := data["succeeded"].([]any); len(succeeded) != 0 {
		t.Fatalf("unknown id must not count as deleted: %#v", data)
	}

	out, _, err = runCLI(t, srv, "delete", "payment-terms", "1", "9999", "--yes")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	data, _ = decode(t, out)["data"].(map[string]any)
	succeeded, _ := data["succeeded"].([]any)
	failed, _ := data["failed"].([]any)
	if len(succeeded) != 1 || len(failed) != 1 || failed[0].(map[string]any)["id"] != "9999" {
		t.Fatalf("unexpected outcome: %#v", data)
	}
	if left := srv.Items(model.KindPaymentTerms); len(left) != 1 || left[0].ID != "2" {
		t.Fatalf("expected only 2 left, got %v", left)
	}
}

func TestDuplicate_UsesCopyNames(t *testing.T) {
	isolate(t)
	srv := apitest.NewServer().Seed(model.KindPaymentTerms,
		model.Entity{ID: "1", Name: "Net 30"},
		model.Entity{ID: "2", Name: "Net 30 (Copy)"},
	)

	out, _, err := runCLI(t, srv, "duplicate", "payment-terms", "1")
	if err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	data, _ := decode(t, out)["data"].(map[string]any)
	created, _ := data["created"].([]any)
	if len(created) != 1 || created[0].(map[string]any)["name"] != "Net 30 (Copy 2)" {
		t.Fatalf("unexpected created: %#v", data["created"])
	}
}

func TestPrefs_SetGetList(t *testing.T) {
	isolate(t)
	srv := apitest.NewServer()

	if _, _, err := runCLI(t, srv, "prefs", "set", "apps-view-mode", "grouped"); err != nil {
		t.Fatalf("prefs set: %v", err)
	}
	out, _, err := runCLI(t, srv, "prefs", "get", "apps-view-mode")
	if err != nil {
		t.Fatalf("prefs get: %v", err)
	}
	data, _ := decode(t, out)["data"].(map[string]any)
	if data["value"] != "grouped" {
		t.Fatalf("unexpected value: %#v", data)
	}

	out, _, err = runCLI(t, srv, "prefs", "list")
	if err != nil {
		t.Fatalf("prefs list: %v", err)
	}
	if !strings.Contains(string(out), `"key":"apps-view-mode"`) {
		t.Fatalf("expected key in list: %s", string(out))
	}

	if _, _, err := runCLI(t, srv, "prefs", "get", "missing"); err == nil {
		t.Fatalf("expected error for unset pref")
	}
}

func TestDB_UseAndShow(t *testing.T) {
	dir := isolate(t)
	srv := apitest.NewServer()

	if _, _, err := runCLI(t, srv, "db", "use", "/acme-db/", "--name", "Acme"); err != nil {
		t.Fatalf("db use: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.json")); err != nil {
		t.Fatalf("expected config.json: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.CurrentDB != "acme-db" || len(cfg.Databases) != 1 || cfg.Databases[0].Name != "Acme" {
		t.Fatalf("unexpected config: %#v", cfg)
	}

	out, _, err := runCLI(t, srv, "db", "show", "--db", "other-db")
	if err != nil {
		t.Fatalf("db show: %v", err)
	}
	data, _ := decode(t, out)["data"].(map[string]any)
	if data["current"] != "other-db" {
		t.Fatalf("expected --db to win, got %#v", data["current"])
	}
}

func TestMetricsTextfile_WrittenAfterCommand(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "posadmin.prom")

	_, _, err := runCLI(t, seedTerms(2), "--metrics-textfile", path, "delete", "payment-terms", "1", "--yes")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if !strings.Contains(string(b), "posadmin_bulk_items_total") {
		t.Fatalf("expected bulk counter in textfile:\n%s", string(b))
	}
}

func TestPageIndex(t *testing.T) {
	t.Parallel()

	tests := []struct {
		slug    string
		want    int
		wantErr bool
	}{
		{slug: "", want: 0},
		{slug: "apps", want: 0},
		{slug: "payment_terms", want: 1},
		{slug: "properties", want: 4},
		{slug: "categories", wantErr: true},
		{slug: "widgets", wantErr: true},
	}
	for _, tt := range tests {
		got, err := pageIndex(tt.slug)
		if (err != nil) != tt.wantErr {
			t.Fatalf("pageIndex(%q) err = %v, wantErr %v", tt.slug, err, tt.wantErr)
		}
		if err == nil && got != tt.want {
			t.Fatalf("pageIndex(%q) = %d, want %d", tt.slug, got, tt.want)
		}
	}
}
