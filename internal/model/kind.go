package model

import (
	"fmt"
	"sort"
	"strings"
)

// Kind describes one managed entity collection and how the backend exposes it.
type Kind struct {
	// Slug is the user-facing name and the persisted-pref prefix ("payment-terms").
	Slug string
	// Label is the singular display label ("payment term").
	Label string
	// Path is the REST collection path relative to the tenant (or API root).
	Path string
	// Scoped kinds live under /{db}/...; unscoped ones under the API root.
	Scoped bool
	// StorageKey prefixes the persisted page key ("payment_terms" => payment_terms_list_page).
	StorageKey string
	// SearchFields are matched (substring, case-insensitive) besides the category name.
	SearchFields []string
	// Groupable kinds support grouped-by-category mode.
	Groupable bool
	// PerPage is the default page size.
	PerPage int
	// Columns are the extra fields shown in tables after the name.
	Columns []string
}

var (
	KindApps = Kind{
		Slug:         "apps",
		Label:        "app",
		Path:         "apps",
		StorageKey:   "apps",
		SearchFields: []string{"name", "description", "url"},
		Groupable:    true,
		PerPage:      10,
		Columns:      []string{"url", "description"},
	}
	KindPaymentTerms = Kind{
		Slug:         "payment-terms",
		Label:        "payment term",
		Path:         "payment-terms",
		Scoped:       true,
		StorageKey:   "payment_terms",
		SearchFields: []string{"name", "description"},
		PerPage:      10,
		Columns:      []string{"description"},
	}
	KindUsers = Kind{
		Slug:         "users",
		Label:        "user",
		Path:         "users",
		Scoped:       true,
		StorageKey:   "users",
		SearchFields: []string{"name", "email", "role"},
		PerPage:      10,
		Columns:      []string{"email", "role"},
	}
	KindContacts = Kind{
		Slug:         "contacts",
		Label:        "contact",
		Path:         "contacts",
		Scoped:       true,
		StorageKey:   "contacts",
		SearchFields: []string{"name", "email", "phone", "description"},
		Groupable:    true,
		PerPage:      10,
		Columns:      []string{"email", "phone"},
	}
	KindProperties = Kind{
		Slug:         "properties",
		Label:        "property",
		Path:         "properties",
		Scoped:       true,
		StorageKey:   "properties",
		SearchFields: []string{"name", "address", "city", "description"},
		Groupable:    true,
		PerPage:      10,
		Columns:      []string{"address", "city"},
	}
	// KindCategories is only read; it backs grouping and category-name search.
	KindCategories = Kind{
		Slug:         "categories",
		Label:        "category",
		Path:         "categories",
		StorageKey:   "categories",
		SearchFields: []string{"name"},
		PerPage:      20,
	}
)

var kinds = map[string]Kind{}

func init() {
	for _, k := range []Kind{KindApps, KindPaymentTerms, KindUsers, KindContacts, KindProperties, KindCategories} {
		kinds[k.Slug] = k
	}
}

// LookupKind resolves a slug, accepting a few spellings ("payment_terms", "paymentTerms").
func LookupKind(s string) (Kind, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, "_", "-")
	if key == "paymentterms" {
		key = "payment-terms"
	}
	if k, ok := kinds[key]; ok {
		return k, nil
	}
	return Kind{}, fmt.Errorf("unknown kind: %q (known: %s)", s, strings.Join(KindSlugs(), ", "))
}

// KindSlugs returns all registered slugs, sorted.
func KindSlugs() []string {
	out := make([]string, 0, len(kinds))
	for slug := range kinds {
		out = append(out, slug)
	}
	sort.Strings(out)
	return out
}

func (k Kind) String() string { return k.Slug }

// Plural is the display label used in counts and banners.
func (k Kind) Plural() string {
	switch {
	case strings.HasSuffix(k.Label, "y"):
		return strings.TrimSuffix(k.Label, "y") + "ies"
	default:
		return k.Label + "s"
	}
}

// Count renders "1 app" / "3 apps".
func (k Kind) Count(n int) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", k.Label)
	}
	return fmt.Sprintf("%d %s", n, k.Plural())
}
