package tui

import (
	"fmt"
	"strings"

	"posadmin/internal/viewstate"
)

func (m appModel) viewDetail() string {
	c := m.page()
	k := c.Kind()
	st := c.State()

	var lines []string
	header := styleChrome().Render(k.Slug + " ›")
	if nav, ok := c.Navigate(m.detailID); ok {
		header += styleMuted().Render(fmt.Sprintf("  %d of %d", nav.CurrentIndex, nav.TotalItems))
	}
	lines = append(lines, header, "")

	e, ok := c.Lookup(m.detailID)
	if !ok {
		lines = append(lines, styleMuted().Render("This "+k.Label+" no longer exists."))
	} else {
		lines = append(lines, styleHeading().Render(e.Name), "")
		field := func(label, value string) {
			if strings.TrimSpace(value) == "" {
				return
			}
			lines = append(lines, styleMuted().Render(fitLine(label, 14))+value)
		}
		field("id", e.ID)
		if e.CategoryID != "" {
			name, known := c.CategoryName(e.CategoryID)
			if !known {
				name = e.CategoryID
			}
			field("category", name)
		}
		field("url", e.URL)
		for _, key := range e.FieldKeys() {
			field(key, e.StringField(key))
		}
		if desc := renderMarkdown(e.Description, m.width-4); desc != "" {
			lines = append(lines, "", desc)
		}
	}

	bottom := []string{}
	if st.Banner.Open {
		bottom = append(bottom, styleBanner(st.Banner.Kind == viewstate.BannerSuccess).Render(st.Banner.Message))
	}
	bottom = append(bottom, m.help.View(detailKeys{m.keys}))

	avail := m.height - len(bottom)
	if avail < 1 {
		avail = 1
	}
	if len(lines) > avail {
		lines = lines[:avail]
	}
	for len(lines) < avail {
		lines = append(lines, "")
	}
	return normalizePane(strings.Join(append(lines, bottom...), "\n"), m.width, m.height)
}
