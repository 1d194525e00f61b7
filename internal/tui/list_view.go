package tui

import (
	"fmt"
	"strings"

	"posadmin/internal/listpage"
	"posadmin/internal/model"
	"posadmin/internal/viewmodel"
	"posadmin/internal/viewstate"

	"github.com/charmbracelet/lipgloss"
)

const (
	nameColWidth  = 28
	extraColWidth = 24
)

func (m appModel) View() string {
	if len(m.pages) == 0 {
		return ""
	}
	if m.screen == screenDetail {
		return m.viewDetail()
	}
	if m.mode == modeConfirm && m.page().State().Confirm.Open {
		return overlayCenter(m.width, m.height, m.renderConfirm())
	}
	return m.viewList()
}

func (m appModel) viewList() string {
	c := m.page()
	st := c.State()
	view := c.View()

	top := []string{m.renderTabs(), m.renderStatus(c, st, view)}
	if m.mode == modeSearch || st.SearchTerm != "" {
		top = append(top, renderInputLine(m.width, m.search.View()))
	}
	top = append(top, m.renderColumnHeader(c.Kind()))

	var bottom []string
	bottom = append(bottom, styleChrome().Render(renderPagination(c.Kind(), st, view)))
	if st.Banner.Open {
		bottom = append(bottom, styleBanner(st.Banner.Kind == viewstate.BannerSuccess).Render(st.Banner.Message))
	} else if m.busy || st.Submitting {
		bottom = append(bottom, styleMuted().Render("Working…"))
	}
	bottom = append(bottom, m.help.View(m.keys))

	avail := m.height - len(top) - len(bottom)
	if avail < 1 {
		avail = 1
	}
	body := m.renderRows(c, st, view, avail)

	lines := append(append(top, body...), bottom...)
	return normalizePane(strings.Join(lines, "\n"), m.width, m.height)
}

func (m appModel) renderTabs() string {
	var tabs []string
	for i, c := range m.pages {
		label := " " + c.Kind().Slug + " "
		if i == m.active {
			tabs = append(tabs, styleCursor().Render(label))
		} else {
			tabs = append(tabs, styleChrome().Render(label))
		}
	}
	out := strings.Join(tabs, " ")
	if m.tenant != "" {
		out += styleMuted().Render("   db: " + m.tenant)
	}
	return out
}

func (m appModel) renderStatus(c *listpage.Controller, st viewstate.State, view viewmodel.Result) string {
	parts := []string{styleHeading().Render(c.Kind().Count(len(view.Filtered)))}
	if n := st.Selected.Len(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d selected", n))
	}
	arrow := "↑"
	if st.Sort.Direction == viewstate.Desc {
		arrow = "↓"
	}
	parts = append(parts, "sort: "+st.Sort.Key+" "+arrow)
	if st.ViewMode == viewstate.Grouped {
		parts = append(parts, "grouped")
	}
	return strings.Join(parts, styleMuted().Render(" · "))
}

func (m appModel) renderColumnHeader(k model.Kind) string {
	cells := []string{"    ", fitLine("NAME", nameColWidth)}
	for _, col := range k.Columns {
		cells = append(cells, fitLine(strings.ToUpper(col), extraColWidth))
	}
	return styleMuted().Render(strings.Join(cells, " "))
}

// renderRows renders the page's rows, scrolled so the cursor stays visible.
func (m appModel) renderRows(c *listpage.Controller, st viewstate.State, view viewmodel.Result, avail int) []string {
	var lines []string
	cursorLine := -1

	if st.Inline.Mode == viewstate.InlineAdding {
		lines = append(lines, m.renderInlineRow(st))
		if st.Inline.Error != "" {
			lines = append(lines, "    "+styleInlineError().Render(st.Inline.Error))
		}
	}
	if len(view.Rows) == 0 && st.Inline.Mode != viewstate.InlineAdding {
		msg := "No " + c.Kind().Plural() + " yet. Press n to add one."
		if st.SearchTerm != "" {
			msg = "No " + c.Kind().Plural() + " match \"" + st.SearchTerm + "\"."
		}
		lines = append(lines, styleMuted().Render("    "+msg))
	}

	for i, row := range view.Rows {
		if i == m.cursor {
			cursorLine = len(lines)
		}
		switch {
		case row.Header:
			lines = append(lines, m.renderGroupRow(row, i == m.cursor))
		case st.Inline.Mode == viewstate.InlineEditing && st.Inline.ID == row.Entity.ID:
			lines = append(lines, m.renderInlineRow(st))
			if st.Inline.Error != "" {
				lines = append(lines, "    "+styleInlineError().Render(st.Inline.Error))
			}
		default:
			lines = append(lines, m.renderEntityRow(c.Kind(), row, st.Selected.Has(row.Entity.ID), i == m.cursor))
		}
	}

	start := 0
	if cursorLine >= avail {
		start = cursorLine - avail + 1
	}
	end := start + avail
	if end > len(lines) {
		end = len(lines)
	}
	return lines[start:end]
}

func (m appModel) renderEntityRow(k model.Kind, row viewmodel.Row, selected, cursor bool) string {
	mark := "[ ]"
	if selected {
		mark = "[x]"
	}
	indent := ""
	if m.page().State().ViewMode == viewstate.Grouped {
		indent = "  "
	}
	cells := []string{mark, fitLine(indent+row.Entity.Name, nameColWidth)}
	for _, col := range k.Columns {
		cells = append(cells, fitLine(row.Entity.StringField(col), extraColWidth))
	}
	line := " " + strings.Join(cells, " ")
	if cursor {
		return styleCursor().Render(fitLine(line, m.width))
	}
	return line
}

func (m appModel) renderGroupRow(row viewmodel.Row, cursor bool) string {
	arrow := "▸"
	if row.Expanded {
		arrow = "▾"
	}
	line := fmt.Sprintf(" %s %s (%d)", arrow, row.Label, row.Count)
	if cursor {
		return styleCursor().Render(fitLine(line, m.width))
	}
	return styleGroupHeader().Render(line)
}

func (m appModel) renderInlineRow(st viewstate.State) string {
	label := "new:"
	if st.Inline.Mode == viewstate.InlineEditing {
		label = "name:"
	}
	w := m.width - 10
	if w > nameColWidth+extraColWidth {
		w = nameColWidth + extraColWidth
	}
	return " " + lipgloss.NewStyle().Bold(true).Render(fitLine(label, 6)) + renderInputLine(w, m.inline.View())
}

// renderPagination renders "11-20 of 45 · page 2/5", or the group summary in
// grouped mode.
func renderPagination(k model.Kind, st viewstate.State, view viewmodel.Result) string {
	p := view.Pagination
	if st.ViewMode == viewstate.Grouped {
		return fmt.Sprintf("%s in %d groups", k.Count(p.Total), len(view.Groups))
	}
	if p.Total == 0 {
		return "0 of 0"
	}
	return fmt.Sprintf("%d-%d of %d · page %d/%d · %d per page", p.Start, p.End, p.Total, p.Current, p.Pages, p.PerPage)
}

func (m appModel) renderConfirm() string {
	st := m.page().State()
	k := m.page().Kind()
	n := st.Selected.Len()
	title := "Delete " + k.Count(n) + "?"
	body := "This permanently deletes the selected " + pluralFor(k, n) + ". Items that fail to delete stay selected."
	return renderConfirmModal(m.width, title, body, "Delete", "Cancel", m.confirmFocus)
}

func pluralFor(k model.Kind, n int) string {
	if n == 1 {
		return k.Label
	}
	return k.Plural()
}
