package tui

import (
	"context"
	"time"

	"posadmin/internal/listpage"
	"posadmin/internal/logging"
	"posadmin/internal/viewmodel"
	"posadmin/internal/viewstate"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
)

const defaultBannerDelay = 2 * time.Second

type Options struct {
	// Pages are the list pages reachable with tab, in order.
	Pages []*listpage.Controller
	// Start is the index of the page shown first.
	Start       int
	Tenant      string
	BannerDelay time.Duration
	Logger      logrus.FieldLogger
}

type appModel struct {
	ctx         context.Context
	pages       []*listpage.Controller
	loaded      map[int]bool
	active      int
	tenant      string
	bannerDelay time.Duration
	log         logrus.FieldLogger

	width  int
	height int

	screen   screen
	mode     inputMode
	cursor   int
	detailID string
	busy     bool

	confirmFocus confirmModalFocus

	search textinput.Model
	inline textinput.Model
	keys   keyMap
	help   help.Model
}

func newAppModel(ctx context.Context, opts Options) appModel {
	delay := opts.BannerDelay
	if delay <= 0 {
		delay = defaultBannerDelay
	}
	start := opts.Start
	if start < 0 || start >= len(opts.Pages) {
		start = 0
	}

	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "search"
	search.CharLimit = 200

	inline := textinput.New()
	inline.Prompt = ""
	inline.Placeholder = "name"
	inline.CharLimit = 200

	m := appModel{
		ctx:         ctx,
		pages:       opts.Pages,
		loaded:      map[int]bool{},
		active:      start,
		tenant:      opts.Tenant,
		bannerDelay: delay,
		log:         logging.OrDiscard(opts.Logger),
		width:       100,
		height:      30,
		search:      search,
		inline:      inline,
		keys:        defaultKeyMap(),
		help:        help.New(),
	}
	if len(m.pages) > 0 {
		m.search.SetValue(m.page().State().SearchTerm)
	}
	return m
}

func (m appModel) page() *listpage.Controller { return m.pages[m.active] }

func (m appModel) Init() tea.Cmd {
	if len(m.pages) == 0 {
		return tea.Quit
	}
	return m.loadCmd(m.active)
}

func (m appModel) loadCmd(page int) tea.Cmd {
	c, ctx := m.pages[page], m.ctx
	return func() tea.Msg {
		return loadedMsg{page: page, err: c.Load(ctx)}
	}
}

func (m appModel) saveCmd(name string) tea.Cmd {
	page, c, ctx := m.active, m.page(), m.ctx
	return func() tea.Msg {
		return savedMsg{page: page, err: c.SaveInline(ctx, name)}
	}
}

func (m appModel) confirmCmd() tea.Cmd {
	page, c, ctx := m.active, m.page(), m.ctx
	op := string(c.State().Confirm.Pending)
	return func() tea.Msg {
		out, _ := c.Confirm(ctx)
		return bulkDoneMsg{page: page, op: op, out: out}
	}
}

func (m appModel) duplicateCmd() tea.Cmd {
	page, c, ctx := m.active, m.page(), m.ctx
	return func() tea.Msg {
		return bulkDoneMsg{page: page, op: "duplicate", out: c.BulkDuplicate(ctx)}
	}
}

// bannerTick schedules auto-close for the banner page is showing now.
func (m appModel) bannerTick(page int) tea.Cmd {
	if page < 0 || page >= len(m.pages) {
		return nil
	}
	st := m.pages[page].State()
	if !st.Banner.Open {
		return nil
	}
	seq := st.Banner.Seq
	return tea.Tick(m.bannerDelay, func(time.Time) tea.Msg {
		return bannerDoneMsg{page: page, seq: seq}
	})
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case loadedMsg:
		m.loaded[msg.page] = msg.err == nil
		if msg.err != nil {
			m.log.WithError(msg.err).WithField("kind", m.pages[msg.page].Kind().Slug).Warn("load failed")
		}
		m.clampCursor()
		return m, m.bannerTick(msg.page)

	case savedMsg:
		m.busy = false
		if msg.page == m.active && m.page().State().Inline.Mode == viewstate.InlineIdle {
			m.mode = modeNormal
			m.inline.Blur()
			m.inline.SetValue("")
		}
		m.clampCursor()
		return m, m.bannerTick(msg.page)

	case bulkDoneMsg:
		m.busy = false
		m.clampCursor()
		return m, m.bannerTick(msg.page)

	case bannerDoneMsg:
		if msg.page >= 0 && msg.page < len(m.pages) {
			m.pages[msg.page].Dispatch(viewstate.HideBanner{Seq: msg.seq})
		}
		return m, nil

	case tea.KeyMsg:
		if m.screen == screenDetail {
			return m.updateDetail(msg)
		}
		switch m.mode {
		case modeSearch:
			return m.updateSearch(msg)
		case modeInline:
			return m.updateInline(msg)
		case modeConfirm:
			return m.updateConfirm(msg)
		}
		return m.updateList(msg)
	}

	// Cursor blink and other input-internal messages.
	var cmd tea.Cmd
	switch m.mode {
	case modeSearch:
		m.search, cmd = m.search.Update(msg)
	case modeInline:
		m.inline, cmd = m.inline.Update(msg)
	}
	return m, cmd
}

func (m appModel) quit() (tea.Model, tea.Cmd) {
	for _, c := range m.pages {
		c.Close()
	}
	return m, tea.Quit
}

func (m appModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := m.page()
	view := c.View()
	st := c.State()

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(view.Rows)-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.PrevPage):
		if st.CurrentPage > 1 {
			c.Dispatch(viewstate.SetCurrentPage{Page: st.CurrentPage - 1})
			m.cursor = 0
		}
		return m, nil

	case key.Matches(msg, m.keys.NextPage):
		if st.CurrentPage < view.Pagination.Pages {
			c.Dispatch(viewstate.SetCurrentPage{Page: st.CurrentPage + 1})
			m.cursor = 0
		}
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		row, ok := m.currentRow(view)
		if !ok {
			return m, nil
		}
		if row.Header {
			c.Dispatch(viewstate.ToggleGroup{Label: row.Label})
		} else {
			c.Dispatch(viewstate.ToggleOne(row.Entity.ID))
		}
		m.clampCursor()
		return m, nil

	case key.Matches(msg, m.keys.SelectAll):
		ids := view.PageIDs
		if len(ids) == 0 {
			return m, nil
		}
		c.Dispatch(viewstate.SetSelected(ids, !allSelected(st, ids)))
		return m, nil

	case key.Matches(msg, m.keys.ClearAll):
		c.Dispatch(viewstate.ReplaceSelection(nil))
		return m, nil

	case key.Matches(msg, m.keys.Search):
		m.mode = modeSearch
		m.search.SetValue(st.SearchTerm)
		m.search.CursorEnd()
		return m, m.search.Focus()

	case key.Matches(msg, m.keys.Add):
		if m.busy {
			return m, nil
		}
		c.StartAdd()
		m.mode = modeInline
		m.inline.SetValue("")
		return m, m.inline.Focus()

	case key.Matches(msg, m.keys.Rename):
		row, ok := m.currentRow(view)
		if !ok || row.Header || m.busy {
			return m, nil
		}
		c.StartEdit(row.Entity.ID)
		m.mode = modeInline
		m.inline.SetValue(row.Entity.Name)
		m.inline.CursorEnd()
		return m, m.inline.Focus()

	case key.Matches(msg, m.keys.Open):
		row, ok := m.currentRow(view)
		if !ok {
			return m, nil
		}
		if row.Header {
			c.Dispatch(viewstate.ToggleGroup{Label: row.Label})
			m.clampCursor()
			return m, nil
		}
		m.screen = screenDetail
		m.detailID = row.Entity.ID
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		if m.busy {
			return m, nil
		}
		before := st.Banner.Seq
		next := c.RequestDelete()
		if next.Confirm.Open {
			m.mode = modeConfirm
			m.confirmFocus = confirmFocusConfirm
			return m, nil
		}
		if next.Banner.Seq != before {
			return m, m.bannerTick(m.active)
		}
		return m, nil

	case key.Matches(msg, m.keys.Duplicate):
		if m.busy || st.Selected.Len() == 0 {
			return m, nil
		}
		m.busy = true
		return m, m.duplicateCmd()

	case key.Matches(msg, m.keys.ViewMode):
		c.ToggleViewMode(m.ctx)
		m.cursor = 0
		return m, nil

	case key.Matches(msg, m.keys.CollapseAll):
		if st.ViewMode != viewstate.Grouped {
			return m, nil
		}
		c.Dispatch(viewstate.CollapseGroups{})
		m.cursor = 0
		return m, nil

	case key.Matches(msg, m.keys.SortKey):
		c.Dispatch(viewstate.SetSort{Key: nextSortKey(c, st.Sort.Key)})
		return m, nil

	case key.Matches(msg, m.keys.SortDir):
		c.Dispatch(viewstate.SetSort{Key: st.Sort.Key})
		return m, nil

	case key.Matches(msg, m.keys.MorePerPage):
		c.Dispatch(viewstate.SetItemsPerPage{N: stepPerPage(st.ItemsPerPage, 1)})
		m.cursor = 0
		return m, nil

	case key.Matches(msg, m.keys.FewerPerPage):
		c.Dispatch(viewstate.SetItemsPerPage{N: stepPerPage(st.ItemsPerPage, -1)})
		m.clampCursor()
		return m, nil

	case key.Matches(msg, m.keys.NextKind), key.Matches(msg, m.keys.PrevKind):
		if len(m.pages) < 2 {
			return m, nil
		}
		step := 1
		if key.Matches(msg, m.keys.PrevKind) {
			step = len(m.pages) - 1
		}
		m.active = (m.active + step) % len(m.pages)
		m.cursor = 0
		m.search.SetValue(m.page().State().SearchTerm)
		if !m.loaded[m.active] {
			return m, m.loadCmd(m.active)
		}
		return m, nil

	case key.Matches(msg, m.keys.Reload):
		return m, m.loadCmd(m.active)

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}
	return m, nil
}

func (m appModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.mode = modeNormal
		m.search.Blur()
		return m, nil
	case "esc", "ctrl+g":
		m.mode = modeNormal
		m.search.Blur()
		m.search.SetValue("")
		m.page().Dispatch(viewstate.SetSearchTerm{Term: ""})
		m.cursor = 0
		return m, nil
	case "ctrl+c":
		return m.quit()
	}

	prev := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if v := m.search.Value(); v != prev {
		m.page().Dispatch(viewstate.SetSearchTerm{Term: v})
		m.cursor = 0
	}
	return m, cmd
}

func (m appModel) updateInline(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+g":
		if m.busy {
			return m, nil
		}
		m.page().CancelInline()
		m.mode = modeNormal
		m.inline.Blur()
		m.inline.SetValue("")
		return m, nil
	case "enter":
		if m.busy {
			return m, nil
		}
		m.busy = true
		return m, m.saveCmd(m.inline.Value())
	case "ctrl+c":
		return m.quit()
	}
	var cmd tea.Cmd
	m.inline, cmd = m.inline.Update(msg)
	return m, cmd
}

func (m appModel) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	accept := false
	switch msg.String() {
	case "tab", "shift+tab", "left", "right", "h", "l":
		m.confirmFocus = m.confirmFocus.toggle()
		return m, nil
	case "y":
		accept = true
	case "enter":
		accept = m.confirmFocus == confirmFocusConfirm
	case "n", "esc", "ctrl+g", "q":
	case "ctrl+c":
		return m.quit()
	default:
		return m, nil
	}

	m.mode = modeNormal
	if !accept {
		m.page().CancelConfirm()
		return m, nil
	}
	m.busy = true
	return m, m.confirmCmd()
}

func (m appModel) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	case key.Matches(msg, m.keys.Back):
		m.screen = screenList
		m.cursorTo(m.detailID)
		return m, nil
	case key.Matches(msg, m.keys.Next), key.Matches(msg, m.keys.Prev):
		nav, ok := m.page().Navigate(m.detailID)
		if !ok {
			return m, nil
		}
		step := nav.Next
		if key.Matches(msg, m.keys.Prev) {
			step = nav.Prev
		}
		if id, ok := step(); ok {
			m.detailID = id
		}
		return m, nil
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}
	return m, nil
}

func (m appModel) currentRow(view viewmodel.Result) (viewmodel.Row, bool) {
	if m.cursor < 0 || m.cursor >= len(view.Rows) {
		return viewmodel.Row{}, false
	}
	return view.Rows[m.cursor], true
}

func (m *appModel) clampCursor() {
	if len(m.pages) == 0 {
		return
	}
	n := len(m.page().View().Rows)
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// cursorTo moves the cursor onto id when it is on the current page.
func (m *appModel) cursorTo(id string) {
	for i, r := range m.page().View().Rows {
		if !r.Header && r.Entity.ID == id {
			m.cursor = i
			return
		}
	}
	m.clampCursor()
}

func allSelected(st viewstate.State, ids []string) bool {
	for _, id := range ids {
		if !st.Selected.Has(id) {
			return false
		}
	}
	return true
}

// sortKeys lists the columns s cycles through: name, the kind's columns, id.
func sortKeys(c *listpage.Controller) []string {
	keys := []string{"name"}
	keys = append(keys, c.Kind().Columns...)
	if c.Kind().Groupable {
		keys = append(keys, "category")
	}
	return append(keys, "id")
}

func nextSortKey(c *listpage.Controller, cur string) string {
	keys := sortKeys(c)
	for i, k := range keys {
		if k == cur {
			return keys[(i+1)%len(keys)]
		}
	}
	return keys[0]
}

func stepPerPage(cur, dir int) int {
	choices := viewstate.PerPageChoices
	for i, n := range choices {
		if n == cur {
			j := i + dir
			if j < 0 || j >= len(choices) {
				return cur
			}
			return choices[j]
		}
	}
	return viewstate.DefaultPerPage
}
