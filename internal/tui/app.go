// Package tui is the terminal front end: a board of groups, categories and
// bookmark cards that supports keyboard editing and mouse drag and drop.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"

	"github.com/lotas/lesezeichen/internal/analyzer"
	"github.com/lotas/lesezeichen/internal/applog"
	"github.com/lotas/lesezeichen/internal/client"
	"github.com/lotas/lesezeichen/internal/drag"
	"github.com/lotas/lesezeichen/internal/firefox"
	"github.com/lotas/lesezeichen/internal/gate"
	"github.com/lotas/lesezeichen/internal/order"
	"github.com/lotas/lesezeichen/internal/pagetitle"
	"github.com/lotas/lesezeichen/internal/store"
	"github.com/lotas/lesezeichen/internal/types"
	"github.com/lotas/lesezeichen/internal/undo"
)

// --- Messages ---

type pageMsg struct {
	categoryID string
	url        string
	page       pagetitle.Page
}

type checkedMsg struct{ dead []analyzer.DeadLink }

type profilesMsg struct {
	profiles []firefox.Profile
	err      error
}

type sessionMsg struct {
	profile firefox.Profile
	sets    []firefox.TabSet
	err     error
}

// overlay is the modal currently covering the board.
type overlay int

const (
	overlayNone overlay = iota
	overlayPrompt
	overlayConfirm
	overlayPicker
)

// Options configure a Model. Every field is optional.
type Options struct {
	// Label names the data source in the navbar: a database path or a
	// server URL.
	Label string

	// Scheduler runs drag timers. Defaults to timers delivered through
	// the Bridge.
	Scheduler drag.Scheduler

	// Profiles lists Firefox profiles for the import overlay.
	Profiles func() ([]firefox.Profile, error)

	// FetchPage looks up the title of a new bookmark.
	FetchPage func(ctx context.Context, url string) (pagetitle.Page, error)
}

// --- Model ---

type Model struct {
	store   *store.Store
	history *undo.Stack
	bridge  *Bridge
	drag    *drag.Controller

	label     string
	profiles  func() ([]firefox.Profile, error)
	fetchPage func(ctx context.Context, url string) (pagetitle.Page, error)

	// Layout
	width  int
	height int
	offset int
	board  board
	cursor string
	detail DetailModel

	// Drag affordances
	proxy   *drag.Subject
	proxyAt drag.Point
	intent  drag.Intent

	// Overlays
	overlay     overlay
	input       textinput.Model
	promptTitle string
	onSubmit    func(value string) tea.Cmd
	confirmText string
	onConfirm   func() error
	picker      Picker
	onPick      func(id string) (tea.Cmd, error)
	pickVerb    string

	// Analysis
	dead     map[string]string // bookmark id -> reason
	dup      map[string]int    // bookmark id -> copies
	stats    analyzer.Stats
	checking bool

	connected bool
	status    string
	statusErr bool
}

// NewModel creates the UI over st. hist and g must be the ones st was
// built with; b must be the Bridge whose Render st calls.
func NewModel(st *store.Store, hist *undo.Stack, g *gate.Gate, b *Bridge, opts Options) *Model {
	m := &Model{
		store:     st,
		history:   hist,
		bridge:    b,
		label:     opts.Label,
		profiles:  opts.Profiles,
		fetchPage: opts.FetchPage,
		dead:      make(map[string]string),
		dup:       make(map[string]int),
	}
	if m.profiles == nil {
		m.profiles = firefox.DiscoverProfiles
	}
	if m.fetchPage == nil {
		m.fetchPage = pagetitle.Fetch
	}
	sched := opts.Scheduler
	if sched == nil {
		sched = scheduler{b: b}
	}
	m.drag = drag.New(cellConfig(), geometry{m}, surface{m}, sched, st, g)
	m.drag.OnDrop(func(op string, err error) {
		if err != nil {
			m.fail(op, err)
			return
		}
		m.note("%s", op)
	})

	m.input = textinput.New()
	m.input.CharLimit = 2048
	m.input.Width = 48
	return m
}

func (m *Model) Init() tea.Cmd {
	return m.bridge.listen()
}

func (m *Model) boardWidth() int {
	w := m.width * BoardWidthPct / 100
	if w < cardSlot+1 {
		w = min(m.width, cardSlot+1)
	}
	return w
}

// bodyHeight is the number of board rows between the navbar and the
// bottom bar.
func (m *Model) bodyHeight() int {
	if h := m.height - 2; h > 0 {
		return h
	}
	return 1
}

func (m *Model) note(format string, args ...any) {
	m.status = fmt.Sprintf(format, args...)
	m.statusErr = false
}

func (m *Model) fail(op string, err error) {
	m.status = fmt.Sprintf("%s: %v", op, err)
	m.statusErr = true
}

// relayout rebuilds the board from the last rendered view and keeps the
// cursor and scroll offset valid.
func (m *Model) relayout() {
	v, _ := m.bridge.View()

	m.dup = make(map[string]int)
	dups := analyzer.Duplicates(v.Bookmarks)
	for _, set := range dups {
		for _, bm := range set {
			m.dup[bm.ID] = len(set)
		}
	}
	var deadList []analyzer.DeadLink
	deadIDs := make(map[string]bool, len(m.dead))
	for _, bm := range v.Bookmarks {
		if reason, ok := m.dead[bm.ID]; ok {
			deadIDs[bm.ID] = true
			deadList = append(deadList, analyzer.DeadLink{Bookmark: bm, Reason: reason})
		}
	}
	m.stats = analyzer.ComputeStats(v, dups, deadList)

	d := decor{cursor: m.cursor, intent: m.intent, dead: deadIDs, dup: make(map[string]bool, len(m.dup))}
	for id := range m.dup {
		d.dup[id] = true
	}
	if m.proxy != nil {
		d.dragging = m.proxy.ID
	}
	prev := m.board
	m.board = buildBoard(v, m.boardWidth(), m.store.ActiveTab, d)

	if m.board.entryAt(m.cursor) < 0 && len(m.board.entries) > 0 {
		// The entry vanished; stay near where it was.
		i := prev.entryAt(m.cursor)
		if i < 0 {
			i = 0
		}
		if i >= len(m.board.entries) {
			i = len(m.board.entries) - 1
		}
		m.cursor = m.board.entries[i].ID
		m.board = buildBoard(v, m.boardWidth(), m.store.ActiveTab, decor{
			cursor: m.cursor, intent: m.intent, dead: d.dead, dup: d.dup, dragging: d.dragging,
		})
	}
	m.scroll(0)
}

// scroll moves the board by n lines, clamped to the content.
func (m *Model) scroll(n int) {
	m.offset += n
	if limit := len(m.board.lines) - m.bodyHeight(); m.offset > limit {
		m.offset = limit
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// reveal scrolls so the cursor line is visible.
func (m *Model) reveal() {
	i := m.board.entryAt(m.cursor)
	if i < 0 {
		return
	}
	line := m.board.entries[i].Line
	if line < m.offset {
		m.offset = line
	}
	if h := m.bodyHeight(); line >= m.offset+h {
		m.offset = line - h + 1
	}
}

func (m *Model) current() (entry, bool) {
	i := m.board.entryAt(m.cursor)
	if i < 0 {
		return entry{}, false
	}
	return m.board.entries[i], true
}

// moveCursor steps through the cursor stops. Landing on a group tab makes
// it the visible one.
func (m *Model) moveCursor(delta int) {
	if len(m.board.entries) == 0 {
		return
	}
	i := m.board.entryAt(m.cursor) + delta
	if i < 0 {
		i = 0
	}
	if i >= len(m.board.entries) {
		i = len(m.board.entries) - 1
	}
	e := m.board.entries[i]
	m.cursor = e.ID
	if e.Kind == drag.SubjectCategory && e.GroupID != "" {
		m.store.SetActiveTab(e.GroupID, e.ID)
	}
	m.relayout()
	m.reveal()
}

// targetCategory is the category new bookmarks go into.
func (m *Model) targetCategory() string {
	e, ok := m.current()
	if !ok {
		return ""
	}
	switch e.Kind {
	case drag.SubjectGroup:
		return activeMember(m.store.Members(e.ID), m.store.ActiveTab(e.ID))
	default:
		return e.CategoryID
	}
}

// --- Update ---

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.detail.Width = m.width - m.boardWidth() - 4
		m.detail.Height = m.bodyHeight() - 2
		m.input.Width = min(64, max(m.width-20, 10))
		m.relayout()
		return m, nil

	case feedMsg:
		m.connected = true
		if err := client.Deliver(m.store, msg.msg); err != nil {
			m.fail("feed "+msg.msg.Type, err)
		}
		m.relayout()
		return m, m.bridge.listen()

	case remoteErrMsg:
		m.fail(msg.op, msg.err)
		return m, m.bridge.listen()

	case disconnectedMsg:
		m.connected = false
		m.drag.Cancel()
		err := msg.err
		if err == nil {
			err = errors.New("connection closed")
		}
		m.fail("sync", err)
		return m, m.bridge.listen()

	case timerMsg:
		msg.t.fire()
		m.relayout()
		return m, m.bridge.listen()

	case pageMsg:
		bm, err := m.store.CreateBookmark(msg.categoryID, msg.page.Title, msg.url, msg.page.Icon)
		if err != nil {
			m.fail("add bookmark", err)
			return m, nil
		}
		m.cursor = bm.ID
		m.note("added %s", cardLabel(bm))
		m.relayout()
		m.reveal()
		return m, nil

	case checkedMsg:
		m.checking = false
		m.dead = make(map[string]string, len(msg.dead))
		for _, d := range msg.dead {
			m.dead[d.Bookmark.ID] = d.Reason
		}
		m.note("link check: %d dead", len(msg.dead))
		m.relayout()
		return m, nil

	case profilesMsg:
		if msg.err != nil {
			m.fail("firefox profiles", msg.err)
			return m, nil
		}
		switch len(msg.profiles) {
		case 0:
			m.fail("import", errors.New("no Firefox profiles found"))
			return m, nil
		case 1:
			return m, readSession(msg.profiles[0])
		}
		m.openProfilePicker(msg.profiles)
		return m, nil

	case sessionMsg:
		if msg.err != nil {
			m.fail("import "+msg.profile.Name, msg.err)
			return m, nil
		}
		m.importSets(msg.profile.Name, msg.sets)
		return m, nil

	case tea.MouseMsg:
		m.handleMouse(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) importSets(profile string, sets []firefox.TabSet) {
	m.history.BeginGroup()
	res, err := firefox.Import(m.store, sets)
	m.history.EndGroup()
	if err != nil {
		m.fail("import "+profile, err)
	} else {
		m.note("imported %d bookmarks into %d new categories (%d skipped)", res.Bookmarks, res.Categories, res.Skipped)
	}
	applog.Info("tui.import", "profile", profile, "bookmarks", res.Bookmarks, "skipped", res.Skipped)
	m.relayout()
}

// --- Mouse ---

func (m *Model) handleMouse(msg tea.MouseMsg) {
	p := screenPoint(msg.X, msg.Y)
	ev := drag.PointerEvent{ID: 1, Type: drag.Mouse, Pos: p}

	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.scroll(-3)
			return
		case tea.MouseButtonWheelDown:
			m.scroll(3)
			return
		case tea.MouseButtonLeft:
		default:
			return
		}
		if m.overlay != overlayNone {
			return
		}
		m.relayout()
		cp, ok := m.contentPoint(p)
		if !ok {
			return
		}
		s, ok := m.board.subjectAt(cp)
		if !ok {
			return
		}
		m.cursor = s.ID
		m.drag.PointerDown(ev, s)
		m.relayout()

	case tea.MouseActionMotion:
		m.drag.PointerMove(ev)
		m.relayout()

	case tea.MouseActionRelease:
		dragging := m.drag.State() == drag.Dragging
		m.drag.PointerUp(ev)
		m.relayout()
		if !dragging {
			m.click(p)
		}
	}
}

// click activates a tab unless a drag just ended on it.
func (m *Model) click(p drag.Point) {
	cp, ok := m.contentPoint(p)
	if !ok {
		return
	}
	groupID, catID, ok := m.board.tabAt(cp)
	if !ok || m.drag.SuppressClick(catID) {
		return
	}
	m.store.SetActiveTab(groupID, catID)
	m.cursor = catID
	m.relayout()
}

// --- Keys ---

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.overlay {
	case overlayPrompt:
		return m.handlePromptKey(msg)
	case overlayConfirm:
		switch msg.String() {
		case "y", "enter":
			fn := m.onConfirm
			m.closeOverlay()
			if err := fn(); err != nil {
				m.fail("delete", err)
			}
			m.relayout()
		case "n", "esc", "q":
			m.closeOverlay()
		}
		return m, nil
	case overlayPicker:
		switch msg.String() {
		case "up", "k":
			m.picker.MoveUp()
		case "down", "j":
			m.picker.MoveDown()
		case "enter":
			o, ok := m.picker.Selected()
			fn, verb := m.onPick, m.pickVerb
			m.closeOverlay()
			if !ok {
				return m, nil
			}
			cmd, err := fn(o.ID)
			if err != nil {
				m.fail(verb, err)
			}
			m.relayout()
			return m, cmd
		case "esc", "q":
			m.closeOverlay()
		}
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c", "q":
		m.drag.Cancel()
		m.bridge.Close()
		return m, tea.Quit
	case "esc":
		m.drag.KeyDown("esc")
		m.status = ""
		m.relayout()
	case "up", "k":
		m.moveCursor(-1)
	case "down", "j":
		m.moveCursor(1)
	case "left", "h":
		m.stepTab(-1)
	case "right", "l":
		m.stepTab(1)
	case "pgup":
		m.scroll(-m.bodyHeight())
	case "pgdown":
		m.scroll(m.bodyHeight())
	case "u", "ctrl+z":
		if err := m.history.Undo(context.Background()); err != nil {
			m.fail("undo", err)
		}
		m.relayout()
	case "U", "ctrl+r", "ctrl+y":
		if err := m.history.Redo(context.Background()); err != nil {
			m.fail("redo", err)
		}
		m.relayout()
	case "n":
		return m, m.prompt("New category name:", "", func(v string) tea.Cmd {
			c, err := m.store.CreateCategory(v)
			if err != nil {
				m.fail("new category", err)
				return nil
			}
			m.cursor = c.ID
			m.relayout()
			m.reveal()
			return nil
		})
	case "a":
		catID := m.targetCategory()
		if catID == "" {
			m.fail("add bookmark", errors.New("select a category first"))
			return m, nil
		}
		return m, m.prompt("Bookmark URL:", "", func(v string) tea.Cmd {
			v = strings.TrimSpace(v)
			if v == "" {
				return nil
			}
			m.note("fetching %s...", v)
			return m.fetchTitle(catID, v)
		})
	case "r":
		return m, m.rename()
	case "e":
		return m, m.editURL()
	case "d", "delete":
		m.confirmDelete()
	case "g":
		m.toggleGroup()
	case "m":
		m.openMovePicker()
	case "i":
		return m, listProfiles(m.profiles)
	case "c":
		if m.checking {
			return m, nil
		}
		m.checking = true
		v, _ := m.bridge.View()
		return m, checkLinks(v.Bookmarks)
	}
	return m, nil
}

func (m *Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closeOverlay()
		return m, nil
	case "enter":
		v := m.input.Value()
		fn := m.onSubmit
		m.closeOverlay()
		return m, fn(v)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) prompt(title, initial string, submit func(string) tea.Cmd) tea.Cmd {
	m.overlay = overlayPrompt
	m.promptTitle = title
	m.onSubmit = submit
	m.input.SetValue(initial)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) closeOverlay() {
	m.overlay = overlayNone
	m.input.Blur()
	m.onSubmit = nil
	m.onConfirm = nil
	m.onPick = nil
	m.pickVerb = ""
}

// stepTab switches the visible tab of the group under the cursor. Outside
// a group it moves the cursor like up and down.
func (m *Model) stepTab(delta int) {
	e, ok := m.current()
	if !ok || e.GroupID == "" {
		m.moveCursor(delta)
		return
	}
	members := m.store.Members(e.GroupID)
	cur := order.IndexOf(members, activeMember(members, m.store.ActiveTab(e.GroupID)))
	next := cur + delta
	if next < 0 || next >= len(members) {
		return
	}
	m.store.SetActiveTab(e.GroupID, members[next].ID)
	if e.Kind == drag.SubjectCategory {
		m.cursor = members[next].ID
	}
	m.relayout()
}

func (m *Model) rename() tea.Cmd {
	e, ok := m.current()
	if !ok {
		return nil
	}
	switch e.Kind {
	case drag.SubjectGroup:
		g, _ := m.store.Group(e.ID)
		return m.prompt("Rename group:", g.Name, func(v string) tea.Cmd {
			if err := m.store.RenameGroup(e.ID, v); err != nil {
				m.fail("rename group", err)
			}
			m.relayout()
			return nil
		})
	case drag.SubjectCategory:
		c, _ := m.store.Category(e.ID)
		return m.prompt("Rename category:", c.Name, func(v string) tea.Cmd {
			if err := m.store.RenameCategory(e.ID, v); err != nil {
				m.fail("rename category", err)
			}
			m.relayout()
			return nil
		})
	default:
		bm, _ := m.store.Bookmark(e.ID)
		return m.prompt("Bookmark title:", bm.Title, func(v string) tea.Cmd {
			if err := m.store.UpdateBookmark(e.ID, v, bm.URL, bm.Icon); err != nil {
				m.fail("edit bookmark", err)
			}
			m.relayout()
			return nil
		})
	}
}

func (m *Model) editURL() tea.Cmd {
	e, ok := m.current()
	if !ok || e.Kind != drag.SubjectBookmark {
		return nil
	}
	bm, _ := m.store.Bookmark(e.ID)
	return m.prompt("Bookmark URL:", bm.URL, func(v string) tea.Cmd {
		if err := m.store.UpdateBookmark(e.ID, bm.Title, v, bm.Icon); err != nil {
			m.fail("edit bookmark", err)
		}
		m.relayout()
		return nil
	})
}

func (m *Model) confirmDelete() {
	e, ok := m.current()
	if !ok {
		return
	}
	switch e.Kind {
	case drag.SubjectGroup:
		g, _ := m.store.Group(e.ID)
		m.confirmText = fmt.Sprintf("Delete group %q? Its categories are kept.", g.Name)
		m.onConfirm = func() error { return m.store.DeleteGroup(e.ID) }
	case drag.SubjectCategory:
		c, _ := m.store.Category(e.ID)
		m.confirmText = fmt.Sprintf("Delete category %q and its %d bookmarks?", c.Name, len(m.store.BookmarksIn(e.ID)))
		m.onConfirm = func() error { return m.store.DeleteCategory(e.ID) }
	default:
		bm, _ := m.store.Bookmark(e.ID)
		m.confirmText = fmt.Sprintf("Delete bookmark %q?", cardLabel(bm))
		m.onConfirm = func() error { return m.store.DeleteBookmark(e.ID) }
	}
	m.overlay = overlayConfirm
}

// toggleGroup wraps a standalone category in a new group at its position,
// or takes a grouped category out to the top level.
func (m *Model) toggleGroup() {
	e, ok := m.current()
	if !ok || e.Kind != drag.SubjectCategory {
		return
	}
	if e.GroupID != "" {
		if err := m.store.SetCategoryGroup(e.ID, "", nil); err != nil {
			m.fail("ungroup", err)
		}
		m.relayout()
		return
	}
	c, _ := m.store.Category(e.ID)
	if _, err := m.store.CreateGroupFromCategories("", []string{e.ID}, c.Order); err != nil {
		m.fail("group", err)
	}
	m.relayout()
}

func (m *Model) openMovePicker() {
	e, ok := m.current()
	if !ok {
		return
	}
	v, _ := m.bridge.View()
	groupNames := make(map[string]string, len(v.Groups))
	for _, g := range v.Groups {
		groupNames[g.ID] = g.Name
	}

	var opts []pickOption
	switch e.Kind {
	case drag.SubjectBookmark:
		for _, c := range v.Categories {
			if c.ID == e.CategoryID {
				continue
			}
			label := c.Name
			if c.GroupID != "" {
				label = groupNames[c.GroupID] + " / " + c.Name
			}
			opts = append(opts, pickOption{ID: c.ID, Label: label})
		}
		m.picker = NewPicker("Move bookmark to category:", opts)
		m.onPick = func(id string) (tea.Cmd, error) {
			sibs := m.store.BookmarksIn(id)
			return nil, m.store.ReorderBookmark(e.ID, order.Midpoint(sibs, len(sibs)), id)
		}
	case drag.SubjectCategory:
		if e.GroupID != "" {
			opts = append(opts, pickOption{Label: "(top level)"})
		}
		for _, g := range v.Groups {
			if g.ID != e.GroupID {
				opts = append(opts, pickOption{ID: g.ID, Label: g.Name})
			}
		}
		m.picker = NewPicker("Move category to group:", opts)
		m.onPick = func(id string) (tea.Cmd, error) { return nil, m.store.SetCategoryGroup(e.ID, id, nil) }
	case drag.SubjectGroup:
		for _, g := range v.Groups {
			if g.ID != e.ID {
				opts = append(opts, pickOption{ID: g.ID, Label: g.Name})
			}
		}
		m.picker = NewPicker("Merge group into:", opts)
		m.onPick = func(id string) (tea.Cmd, error) { return nil, m.store.MergeGroups(e.ID, id) }
	}
	m.pickVerb = "move"
	m.overlay = overlayPicker
}

// openProfilePicker asks which Firefox profile to import from, starting
// on the default one.
func (m *Model) openProfilePicker(profiles []firefox.Profile) {
	byPath := make(map[string]firefox.Profile, len(profiles))
	opts := make([]pickOption, 0, len(profiles))
	cursor := 0
	for i, p := range profiles {
		byPath[p.Path] = p
		label := p.Name
		if p.IsDefault {
			label += " (default)"
			cursor = i
		}
		opts = append(opts, pickOption{ID: p.Path, Label: label})
	}
	m.picker = NewPicker("Import open tabs from profile:", opts)
	m.picker.Cursor = cursor
	m.onPick = func(path string) (tea.Cmd, error) {
		return readSession(byPath[path]), nil
	}
	m.pickVerb = "import"
	m.overlay = overlayPicker
}

// --- Commands ---

func (m *Model) fetchTitle(categoryID, url string) tea.Cmd {
	fetch := m.fetchPage
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		page, err := fetch(ctx, url)
		if err != nil {
			applog.Error("tui.fetch", err, "url", url)
		}
		if page.Title == "" {
			page.Title = cardLabel(types.Bookmark{URL: url})
		}
		return pageMsg{categoryID: categoryID, url: url, page: page}
	}
}

func checkLinks(bms []types.Bookmark) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		return checkedMsg{dead: analyzer.CheckLinks(ctx, bms, 8)}
	}
}

func listProfiles(list func() ([]firefox.Profile, error)) tea.Cmd {
	return func() tea.Msg {
		profiles, err := list()
		return profilesMsg{profiles: profiles, err: err}
	}
}

func readSession(p firefox.Profile) tea.Cmd {
	return func() tea.Msg {
		sets, err := firefox.ReadSessionFile(p.Path)
		return sessionMsg{profile: p, sets: sets, err: err}
	}
}

// --- View ---

func (m *Model) View() string {
	v, ok := m.bridge.View()
	if !ok || !v.Ready {
		if m.store.Mode() == types.ModeSync {
			return fmt.Sprintf("\n  Waiting for %s...\n", m.label)
		}
		return "\n  Loading bookmarks...\n"
	}
	if m.width == 0 {
		return ""
	}
	m.relayout()

	switch m.overlay {
	case overlayPrompt:
		box := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("62")).Padding(1, 2)
		body := lipgloss.NewStyle().Bold(true).Render(m.promptTitle) + "\n\n" + m.input.View() +
			"\n\n" + dimStyle.Render("enter confirm · esc cancel")
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box.Render(body))
	case overlayConfirm:
		box := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("196")).Padding(1, 2)
		body := m.confirmText + "\n\n" + dimStyle.Render("y confirm · n cancel")
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box.Render(body))
	case overlayPicker:
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.picker.View())
	}

	undoN, redoN := m.history.Len()
	top := renderNavbar(navState{
		mode:      m.store.Mode(),
		label:     m.label,
		connected: m.connected,
		pending:   m.store.Pending(),
		undo:      undoN,
		redo:      redoN,
		checking:  m.checking,
	}, m.stats, m.width)

	panes := lipgloss.JoinHorizontal(lipgloss.Top, m.boardView(), m.detailView(v))
	return lipgloss.JoinVertical(lipgloss.Left, top, panes, m.bottomBar())
}

func (m *Model) boardView() string {
	w, h := m.boardWidth(), m.bodyHeight()
	lines := make([]string, 0, h)
	for i := m.offset; i < m.offset+h; i++ {
		line := ""
		if i < len(m.board.lines) {
			line = xansi.Truncate(m.board.lines[i], w, "")
		}
		if pad := w - xansi.StringWidth(line); pad > 0 {
			line += strings.Repeat(" ", pad)
		}
		lines = append(lines, line)
	}
	if len(m.board.entries) == 0 {
		lines[0] = dimStyle.Render(xansi.Truncate("  No bookmarks yet. Press n to add a category.", w, ""))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) detailView(v types.View) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(m.detail.Width, 1)).
		Height(max(m.detail.Height, 1))

	e, ok := m.current()
	if !ok {
		return box.Render("")
	}
	names := make(map[string]string, len(v.Categories))
	counts := make(map[string]int, len(v.Categories))
	for _, c := range v.Categories {
		names[c.ID] = c.Name
	}
	for _, bm := range v.Bookmarks {
		counts[bm.CategoryID]++
	}

	var content string
	switch e.Kind {
	case drag.SubjectBookmark:
		if bm, ok := m.store.Bookmark(e.ID); ok {
			content = m.detail.ViewBookmark(bm, names[bm.CategoryID], m.dead[bm.ID], m.dup[bm.ID])
		}
	case drag.SubjectCategory:
		if c, ok := m.store.Category(e.ID); ok {
			var group string
			if g, ok := m.store.Group(c.GroupID); ok {
				group = g.Name
			}
			content = m.detail.ViewCategory(c, group, counts[c.ID])
		}
	case drag.SubjectGroup:
		if g, ok := m.store.Group(e.ID); ok {
			content = m.detail.ViewGroup(g, m.store.Members(g.ID), counts)
		}
	}
	return box.Render(m.detail.ViewScrolled(content))
}

func (m *Model) bottomBar() string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Padding(0, 1)
	if m.proxy != nil {
		return style.Foreground(lipgloss.Color("212")).Render(
			fmt.Sprintf("dragging %s → %s · esc cancel", m.proxy.Kind, m.intent))
	}
	if m.status != "" {
		if m.statusErr {
			return style.Foreground(lipgloss.Color("196")).Render(m.status)
		}
		return style.Render(m.status)
	}
	return style.Render("↑↓/jk move · ←→/hl tabs · n category · a bookmark · r rename · e url · d delete · " +
		"g group · m move · u/U undo/redo · c check · i import · drag with mouse · q quit")
}
