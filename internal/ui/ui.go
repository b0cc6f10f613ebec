package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"firetodo/internal/config"
	"firetodo/internal/storage"
	"firetodo/internal/todo"
)

const noticeTTL = 4 * time.Second

type focus int

const (
	focusList focus = iota
	focusAdd
	focusSearch
	focusEdit
	focusConfirmClear
)

// committedMsg carries a finished store write back to the event loop.
type committedMsg struct {
	change todo.Change
	err    error
	// addText is the submitted text of an add, put back into the input if
	// the store refuses it.
	addText string
}

type noticeExpiredMsg struct {
	seq int
}

type Model struct {
	board   *todo.Board
	keys    keyMap
	help    help.Model
	log     *slog.Logger
	timeout time.Duration

	focus  focus
	cursor int
	width  int

	addInput     textinput.Model
	addPriority  storage.Priority
	searchInput  textinput.Model
	editInput    textinput.Model
	editPriority storage.Priority
	bar          progress.Model

	notices   []todo.Notice
	noticeSeq int
	quitting  bool
}

// Run loads the board from the store, renders it once and hands control to
// the event loop until the user quits.
func Run(ctx context.Context, store storage.Store, cfg config.Config, logger *slog.Logger) error {
	board, notices, err := todo.Load(ctx, store, logger)
	if err != nil {
		return err
	}
	m, err := NewModel(board, cfg, logger)
	if err != nil {
		return err
	}
	m.notices = notices

	program := tea.NewProgram(m, tea.WithAltScreen())
	_, err = program.Run()
	return err
}

func NewModel(board *todo.Board, cfg config.Config, logger *slog.Logger) (Model, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	filter, err := todo.ParseFilter(cfg.DefaultFilter)
	if err != nil {
		return Model{}, err
	}
	board.SetFilter(filter)
	timeout, err := cfg.StoreTimeout()
	if err != nil {
		return Model{}, err
	}

	add := textinput.New()
	add.Placeholder = "Add a new task..."
	add.CharLimit = 256
	add.Width = 40

	search := textinput.New()
	search.Placeholder = "Search tasks..."
	search.CharLimit = 64
	search.Width = 24

	edit := textinput.New()
	edit.CharLimit = 256
	edit.Width = 40

	return Model{
		board:       board,
		keys:        newKeyMap(cfg.Keys),
		help:        help.New(),
		log:         logger,
		timeout:     timeout,
		addInput:    add,
		addPriority: storage.PriorityMedium,
		searchInput: search,
		editInput:   edit,
		bar:         progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}, nil
}

func (m Model) Init() tea.Cmd {
	if len(m.notices) > 0 {
		return m.expireNotices()
	}
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.addInput.Width = max(msg.Width-30, 10)
		m.editInput.Width = max(msg.Width-40, 10)
		m.bar.Width = max(min(msg.Width-4, 80), 10)
		m.help.Width = msg.Width
	case committedMsg:
		return m.applyCommitted(msg)
	case noticeExpiredMsg:
		if msg.seq == m.noticeSeq {
			m.notices = nil
		}
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.focus {
	case focusAdd:
		return m.updateAddMode(msg)
	case focusSearch:
		return m.updateSearchMode(msg)
	case focusEdit:
		return m.updateEditMode(msg)
	case focusConfirmClear:
		return m.updateClearConfirm(msg)
	}
	return m.updateListMode(msg)
}

func (m Model) updateListMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.board.Pending() {
			m.quitting = true
			return m.notify(todo.Notice{Level: todo.LevelInfo, Text: "Waiting for pending writes..."})
		}
		return m, tea.Quit
	case key.Matches(msg, m.keys.Down):
		m.cursor = clampCursor(m.cursor+1, len(m.board.Visible()))
	case key.Matches(msg, m.keys.Up):
		m.cursor = clampCursor(m.cursor-1, len(m.board.Visible()))
	case key.Matches(msg, m.keys.Add):
		m.focus = focusAdd
		return m, m.addInput.Focus()
	case key.Matches(msg, m.keys.Search):
		m.focus = focusSearch
		return m, m.searchInput.Focus()
	case key.Matches(msg, m.keys.FilterAll):
		return m.setFilter(todo.FilterAll)
	case key.Matches(msg, m.keys.FilterDone):
		return m.setFilter(todo.FilterDone)
	case key.Matches(msg, m.keys.FilterPending):
		return m.setFilter(todo.FilterPending)
	case key.Matches(msg, m.keys.MarkAllDone):
		c, err := m.board.PlanMarkAllDone()
		return m.run(c, err, "")
	case key.Matches(msg, m.keys.ClearAll):
		if m.board.Len() == 0 {
			return m, nil
		}
		m.focus = focusConfirmClear
	case key.Matches(msg, m.keys.Cancel):
		if _, ok := m.board.Editing(); ok {
			m.board.EditCancel()
		}
	default:
		return m.updateRowAction(msg)
	}
	return m, nil
}

// updateRowAction handles the per-row controls of the selected row.
func (m Model) updateRowAction(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	row, ok := m.selected()
	if !ok {
		return m, nil
	}
	id := row.Task.ID
	switch {
	case key.Matches(msg, m.keys.Toggle):
		c, err := m.board.PlanToggle(id)
		return m.run(c, err, "")
	case key.Matches(msg, m.keys.Delete):
		c, err := m.board.PlanDelete(id)
		return m.run(c, err, "")
	case key.Matches(msg, m.keys.Edit):
		if row.Editing {
			m.focus = focusEdit
			return m, m.editInput.Focus()
		}
		if err := m.board.EditStart(id); err != nil {
			return m.notify(todo.NoticeFor(err))
		}
		m.editInput.SetValue(row.Task.Text)
		m.editInput.CursorEnd()
		m.editPriority = row.Task.Priority
		m.focus = focusEdit
		return m, m.editInput.Focus()
	case key.Matches(msg, m.keys.MoveUp):
		if err := m.board.MoveUp(id); err != nil {
			return m.notify(todo.NoticeFor(err))
		}
		m.follow(id)
	case key.Matches(msg, m.keys.MoveDown):
		if err := m.board.MoveDown(id); err != nil {
			return m.notify(todo.NoticeFor(err))
		}
		m.follow(id)
	}
	return m, nil
}

func (m Model) updateAddMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.focus = focusList
		m.addInput.Blur()
		return m, nil
	case key.Matches(msg, m.keys.PriorityNext):
		m.addPriority = m.addPriority.Next()
		return m, nil
	case key.Matches(msg, m.keys.PriorityPrev):
		m.addPriority = m.addPriority.Prev()
		return m, nil
	case key.Matches(msg, m.keys.Confirm):
		text := m.addInput.Value()
		c, err := m.board.PlanAdd(text, m.addPriority)
		if err == nil {
			m.addInput.SetValue("")
		}
		return m.run(c, err, text)
	}
	var cmd tea.Cmd
	m.addInput, cmd = m.addInput.Update(msg)
	return m, cmd
}

func (m Model) updateSearchMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.searchInput.SetValue("")
		m.board.SetSearch("")
		m.focus = focusList
		m.searchInput.Blur()
		m.cursor = clampCursor(m.cursor, len(m.board.Visible()))
		return m, nil
	case key.Matches(msg, m.keys.Confirm):
		m.focus = focusList
		m.searchInput.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	m.board.SetSearch(m.searchInput.Value())
	m.cursor = clampCursor(m.cursor, len(m.board.Visible()))
	return m, cmd
}

// updateEditMode types into the inline editor. Cancel only leaves the field;
// the row stays in edit mode until it is saved or another row is edited.
func (m Model) updateEditMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.focus = focusList
		m.editInput.Blur()
		return m, nil
	case key.Matches(msg, m.keys.PriorityNext):
		m.editPriority = m.editPriority.Next()
		return m, nil
	case key.Matches(msg, m.keys.PriorityPrev):
		m.editPriority = m.editPriority.Prev()
		return m, nil
	case key.Matches(msg, m.keys.Confirm):
		id, ok := m.board.Editing()
		if !ok {
			m.focus = focusList
			m.editInput.Blur()
			return m, nil
		}
		c, err := m.board.PlanEditSave(id, m.editInput.Value(), m.editPriority)
		if errors.Is(err, todo.ErrBusy) {
			// keep the draft open until the row is free again
			return m.notify(todo.NoticeFor(err))
		}
		m.focus = focusList
		m.editInput.Blur()
		return m.run(c, err, "")
	}
	var cmd tea.Cmd
	m.editInput, cmd = m.editInput.Update(msg)
	return m, cmd
}

func (m Model) updateClearConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Cancel) {
		m.focus = focusList
		return m.notify(todo.Notice{Level: todo.LevelInfo, Text: "Clear cancelled"})
	}
	switch msg.String() {
	case "y", "Y":
		m.focus = focusList
		c, err := m.board.PlanClearAll()
		return m.run(c, err, "")
	case "n", "N":
		m.focus = focusList
		return m.notify(todo.Notice{Level: todo.LevelInfo, Text: "Clear cancelled"})
	}
	return m, nil
}

func (m Model) setFilter(f todo.Filter) (tea.Model, tea.Cmd) {
	m.board.SetFilter(f)
	m.cursor = clampCursor(m.cursor, len(m.board.Visible()))
	return m, nil
}

// run dispatches a planned change to the store off the event loop.
func (m Model) run(c todo.Change, err error, addText string) (tea.Model, tea.Cmd) {
	if err != nil {
		m.log.Debug("command rejected", "err", err)
		return m.notify(todo.NoticeFor(err))
	}
	store := m.board.Store()
	timeout := m.timeout
	return m, func() tea.Msg {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		done, err := c.Commit(ctx, store)
		return committedMsg{change: done, err: err, addText: addText}
	}
}

func (m Model) applyCommitted(msg committedMsg) (tea.Model, tea.Cmd) {
	notices := m.board.Apply(msg.change, msg.err)
	if msg.err != nil && msg.addText != "" && m.addInput.Value() == "" {
		m.addInput.SetValue(msg.addText)
		m.addInput.CursorEnd()
	}
	m.cursor = clampCursor(m.cursor, len(m.board.Visible()))
	if m.quitting && !m.board.Pending() {
		return m, tea.Quit
	}
	return m.notify(notices...)
}

func (m Model) notify(notices ...todo.Notice) (tea.Model, tea.Cmd) {
	if len(notices) == 0 {
		return m, nil
	}
	m.notices = notices
	m.noticeSeq++
	return m, m.expireNotices()
}

func (m Model) expireNotices() tea.Cmd {
	seq := m.noticeSeq
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg {
		return noticeExpiredMsg{seq: seq}
	})
}

func (m Model) selected() (todo.Row, bool) {
	rows := m.board.Visible()
	if len(rows) == 0 {
		return todo.Row{}, false
	}
	return rows[clampCursor(m.cursor, len(rows))], true
}

// follow keeps the cursor on a task after it moved.
func (m *Model) follow(id string) {
	for i, r := range m.board.Visible() {
		if r.Task.ID == id {
			m.cursor = i
			return
		}
	}
}

func clampCursor(cur, n int) int {
	if n <= 0 {
		return 0
	}
	if cur < 0 {
		return 0
	}
	if cur >= n {
		return n - 1
	}
	return cur
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(" To-Do App "))
	b.WriteString("\n\n")
	b.WriteString(m.renderAddBar())
	b.WriteString("\n")
	b.WriteString(m.renderFilterBar())
	b.WriteString("\n\n")
	b.WriteString(m.renderProgress())
	b.WriteString("\n\n")

	rows := m.board.Visible()
	if len(rows) == 0 {
		if m.board.Len() == 0 {
			b.WriteString(dimStyle.Render("No tasks yet. Press '" + keyLabel(m.keys.Add.Help().Key) + "' to add one."))
		} else {
			b.WriteString(dimStyle.Render("No tasks match."))
		}
		b.WriteString("\n")
	} else {
		b.WriteString(m.renderTaskList(rows))
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("%s mark all done • %s clear all",
		m.keys.MarkAllDone.Help().Key, m.keys.ClearAll.Help().Key)))
	b.WriteString("\n\n")

	if m.focus == focusConfirmClear {
		b.WriteString(noticeStyle(todo.LevelDanger).Render(fmt.Sprintf("Clear all %d tasks? y/n", m.board.Len())))
		b.WriteString("\n")
	}
	for _, n := range m.notices {
		b.WriteString(noticeStyle(n.Level).Render(n.Text))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) renderAddBar() string {
	prefix := "  "
	if m.focus == focusAdd {
		prefix = "> "
	}
	return prefix + m.addInput.View() + " " + priorityBadge(m.addPriority)
}

func (m Model) renderFilterBar() string {
	buttons := make([]string, 0, len(todo.Filters()))
	for _, f := range todo.Filters() {
		style := filterStyle
		if f == m.board.Filter() {
			style = activeFilterStyle
		}
		buttons = append(buttons, style.Render(f.Label()))
	}
	search := m.searchInput.View()
	if m.focus == focusSearch {
		search = "/ " + search
	}
	return "  " + strings.Join(buttons, " ") + "   " + search
}

func (m Model) renderProgress() string {
	p := m.board.Progress()
	label := progressLabelStyle.Render(fmt.Sprintf("%d%% Completed", p.Percent()))
	return label + "\n" + m.bar.ViewAs(p.Ratio())
}

func (m Model) renderTaskList(rows []todo.Row) string {
	var b strings.Builder
	cur := clampCursor(m.cursor, len(rows))
	for i, r := range rows {
		cursor := " "
		if i == cur && m.focus != focusAdd && m.focus != focusSearch {
			cursor = ">"
		}

		checkbox := "[ ]"
		if r.Task.Done {
			checkbox = "[x]"
		}

		var body string
		if r.Editing {
			body = m.editInput.View() + " " + priorityBadge(m.editPriority) +
				dimStyle.Render(" "+m.keys.Confirm.Help().Key+" save")
		} else {
			label := labelStyle
			if r.Task.Done {
				label = doneLabelStyle
			}
			body = label.Render(r.Task.Text) + " " + priorityBadge(r.Task.Priority)
		}

		line := fmt.Sprintf("%s %s %s", cursor, checkbox, body)
		if r.Busy {
			line += dimStyle.Render("  saving...")
		} else if i == cur {
			line += dimStyle.Render("  " + m.rowControls(r))
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// rowControls lists the per-row actions; Edit is hidden on the row being edited.
func (m Model) rowControls(r todo.Row) string {
	controls := make([]string, 0, 4)
	if !r.Editing {
		controls = append(controls, m.keys.Edit.Help().Key+" edit")
	}
	controls = append(controls,
		m.keys.Delete.Help().Key+" delete",
		m.keys.MoveUp.Help().Key+" up",
		m.keys.MoveDown.Help().Key+" down",
	)
	return strings.Join(controls, " · ")
}
