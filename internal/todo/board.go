// Package todo holds the in-memory task list and the commands that mutate it.
//
// A Board is owned by a single event loop. Store-backed commands are split
// into Plan (on the loop), Commit (anywhere, works on copies) and Apply (on
// the loop) so a slow store never races the list that is being rendered.
package todo

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"firetodo/internal/storage"
)

type Board struct {
	store storage.Store
	log   *slog.Logger

	tasks   []storage.Task
	filter  Filter
	search  string
	editing string
	busy    map[string]struct{}
	// adding is set while a new task is on its way to the store.
	adding bool

	celebrated bool
}

// Row is one visible line of the list. Index is the task's position in the
// full list, not in the filtered view.
type Row struct {
	Task    storage.Task
	Index   int
	Editing bool
	Busy    bool
}

type Progress struct {
	Completed int
	Total     int
}

func (p Progress) Ratio() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Completed) / float64(p.Total)
}

// Percent truncates the ratio the same way the progress label always has.
func (p Progress) Percent() int {
	return int(math.Floor(p.Ratio() * 100))
}

func (p Progress) Complete() bool {
	return p.Total > 0 && p.Completed == p.Total
}

func NewBoard(store storage.Store, tasks []storage.Task, logger *slog.Logger) *Board {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	b := &Board{
		store:  store,
		log:    logger,
		tasks:  append([]storage.Task(nil), tasks...),
		filter: FilterAll,
		busy:   make(map[string]struct{}),
	}
	for i := range b.tasks {
		b.tasks[i].Priority = b.tasks[i].Priority.Normalize()
	}
	return b
}

// Load reads the whole collection into a new Board. A failed load is returned
// as is; there is no retry and no offline fallback.
func Load(ctx context.Context, store storage.Store, logger *slog.Logger) (*Board, []Notice, error) {
	tasks, err := store.LoadAll(ctx)
	if err != nil {
		return nil, nil, err
	}
	b := NewBoard(store, tasks, logger)
	b.log.Info("loaded board", "tasks", len(tasks))
	var notices []Notice
	if n, ok := b.checkCompleted(); ok {
		notices = append(notices, n)
	}
	return b, notices, nil
}

func (b *Board) Store() storage.Store {
	return b.store
}

func (b *Board) Len() int {
	return len(b.tasks)
}

// Tasks returns a copy of the list in display order.
func (b *Board) Tasks() []storage.Task {
	return append([]storage.Task(nil), b.tasks...)
}

func (b *Board) Task(id string) (storage.Task, error) {
	i, err := b.indexOf(id)
	if err != nil {
		return storage.Task{}, err
	}
	return b.tasks[i], nil
}

// IDAt resolves a position in the full list to a task id.
func (b *Board) IDAt(index int) (string, error) {
	if index < 0 || index >= len(b.tasks) {
		return "", fmt.Errorf("%w: index %d of %d", ErrTaskNotFound, index, len(b.tasks))
	}
	return b.tasks[index].ID, nil
}

func (b *Board) IndexOf(id string) (int, error) {
	return b.indexOf(id)
}

func (b *Board) indexOf(id string) (int, error) {
	if id != "" {
		for i, t := range b.tasks {
			if t.ID == id {
				return i, nil
			}
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrTaskNotFound, id)
}

func (b *Board) Filter() Filter {
	return b.filter
}

func (b *Board) SetFilter(f Filter) {
	b.filter = f
}

func (b *Board) Search() string {
	return b.search
}

func (b *Board) SetSearch(text string) {
	b.search = strings.ToLower(text)
}

// Editing returns the id of the task in edit mode, if any.
func (b *Board) Editing() (string, bool) {
	return b.editing, b.editing != ""
}

// EditStart puts one task in edit mode. A task already being edited drops
// back to viewing and its draft is discarded.
func (b *Board) EditStart(id string) error {
	if _, err := b.indexOf(id); err != nil {
		return err
	}
	if b.IsBusy(id) {
		return fmt.Errorf("%w: %s", ErrBusy, id)
	}
	b.editing = id
	return nil
}

func (b *Board) EditCancel() {
	b.editing = ""
}

func (b *Board) IsBusy(id string) bool {
	_, ok := b.busy[id]
	return ok
}

// Pending reports whether any write is still in flight.
func (b *Board) Pending() bool {
	return b.adding || len(b.busy) > 0
}

// MoveUp swaps the task with its predecessor. Order lives only in memory.
func (b *Board) MoveUp(id string) error {
	i, err := b.indexOf(id)
	if err != nil {
		return err
	}
	if i > 0 {
		b.tasks[i], b.tasks[i-1] = b.tasks[i-1], b.tasks[i]
	}
	return nil
}

func (b *Board) MoveDown(id string) error {
	i, err := b.indexOf(id)
	if err != nil {
		return err
	}
	if i < len(b.tasks)-1 {
		b.tasks[i], b.tasks[i+1] = b.tasks[i+1], b.tasks[i]
	}
	return nil
}

func (b *Board) Progress() Progress {
	p := Progress{Total: len(b.tasks)}
	for _, t := range b.tasks {
		if t.Done {
			p.Completed++
		}
	}
	return p
}

// Visible applies the filter and the search query, keeping list order.
func (b *Board) Visible() []Row {
	var rows []Row
	for i, t := range b.tasks {
		if !b.filter.Match(t) || !matchSearch(t.Text, b.search) {
			continue
		}
		rows = append(rows, Row{
			Task:    t,
			Index:   i,
			Editing: b.editing != "" && t.ID == b.editing,
			Busy:    b.IsBusy(t.ID),
		})
	}
	return rows
}

// checkCompleted yields the completion notice once per transition into the
// all-done state.
func (b *Board) checkCompleted() (Notice, bool) {
	if !b.Progress().Complete() {
		b.celebrated = false
		return Notice{}, false
	}
	if b.celebrated {
		return Notice{}, false
	}
	b.celebrated = true
	return noticeCompleted, true
}
