package todo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"firetodo/internal/storage"
)

type changeKind int

const (
	changeAdd changeKind = iota
	changeToggle
	changeDelete
	changeEdit
	changeMarkAll
	changeClear
)

func (k changeKind) String() string {
	switch k {
	case changeAdd:
		return "add"
	case changeToggle:
		return "toggle"
	case changeDelete:
		return "delete"
	case changeEdit:
		return "save"
	case changeMarkAll:
		return "mark all done"
	case changeClear:
		return "clear all"
	}
	return "change"
}

// Change is a planned set of store writes. It holds copies of the tasks, so
// Commit may run on any goroutine while the Board keeps rendering.
type Change struct {
	kind    changeKind
	saves   []storage.Task
	deletes []storage.Task
	// pending are the ids marked busy by Plan; Apply releases them.
	pending []string
}

func (c Change) Op() string {
	return c.kind.String()
}

// Commit performs the writes one round trip at a time. On failure it returns
// the writes the store acknowledged so far together with the error.
func (c Change) Commit(ctx context.Context, store storage.Store) (Change, error) {
	done := Change{kind: c.kind, pending: c.pending}
	for _, t := range c.saves {
		if err := store.Save(ctx, &t); err != nil {
			return done, err
		}
		done.saves = append(done.saves, t)
	}
	for _, t := range c.deletes {
		if err := store.Delete(ctx, t); err != nil {
			return done, err
		}
		done.deletes = append(done.deletes, t)
	}
	return done, nil
}

func (b *Board) markBusy(ids ...string) {
	for _, id := range ids {
		if id != "" {
			b.busy[id] = struct{}{}
		}
	}
}

func (b *Board) anyBusy() bool {
	for _, t := range b.tasks {
		if b.IsBusy(t.ID) {
			return true
		}
	}
	return false
}

// lookup resolves a task that is free to be written.
func (b *Board) lookup(id string) (storage.Task, error) {
	i, err := b.indexOf(id)
	if err != nil {
		return storage.Task{}, err
	}
	if b.IsBusy(id) {
		return storage.Task{}, fmt.Errorf("%w: %s", ErrBusy, id)
	}
	return b.tasks[i], nil
}

func (b *Board) PlanAdd(text string, priority storage.Priority) (Change, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Change{}, ErrEmptyText
	}
	if b.adding {
		return Change{}, ErrBusy
	}
	b.adding = true
	t := storage.Task{Text: text, Priority: priority.Normalize()}
	return Change{kind: changeAdd, saves: []storage.Task{t}}, nil
}

func (b *Board) PlanToggle(id string) (Change, error) {
	t, err := b.lookup(id)
	if err != nil {
		return Change{}, err
	}
	t.Done = !t.Done
	b.markBusy(id)
	return Change{kind: changeToggle, saves: []storage.Task{t}, pending: []string{id}}, nil
}

func (b *Board) PlanDelete(id string) (Change, error) {
	t, err := b.lookup(id)
	if err != nil {
		return Change{}, err
	}
	b.markBusy(id)
	return Change{kind: changeDelete, deletes: []storage.Task{t}, pending: []string{id}}, nil
}

// PlanEditSave leaves edit mode unless the task is busy, in which case the
// draft stays open for another try. Blank text discards the edit without a
// warning and without touching the store.
func (b *Board) PlanEditSave(id, text string, priority storage.Priority) (Change, error) {
	t, err := b.lookup(id)
	if errors.Is(err, ErrBusy) {
		return Change{}, err
	}
	b.editing = ""
	if err != nil {
		return Change{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Change{kind: changeEdit}, nil
	}
	t.Text = text
	t.Priority = priority.Normalize()
	b.markBusy(id)
	return Change{kind: changeEdit, saves: []storage.Task{t}, pending: []string{id}}, nil
}

func (b *Board) PlanMarkAllDone() (Change, error) {
	if b.anyBusy() {
		return Change{}, ErrBusy
	}
	c := Change{kind: changeMarkAll}
	for _, t := range b.tasks {
		t.Done = true
		c.saves = append(c.saves, t)
		c.pending = append(c.pending, t.ID)
	}
	b.markBusy(c.pending...)
	return c, nil
}

func (b *Board) PlanClearAll() (Change, error) {
	if b.anyBusy() {
		return Change{}, ErrBusy
	}
	c := Change{kind: changeClear, deletes: b.Tasks()}
	for _, t := range b.tasks {
		c.pending = append(c.pending, t.ID)
	}
	b.markBusy(c.pending...)
	return c, nil
}

// Apply folds a committed change into the list and releases its busy ids.
// err is the error Commit returned, if any.
func (b *Board) Apply(c Change, err error) []Notice {
	for _, id := range c.pending {
		delete(b.busy, id)
	}
	if c.kind == changeAdd {
		b.adding = false
	}
	for _, t := range c.saves {
		if i, lookupErr := b.indexOf(t.ID); lookupErr == nil {
			b.tasks[i] = t
		} else {
			b.tasks = append(b.tasks, t)
		}
	}
	for _, t := range c.deletes {
		if i, lookupErr := b.indexOf(t.ID); lookupErr == nil {
			b.tasks = append(b.tasks[:i], b.tasks[i+1:]...)
		}
		if b.editing == t.ID {
			b.editing = ""
		}
	}

	var notices []Notice
	if err != nil {
		b.log.Error("store write failed", "op", c.Op(), "acknowledged", len(c.saves)+len(c.deletes), "err", err)
		notices = append(notices, failedNotice(c.Op(), err))
	} else {
		b.log.Debug("applied change", "op", c.Op(), "saves", len(c.saves), "deletes", len(c.deletes))
		switch c.kind {
		case changeAdd:
			notices = append(notices, noticeAdded)
		case changeDelete:
			notices = append(notices, noticeDeleted)
		case changeMarkAll:
			notices = append(notices, noticeAllDone)
		case changeClear:
			notices = append(notices, noticeCleared)
		}
	}
	if n, ok := b.checkCompleted(); ok {
		notices = append(notices, n)
	}
	return notices
}

// Execute commits and applies a change synchronously.
func (b *Board) Execute(ctx context.Context, c Change) ([]Notice, error) {
	done, err := c.Commit(ctx, b.store)
	notices := b.Apply(done, err)
	if err != nil {
		return notices, fmt.Errorf("%s: %w", c.Op(), err)
	}
	return notices, nil
}

func (b *Board) Add(ctx context.Context, text string, priority storage.Priority) ([]Notice, error) {
	c, err := b.PlanAdd(text, priority)
	if err != nil {
		return []Notice{NoticeFor(err)}, err
	}
	return b.Execute(ctx, c)
}

func (b *Board) Toggle(ctx context.Context, id string) ([]Notice, error) {
	c, err := b.PlanToggle(id)
	if err != nil {
		return nil, err
	}
	return b.Execute(ctx, c)
}

func (b *Board) Delete(ctx context.Context, id string) ([]Notice, error) {
	c, err := b.PlanDelete(id)
	if err != nil {
		return nil, err
	}
	return b.Execute(ctx, c)
}

func (b *Board) EditSave(ctx context.Context, id, text string, priority storage.Priority) ([]Notice, error) {
	c, err := b.PlanEditSave(id, text, priority)
	if err != nil {
		return nil, err
	}
	return b.Execute(ctx, c)
}

func (b *Board) MarkAllDone(ctx context.Context) ([]Notice, error) {
	c, err := b.PlanMarkAllDone()
	if err != nil {
		return nil, err
	}
	return b.Execute(ctx, c)
}

func (b *Board) ClearAll(ctx context.Context) ([]Notice, error) {
	c, err := b.PlanClearAll()
	if err != nil {
		return nil, err
	}
	return b.Execute(ctx, c)
}
