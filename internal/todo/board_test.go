package todo

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firetodo/internal/storage"
)

var errStoreDown = errors.New("store unavailable")

// countingStore records every call and can be told to fail after n writes.
type countingStore struct {
	*storage.MemoryStore
	saves     int
	deletes   int
	failAfter int // writes allowed before failing; negative disables
}

func newCountingStore(seed ...storage.Task) *countingStore {
	return &countingStore{MemoryStore: storage.NewMemory(seed...), failAfter: -1}
}

func (s *countingStore) writeAllowed() bool {
	if s.failAfter < 0 {
		return true
	}
	return s.saves+s.deletes < s.failAfter
}

func (s *countingStore) Save(ctx context.Context, t *storage.Task) error {
	if !s.writeAllowed() {
		return errStoreDown
	}
	s.saves++
	return s.MemoryStore.Save(ctx, t)
}

func (s *countingStore) Delete(ctx context.Context, t storage.Task) error {
	if !s.writeAllowed() {
		return errStoreDown
	}
	s.deletes++
	return s.MemoryStore.Delete(ctx, t)
}

func loadBoard(t *testing.T, store storage.Store) *Board {
	t.Helper()
	b, _, err := Load(context.Background(), store, nil)
	require.NoError(t, err)
	return b
}

func texts(rows []Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Task.Text)
	}
	return out
}

func TestAddPersistsAndAssignsID(t *testing.T) {
	store := newCountingStore()
	b := loadBoard(t, store)

	notices, err := b.Add(context.Background(), "  Buy milk  ", storage.PriorityHigh)
	require.NoError(t, err)
	assert.Equal(t, []Notice{noticeAdded}, notices)

	require.Equal(t, 1, b.Len())
	got := b.Tasks()[0]
	assert.NotEmpty(t, got.ID, "added task should carry the store id")
	assert.Equal(t, "Buy milk", got.Text)
	assert.False(t, got.Done)
	assert.Equal(t, storage.PriorityHigh, got.Priority)

	docs, err := store.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []storage.Task{got}, docs, "store should hold a matching document")
}

func TestAddRejectsBlankText(t *testing.T) {
	store := newCountingStore()
	b := loadBoard(t, store)

	for _, text := range []string{"", "   ", "\t\n"} {
		notices, err := b.Add(context.Background(), text, storage.PriorityLow)
		require.ErrorIs(t, err, ErrEmptyText)
		assert.Equal(t, []Notice{noticeEmptyText}, notices)
	}
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, 0, store.saves, "blank adds must not reach the store")
}

func TestToggleTwiceRestores(t *testing.T) {
	store := newCountingStore(storage.Task{Text: "a"})
	b := loadBoard(t, store)
	id, err := b.IDAt(0)
	require.NoError(t, err)

	_, err = b.Toggle(context.Background(), id)
	require.NoError(t, err)
	task, err := b.Task(id)
	require.NoError(t, err)
	assert.True(t, task.Done)

	_, err = b.Toggle(context.Background(), id)
	require.NoError(t, err)
	task, err = b.Task(id)
	require.NoError(t, err)
	assert.False(t, task.Done)
	assert.Equal(t, 2, store.saves)
}

func TestDeleteRemovesDocument(t *testing.T) {
	store := newCountingStore(storage.Task{Text: "a"}, storage.Task{Text: "b"})
	b := loadBoard(t, store)
	id, err := b.IDAt(0)
	require.NoError(t, err)

	notices, err := b.Delete(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, []Notice{noticeDeleted}, notices)
	assert.Equal(t, []string{"b"}, texts(b.Visible()))
	assert.Equal(t, 1, store.deletes)

	_, err = b.Delete(context.Background(), id)
	require.ErrorIs(t, err, ErrTaskNotFound)
}

func TestFilterDoneAndPending(t *testing.T) {
	b := loadBoard(t, newCountingStore(
		storage.Task{Text: "A"},
		storage.Task{Text: "B", Done: true},
	))

	b.SetFilter(FilterDone)
	assert.Equal(t, []string{"B"}, texts(b.Visible()))

	b.SetFilter(FilterPending)
	assert.Equal(t, []string{"A"}, texts(b.Visible()))

	b.SetFilter(FilterAll)
	assert.Equal(t, []string{"A", "B"}, texts(b.Visible()))
}

func TestVisibleKeepsFullListIndex(t *testing.T) {
	b := loadBoard(t, newCountingStore(
		storage.Task{Text: "Write report"},
		storage.Task{Text: "Call mom", Done: true},
		storage.Task{Text: "write tests"},
	))
	b.SetSearch("WRITE")
	assert.Equal(t, "write", b.Search())

	rows := b.Visible()
	require.Len(t, rows, 2)
	assert.Equal(t, 0, rows[0].Index)
	assert.Equal(t, 2, rows[1].Index)
}

func TestClearAllDeletesEveryDocument(t *testing.T) {
	store := newCountingStore(storage.Task{Text: "a"}, storage.Task{Text: "b"}, storage.Task{Text: "c"})
	b := loadBoard(t, store)

	notices, err := b.ClearAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Notice{noticeCleared}, notices)
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, 3, store.deletes)
}

func TestMarkAllDoneWritesEachTask(t *testing.T) {
	store := newCountingStore(storage.Task{Text: "a"}, storage.Task{Text: "b", Done: true}, storage.Task{Text: "c"})
	b := loadBoard(t, store)

	notices, err := b.MarkAllDone(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Notice{noticeAllDone, noticeCompleted}, notices)
	assert.Equal(t, 3, store.saves)
	assert.Equal(t, Progress{Completed: 3, Total: 3}, b.Progress())
}

func TestEditSaveWithBlankTextKeepsTask(t *testing.T) {
	store := newCountingStore(storage.Task{Text: "original", Priority: storage.PriorityLow})
	b := loadBoard(t, store)
	id, err := b.IDAt(0)
	require.NoError(t, err)

	require.NoError(t, b.EditStart(id))
	editing, ok := b.Editing()
	require.True(t, ok)
	assert.Equal(t, id, editing)

	notices, err := b.EditSave(context.Background(), id, "   ", storage.PriorityHigh)
	require.NoError(t, err)
	assert.Empty(t, notices, "a discarded edit is silent")

	task, err := b.Task(id)
	require.NoError(t, err)
	assert.Equal(t, "original", task.Text)
	assert.Equal(t, storage.PriorityLow, task.Priority)
	_, ok = b.Editing()
	assert.False(t, ok, "edit mode should be cleared")
	assert.Equal(t, 0, store.saves)
}

func TestEditSaveUpdatesTextAndPriority(t *testing.T) {
	store := newCountingStore(storage.Task{Text: "original"})
	b := loadBoard(t, store)
	id, err := b.IDAt(0)
	require.NoError(t, err)

	require.NoError(t, b.EditStart(id))
	_, err = b.EditSave(context.Background(), id, " renamed ", storage.PriorityHigh)
	require.NoError(t, err)

	task, err := b.Task(id)
	require.NoError(t, err)
	assert.Equal(t, "renamed", task.Text)
	assert.Equal(t, storage.PriorityHigh, task.Priority)
	assert.Equal(t, 1, store.saves)
}

func TestEditStartSwitchesTask(t *testing.T) {
	b := loadBoard(t, newCountingStore(storage.Task{Text: "a"}, storage.Task{Text: "b"}))
	a, _ := b.IDAt(0)
	other, _ := b.IDAt(1)

	require.NoError(t, b.EditStart(a))
	require.NoError(t, b.EditStart(other))

	var editingRows []string
	for _, r := range b.Visible() {
		if r.Editing {
			editingRows = append(editingRows, r.Task.Text)
		}
	}
	assert.Equal(t, []string{"b"}, editingRows, "only one task may be in edit mode")

	b.EditCancel()
	_, ok := b.Editing()
	assert.False(t, ok)
}

func TestMoveBoundariesAreNoOps(t *testing.T) {
	b := loadBoard(t, newCountingStore(storage.Task{Text: "a"}, storage.Task{Text: "b"}, storage.Task{Text: "c"}))
	first, _ := b.IDAt(0)
	last, _ := b.IDAt(2)

	require.NoError(t, b.MoveUp(first))
	require.NoError(t, b.MoveDown(last))
	assert.Equal(t, []string{"a", "b", "c"}, texts(b.Visible()))

	require.NoError(t, b.MoveDown(first))
	assert.Equal(t, []string{"b", "a", "c"}, texts(b.Visible()))
}

func TestReorderIsNotPersisted(t *testing.T) {
	store := newCountingStore(storage.Task{Text: "a"}, storage.Task{Text: "b"})
	b := loadBoard(t, store)
	id, _ := b.IDAt(1)
	require.NoError(t, b.MoveUp(id))

	assert.Equal(t, 0, store.saves)
	reloaded := loadBoard(t, store)
	assert.Equal(t, []string{"a", "b"}, texts(reloaded.Visible()))
}

func TestUnknownIDFailsFast(t *testing.T) {
	b := loadBoard(t, newCountingStore(storage.Task{Text: "a"}))

	_, err := b.IDAt(5)
	require.ErrorIs(t, err, ErrTaskNotFound)
	_, err = b.IDAt(-1)
	require.ErrorIs(t, err, ErrTaskNotFound)
	require.ErrorIs(t, b.MoveUp("nope"), ErrTaskNotFound)
	require.ErrorIs(t, b.EditStart("nope"), ErrTaskNotFound)
	_, err = b.Toggle(context.Background(), "nope")
	require.ErrorIs(t, err, ErrTaskNotFound)
	_, err = b.EditSave(context.Background(), "", "x", storage.PriorityLow)
	require.ErrorIs(t, err, ErrTaskNotFound)
}

func TestBusyTaskRejectsSecondWrite(t *testing.T) {
	store := newCountingStore(storage.Task{Text: "a"}, storage.Task{Text: "b"})
	b := loadBoard(t, store)
	id, _ := b.IDAt(0)
	other, _ := b.IDAt(1)

	c, err := b.PlanToggle(id)
	require.NoError(t, err)
	assert.True(t, b.IsBusy(id))
	assert.True(t, b.Pending())

	_, err = b.PlanDelete(id)
	require.ErrorIs(t, err, ErrBusy)
	require.ErrorIs(t, b.EditStart(id), ErrBusy)
	_, err = b.PlanClearAll()
	require.ErrorIs(t, err, ErrBusy)
	_, err = b.PlanToggle(other)
	require.NoError(t, err, "other rows stay usable while one is saving")

	// The list is untouched until the write is acknowledged.
	task, _ := b.Task(id)
	assert.False(t, task.Done)

	done, err := c.Commit(context.Background(), store)
	require.NoError(t, err)
	b.Apply(done, nil)
	task, _ = b.Task(id)
	assert.True(t, task.Done)
	assert.False(t, b.IsBusy(id))
}

func TestCommitFailureKeepsAcknowledgedPrefix(t *testing.T) {
	store := newCountingStore(storage.Task{Text: "a"}, storage.Task{Text: "b"}, storage.Task{Text: "c"})
	b := loadBoard(t, store)
	store.failAfter = 2

	notices, err := b.ClearAll(context.Background())
	require.ErrorIs(t, err, errStoreDown)
	require.Len(t, notices, 1)
	assert.Equal(t, LevelDanger, notices[0].Level)
	assert.Contains(t, notices[0].Text, "clear all failed")

	assert.Equal(t, []string{"c"}, texts(b.Visible()), "only acknowledged deletes are applied")
	assert.False(t, b.Pending(), "busy marks are released after a failure")
}

func TestCompletionNoticeIsEdgeTriggered(t *testing.T) {
	store := newCountingStore(storage.Task{Text: "a"}, storage.Task{Text: "b", Done: true})
	b := loadBoard(t, store)
	id, _ := b.IDAt(0)

	notices, err := b.Toggle(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, []Notice{noticeCompleted}, notices)

	b.SetFilter(FilterDone)
	other, _ := b.IDAt(1)
	require.NoError(t, b.MoveUp(other))
	notices, err = b.EditSave(context.Background(), other, "b2", storage.PriorityMedium)
	require.NoError(t, err)
	assert.Empty(t, notices, "no repeat while the list stays complete")

	_, err = b.Toggle(context.Background(), id)
	require.NoError(t, err)
	notices, err = b.Toggle(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, []Notice{noticeCompleted}, notices, "re-armed after leaving the complete state")
}

func TestLoadCelebratesCompletedList(t *testing.T) {
	_, notices, err := Load(context.Background(), newCountingStore(storage.Task{Text: "a", Done: true}), nil)
	require.NoError(t, err)
	assert.Equal(t, []Notice{noticeCompleted}, notices)

	_, notices, err = Load(context.Background(), newCountingStore(), nil)
	require.NoError(t, err)
	assert.Empty(t, notices, "an empty list is never complete")
}

type failingLoadStore struct{ storage.MemoryStore }

func (*failingLoadStore) LoadAll(context.Context) ([]storage.Task, error) {
	return nil, errStoreDown
}

func TestLoadPropagatesStoreError(t *testing.T) {
	_, _, err := Load(context.Background(), &failingLoadStore{}, nil)
	require.ErrorIs(t, err, errStoreDown)
}

func TestProgressPercent(t *testing.T) {
	assert.Equal(t, 0, Progress{}.Percent())
	assert.Equal(t, 0.0, Progress{}.Ratio())
	assert.Equal(t, 33, Progress{Completed: 1, Total: 3}.Percent())
	assert.Equal(t, 66, Progress{Completed: 2, Total: 3}.Percent())
	assert.Equal(t, 100, Progress{Completed: 4, Total: 4}.Percent())
	assert.True(t, Progress{Completed: 4, Total: 4}.Complete())
	assert.False(t, Progress{}.Complete())
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("Done")
	require.NoError(t, err)
	assert.Equal(t, FilterDone, f)

	f, err = ParseFilter("")
	require.NoError(t, err)
	assert.Equal(t, FilterAll, f)

	_, err = ParseFilter("archived")
	require.ErrorIs(t, err, ErrInvalidFilter)
}

func TestNoticeFor(t *testing.T) {
	assert.Equal(t, noticeEmptyText, NoticeFor(ErrEmptyText))
	assert.Equal(t, LevelWarning, NoticeFor(ErrBusy).Level)
	assert.Equal(t, LevelDanger, NoticeFor(errStoreDown).Level)
}

func TestSecondAddWaitsForFirst(t *testing.T) {
	store := newCountingStore()
	b := loadBoard(t, store)

	first, err := b.PlanAdd("Buy milk", storage.PriorityHigh)
	require.NoError(t, err)
	assert.True(t, b.Pending())
	_, err = b.PlanAdd("Buy milk", storage.PriorityHigh)
	require.ErrorIs(t, err, ErrBusy)

	done, err := first.Commit(context.Background(), store)
	require.NoError(t, err)
	b.Apply(done, nil)
	assert.False(t, b.Pending())
	assert.Equal(t, 1, b.Len())
	assert.Equal(t, 1, store.saves)

	_, err = b.PlanAdd("Buy bread", storage.PriorityLow)
	require.NoError(t, err, "adding is released once the first add is applied")
}

func TestFailedAddReleasesAdding(t *testing.T) {
	store := newCountingStore()
	store.failAfter = 0
	b := loadBoard(t, store)

	_, err := b.Add(context.Background(), "Buy milk", storage.PriorityHigh)
	require.ErrorIs(t, err, errStoreDown)
	assert.False(t, b.Pending())
	assert.Zero(t, b.Len())
}

func TestEditSaveOnBusyTaskKeepsDraftOpen(t *testing.T) {
	store := newCountingStore(storage.Task{Text: "orig"})
	b := loadBoard(t, store)
	id, _ := b.IDAt(0)

	require.NoError(t, b.EditStart(id))
	toggle, err := b.PlanToggle(id)
	require.NoError(t, err)

	_, err = b.PlanEditSave(id, "orig new", storage.PriorityHigh)
	require.ErrorIs(t, err, ErrBusy)
	editing, ok := b.Editing()
	require.True(t, ok, "edit mode survives a rejected save")
	assert.Equal(t, id, editing)

	done, err := toggle.Commit(context.Background(), store)
	require.NoError(t, err)
	b.Apply(done, nil)

	_, err = b.EditSave(context.Background(), id, "orig new", storage.PriorityHigh)
	require.NoError(t, err)
	task, _ := b.Task(id)
	assert.Equal(t, "orig new", task.Text)
	assert.True(t, task.Done)
	_, ok = b.Editing()
	assert.False(t, ok)
}
