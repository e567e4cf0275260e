package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// tickingClock advances by one second on every call.
type tickingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func openStore(t *testing.T, path string) *TaskStore {
	t.Helper()
	clock := &tickingClock{now: time.Date(2025, 10, 30, 9, 0, 0, 0, time.UTC)}
	db, err := NewDB(path, Options{NowFunc: clock.Now, LogLevel: logger.Silent})
	require.NoError(t, err)
	store := NewTaskStore(db)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func setupStore(t *testing.T) *TaskStore {
	t.Helper()
	return openStore(t, filepath.Join(t.TempDir(), "tasks.db"))
}

func TestCreateAndList(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	created, err := store.Create(ctx, "Write report", 3, "high")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, created.ID, uint(1))

	tasks, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	got := tasks[0]
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Write report", got.Name)
	assert.Equal(t, 3, got.EstimatedPomodoros)
	assert.Equal(t, "high", got.Priority)
	assert.Equal(t, 0, got.CompletedPomodoros)
	assert.False(t, got.IsComplete)
	assert.Nil(t, got.Notes)
	assert.True(t, got.CreatedAt.Equal(got.UpdatedAt))
}

func TestListEmpty(t *testing.T) {
	tasks, err := setupStore(t).List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)
}

func TestListNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	for _, name := range []string{"A", "B", "C"} {
		_, err := store.Create(ctx, name, 1, "medium")
		require.NoError(t, err)
	}

	tasks, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, []string{"C", "B", "A"}, []string{tasks[0].Name, tasks[1].Name, tasks[2].Name})
}

func TestCreateKeepsValuesAsGiven(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	created, err := store.Create(ctx, "", 0, "urgent")
	require.NoError(t, err)

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "", got.Name)
	assert.Equal(t, 0, got.EstimatedPomodoros)
	assert.Equal(t, "urgent", got.Priority)
}

func TestUpdateOverwritesFields(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	created, err := store.Create(ctx, "Draft", 2, "low")
	require.NoError(t, err)

	n, err := store.Update(ctx, created.ID, TaskUpdate{
		Name:               "Final",
		EstimatedPomodoros: 5,
		CompletedPomodoros: 4,
		IsComplete:         true,
		Priority:           "high",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	tasks, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	got := tasks[0]
	assert.Equal(t, "Final", got.Name)
	assert.Equal(t, 5, got.EstimatedPomodoros)
	assert.Equal(t, 4, got.CompletedPomodoros)
	assert.True(t, got.IsComplete)
	assert.Equal(t, "high", got.Priority)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt), "updated_at %v should be after created_at %v", got.UpdatedAt, got.CreatedAt)
	assert.True(t, got.CreatedAt.Equal(created.CreatedAt))
}

func TestUpdateCanReopenTask(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	created, err := store.Create(ctx, "Read", 1, "medium")
	require.NoError(t, err)

	_, err = store.Update(ctx, created.ID, TaskUpdate{Name: "Read", EstimatedPomodoros: 1, IsComplete: true, Priority: "medium"})
	require.NoError(t, err)
	_, err = store.Update(ctx, created.ID, TaskUpdate{Name: "Read", EstimatedPomodoros: 1, IsComplete: false, Priority: "medium"})
	require.NoError(t, err)

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, got.IsComplete)
}

func TestUpdateMissingID(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	_, err := store.Create(ctx, "Only", 1, "medium")
	require.NoError(t, err)
	before, err := store.List(ctx)
	require.NoError(t, err)

	n, err := store.Update(ctx, 9999, TaskUpdate{Name: "Ghost", EstimatedPomodoros: 1, Priority: "low"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	after, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestUpdateLeavesNotes(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	created, err := store.Create(ctx, "Plan", 1, "medium")
	require.NoError(t, err)
	notes := "outline first"
	n, err := store.SetNotes(ctx, created.ID, &notes)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = store.Update(ctx, created.ID, TaskUpdate{Name: "Plan v2", EstimatedPomodoros: 2, Priority: "high"})
	require.NoError(t, err)

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Notes)
	assert.Equal(t, "outline first", *got.Notes)

	_, err = store.SetNotes(ctx, created.ID, nil)
	require.NoError(t, err)
	got, err = store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Notes)
}

func TestSetCompleteKeepsOtherFields(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	created, err := store.Create(ctx, "Legacy", 0, "urgent")
	require.NoError(t, err)
	_, err = store.AddPomodoro(ctx, created.ID)
	require.NoError(t, err)

	n, err := store.SetComplete(ctx, created.ID, true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, got.IsComplete)
	assert.Equal(t, "urgent", got.Priority)
	assert.Equal(t, 0, got.EstimatedPomodoros)
	assert.Equal(t, 1, got.CompletedPomodoros)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))

	n, err = store.SetComplete(ctx, 9999, true)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAddPomodoro(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	created, err := store.Create(ctx, "Focus", 4, "medium")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		n, err := store.AddPomodoro(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	}

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.CompletedPomodoros)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))

	n, err := store.AddPomodoro(ctx, 404)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	created, err := store.Create(ctx, "Temp", 1, "low")
	require.NoError(t, err)

	n, err := store.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	tasks, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	n, err = store.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestGetMissing(t *testing.T) {
	_, err := setupStore(t).Get(context.Background(), 42)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestConcurrentCreates(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	const n = 25
	var wg sync.WaitGroup
	ids := make(chan uint, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			task, err := store.Create(ctx, fmt.Sprintf("task-%d", i), 1, "medium")
			if err != nil {
				errs <- err
				return
			}
			ids <- task.ID
		}(i)
	}
	wg.Wait()
	close(ids)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	seen := make(map[uint]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)

	tasks, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, n)
}

func TestReopenKeepsRowsAndSchema(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "tasks.db")

	first := openStore(t, path)
	created, err := first.Create(ctx, "Persist me", 2, "high")
	require.NoError(t, err)
	before, err := first.SchemaInfo(ctx)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second := openStore(t, path)
	tasks, err := second.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, created.ID, tasks[0].ID)
	assert.Equal(t, "Persist me", tasks[0].Name)

	after, err := second.SchemaInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.Tables, after.Tables)
	assert.Equal(t, before.TaskColumns, after.TaskColumns)

	next, err := second.Create(ctx, "After reopen", 1, "low")
	require.NoError(t, err)
	assert.Greater(t, next.ID, created.ID)
}

func TestSchemaInfo(t *testing.T) {
	info, err := setupStore(t).SchemaInfo(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, info.SQLiteVersion)
	assert.Contains(t, info.Tables, "tasks")

	var cols []string
	for _, c := range info.TaskColumns {
		cols = append(cols, c.Name)
	}
	assert.ElementsMatch(t, []string{
		"id", "name", "estimated_pomodoros", "completed_pomodoros", "is_complete",
		"priority", "notes", "created_at", "updated_at",
	}, cols)
}

func TestPing(t *testing.T) {
	require.NoError(t, setupStore(t).Ping(context.Background()))
}

func TestListNewestFirstAcrossOffsetChange(t *testing.T) {
	summer := time.FixedZone("CEST", 2*60*60)
	winter := time.FixedZone("CET", 1*60*60)
	// Clocks go back at 03:00 CEST; the second task is created 20 minutes
	// after the first even though its wall clock reads earlier.
	stamps := []time.Time{
		time.Date(2026, 10, 25, 2, 50, 0, 0, summer),
		time.Date(2026, 10, 25, 2, 10, 0, 0, winter),
	}
	var mu sync.Mutex
	next := 0
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		ts := stamps[next%len(stamps)]
		next++
		return ts
	}

	db, err := NewDB(filepath.Join(t.TempDir(), "tasks.db"), Options{NowFunc: clock, LogLevel: logger.Silent})
	require.NoError(t, err)
	store := NewTaskStore(db)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	first, err := store.Create(ctx, "before the change", 1, "medium")
	require.NoError(t, err)
	second, err := store.Create(ctx, "after the change", 1, "medium")
	require.NoError(t, err)

	tasks, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, second.ID, tasks[0].ID)
	assert.Equal(t, first.ID, tasks[1].ID)
	assert.True(t, tasks[0].CreatedAt.Equal(stamps[1]))
}
