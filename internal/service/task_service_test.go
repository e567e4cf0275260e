package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"prayerflow/internal/repository"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (n *recordingNotifier) Publish(e Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) types() []EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]EventType, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

func newTestService(t *testing.T) (*TaskService, *recordingNotifier) {
	t.Helper()
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "tasks.db"), repository.Options{LogLevel: logger.Silent})
	require.NoError(t, err)
	store := repository.NewTaskStore(db)
	t.Cleanup(func() { _ = store.Close() })
	notifier := &recordingNotifier{}
	return NewTaskService(store, notifier), notifier
}

func TestCreateTaskDefaults(t *testing.T) {
	svc, notifier := newTestService(t)

	task, err := svc.CreateTask(context.Background(), TaskInput{Name: "  Write report  "})
	require.NoError(t, err)
	assert.Equal(t, "Write report", task.Name)
	assert.Equal(t, 1, task.EstimatedPomodoros)
	assert.Equal(t, "medium", task.Priority)
	assert.Equal(t, []EventType{EventCreated}, notifier.types())
}

func TestCreateTaskValidation(t *testing.T) {
	svc, notifier := newTestService(t)
	ctx := context.Background()

	cases := map[string]TaskInput{
		"blank name":        {Name: "   ", EstimatedPomodoros: 1},
		"negative estimate": {Name: "x", EstimatedPomodoros: -2},
		"unknown priority":  {Name: "x", EstimatedPomodoros: 1, Priority: "urgent"},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateTask(ctx, input)
			require.ErrorIs(t, err, ErrValidation)
		})
	}

	tasks, err := svc.ListTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.Empty(t, notifier.types())
}

func TestUpdateTask(t *testing.T) {
	svc, notifier := newTestService(t)
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, TaskInput{Name: "Draft", EstimatedPomodoros: 2, Priority: "low"})
	require.NoError(t, err)

	updated, err := svc.UpdateTask(ctx, task.ID, TaskUpdate{
		Name: "Final", EstimatedPomodoros: 3, CompletedPomodoros: 3, IsComplete: true, Priority: "HIGH",
	})
	require.NoError(t, err)
	assert.Equal(t, "Final", updated.Name)
	assert.Equal(t, "high", updated.Priority)
	assert.True(t, updated.IsComplete)
	assert.Equal(t, []EventType{EventCreated, EventUpdated}, notifier.types())

	_, err = svc.UpdateTask(ctx, 999, TaskUpdate{Name: "x", EstimatedPomodoros: 1, Priority: "low"})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.UpdateTask(ctx, task.ID, TaskUpdate{Name: "x", EstimatedPomodoros: 1, CompletedPomodoros: -1, Priority: "low"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestSetCompleteAndReopen(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, TaskInput{Name: "Read", EstimatedPomodoros: 4, Priority: "high"})
	require.NoError(t, err)

	done, err := svc.SetComplete(ctx, task.ID, true)
	require.NoError(t, err)
	assert.True(t, done.IsComplete)
	assert.Equal(t, 4, done.EstimatedPomodoros)

	reopened, err := svc.SetComplete(ctx, task.ID, false)
	require.NoError(t, err)
	assert.False(t, reopened.IsComplete)

	_, err = svc.SetComplete(ctx, 12345, true)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSetCompleteKeepsConcurrentPomodoros(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, TaskInput{Name: "Deep work", EstimatedPomodoros: 8})
	require.NoError(t, err)

	const rounds = 50
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			_, err := svc.CompletePomodoro(ctx, task.ID)
			assert.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			_, err := svc.SetComplete(ctx, task.ID, i%2 == 0)
			assert.NoError(t, err)
		}
	}()
	wg.Wait()

	got, err := svc.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, rounds, got.CompletedPomodoros)
	assert.Equal(t, 8, got.EstimatedPomodoros)
	assert.Equal(t, "medium", got.Priority)
}

func TestSetNotesAndPomodoro(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, TaskInput{Name: "Study", EstimatedPomodoros: 2})
	require.NoError(t, err)

	withNotes, err := svc.SetNotes(ctx, task.ID, " chapter 3 ")
	require.NoError(t, err)
	require.NotNil(t, withNotes.Notes)
	assert.Equal(t, "chapter 3", *withNotes.Notes)

	cleared, err := svc.SetNotes(ctx, task.ID, "  ")
	require.NoError(t, err)
	assert.Nil(t, cleared.Notes)

	bumped, err := svc.CompletePomodoro(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, bumped.CompletedPomodoros)

	_, err = svc.CompletePomodoro(ctx, 77)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.SetNotes(ctx, 77, "x")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteTask(t *testing.T) {
	svc, notifier := newTestService(t)
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, TaskInput{Name: "Temp"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTask(ctx, task.ID))
	require.ErrorIs(t, svc.DeleteTask(ctx, task.ID), ErrNotFound)
	_, err = svc.GetTask(ctx, task.ID)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, []EventType{EventCreated, EventDeleted}, notifier.types())
}

func TestSummary(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	low, err := svc.CreateTask(ctx, TaskInput{Name: "low", EstimatedPomodoros: 1, Priority: "low"})
	require.NoError(t, err)
	high, err := svc.CreateTask(ctx, TaskInput{Name: "high", EstimatedPomodoros: 2, Priority: "high"})
	require.NoError(t, err)
	done, err := svc.CreateTask(ctx, TaskInput{Name: "done", EstimatedPomodoros: 3, Priority: "medium"})
	require.NoError(t, err)
	_, err = svc.UpdateTask(ctx, done.ID, TaskUpdate{Name: "done", EstimatedPomodoros: 3, CompletedPomodoros: 3, IsComplete: true, Priority: "medium"})
	require.NoError(t, err)

	sum, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, 1, sum.Completed)
	assert.Equal(t, 2, sum.Open)
	assert.Equal(t, 6, sum.EstimatedPomodoros)
	assert.Equal(t, 3, sum.CompletedPomodoros)
	require.Len(t, sum.OpenTasks, 2)
	assert.Equal(t, high.ID, sum.OpenTasks[0].ID)
	assert.Equal(t, low.ID, sum.OpenTasks[1].ID)

	text := FormatSummary(sum, time.Date(2025, 10, 30, 8, 0, 0, 0, time.UTC))
	assert.Contains(t, text, "2025-10-30")
	assert.Contains(t, text, "1 of 3 tasks done")
	assert.Contains(t, text, "3 of 6 pomodoros")
	assert.Contains(t, text, "high")
	assert.NotContains(t, text, "#3</code>")
}

func TestDailySummaryEscapesNames(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateTask(ctx, TaskInput{Name: "<b>bold</b> & co"})
	require.NoError(t, err)

	text, err := NewReminderService(svc).DailySummary(ctx, time.Now())
	require.NoError(t, err)
	assert.Contains(t, text, "&lt;b&gt;bold&lt;/b&gt; &amp; co")
}

func TestPingAndSchema(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.Ping(ctx))
	info, err := svc.SchemaInfo(ctx)
	require.NoError(t, err)
	assert.Contains(t, info.Tables, "tasks")
}
