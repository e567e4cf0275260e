package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"gorm.io/gorm"

	"prayerflow/internal/model"
	"prayerflow/internal/repository"
)

// TaskInput represents data required to create a task.
type TaskInput struct {
	Name               string
	EstimatedPomodoros int
	Priority           string
}

// TaskUpdate is a full replacement of a task's mutable fields.
type TaskUpdate struct {
	Name               string
	EstimatedPomodoros int
	CompletedPomodoros int
	IsComplete         bool
	Priority           string
}

// EventType names a change published to a Notifier.
type EventType string

const (
	EventCreated EventType = "task_created"
	EventUpdated EventType = "task_updated"
	EventDeleted EventType = "task_deleted"
)

// Event describes a committed change. Task is nil for deletions.
type Event struct {
	Type   EventType   `json:"event"`
	TaskID uint        `json:"task_id"`
	Task   *model.Task `json:"task,omitempty"`
}

// Notifier receives events after each successful mutation.
type Notifier interface {
	Publish(Event)
}

// Summary aggregates progress over all tasks.
type Summary struct {
	Total              int          `json:"total"`
	Completed          int          `json:"completed"`
	Open               int          `json:"open"`
	EstimatedPomodoros int          `json:"estimated_pomodoros"`
	CompletedPomodoros int          `json:"completed_pomodoros"`
	OpenTasks          []model.Task `json:"open_tasks"`
}

// TaskService validates input and maps store results onto error kinds.
type TaskService struct {
	store    *repository.TaskStore
	notifier Notifier
}

func NewTaskService(store *repository.TaskStore, notifier Notifier) *TaskService {
	return &TaskService{store: store, notifier: notifier}
}

func (s *TaskService) ListTasks(ctx context.Context) ([]model.Task, error) {
	tasks, err := s.store.List(ctx)
	if err != nil {
		return nil, storage(err)
	}
	return tasks, nil
}

func (s *TaskService) GetTask(ctx context.Context, id uint) (*model.Task, error) {
	task, err := s.store.Get(ctx, id)
	switch {
	case err == nil:
		return task, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, notFound(id)
	default:
		return nil, storage(err)
	}
}

// CreateTask trims the name and fills in the default estimate and priority.
func (s *TaskService) CreateTask(ctx context.Context, input TaskInput) (*model.Task, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, invalid("task name is required")
	}
	estimate := input.EstimatedPomodoros
	if estimate == 0 {
		estimate = 1
	}
	if estimate < 1 {
		return nil, invalid("estimated pomodoros must be at least 1, got %d", estimate)
	}
	priority := strings.ToLower(strings.TrimSpace(input.Priority))
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !model.ValidPriority(priority) {
		return nil, invalid("unknown priority %q", input.Priority)
	}

	task, err := s.store.Create(ctx, name, estimate, priority)
	if err != nil {
		return nil, storage(err)
	}
	s.publish(EventCreated, task.ID, task)
	return task, nil
}

// UpdateTask overwrites every mutable field of task id.
func (s *TaskService) UpdateTask(ctx context.Context, id uint, u TaskUpdate) (*model.Task, error) {
	name := strings.TrimSpace(u.Name)
	if name == "" {
		return nil, invalid("task name is required")
	}
	if u.EstimatedPomodoros < 1 {
		return nil, invalid("estimated pomodoros must be at least 1, got %d", u.EstimatedPomodoros)
	}
	if u.CompletedPomodoros < 0 {
		return nil, invalid("completed pomodoros cannot be negative, got %d", u.CompletedPomodoros)
	}
	priority := strings.ToLower(strings.TrimSpace(u.Priority))
	if !model.ValidPriority(priority) {
		return nil, invalid("unknown priority %q", u.Priority)
	}

	n, err := s.store.Update(ctx, id, repository.TaskUpdate{
		Name:               name,
		EstimatedPomodoros: u.EstimatedPomodoros,
		CompletedPomodoros: u.CompletedPomodoros,
		IsComplete:         u.IsComplete,
		Priority:           priority,
	})
	if err != nil {
		return nil, storage(err)
	}
	if n == 0 {
		return nil, notFound(id)
	}
	return s.reload(ctx, id)
}

// SetComplete flips the completion flag and leaves the other fields as stored.
func (s *TaskService) SetComplete(ctx context.Context, id uint, complete bool) (*model.Task, error) {
	n, err := s.store.SetComplete(ctx, id, complete)
	if err != nil {
		return nil, storage(err)
	}
	if n == 0 {
		return nil, notFound(id)
	}
	return s.reload(ctx, id)
}

// SetNotes replaces the notes of task id. Blank notes clear the field.
func (s *TaskService) SetNotes(ctx context.Context, id uint, notes string) (*model.Task, error) {
	var value *string
	if trimmed := strings.TrimSpace(notes); trimmed != "" {
		value = &trimmed
	}
	n, err := s.store.SetNotes(ctx, id, value)
	if err != nil {
		return nil, storage(err)
	}
	if n == 0 {
		return nil, notFound(id)
	}
	return s.reload(ctx, id)
}

// CompletePomodoro records one finished focus session on task id.
func (s *TaskService) CompletePomodoro(ctx context.Context, id uint) (*model.Task, error) {
	n, err := s.store.AddPomodoro(ctx, id)
	if err != nil {
		return nil, storage(err)
	}
	if n == 0 {
		return nil, notFound(id)
	}
	return s.reload(ctx, id)
}

// DeleteTask removes task id. Deleting a missing task reports ErrNotFound.
func (s *TaskService) DeleteTask(ctx context.Context, id uint) error {
	n, err := s.store.Delete(ctx, id)
	if err != nil {
		return storage(err)
	}
	if n == 0 {
		return notFound(id)
	}
	s.publish(EventDeleted, id, nil)
	return nil
}

// Summary counts tasks and pomodoros. Open tasks come most urgent first,
// oldest first within the same priority.
func (s *TaskService) Summary(ctx context.Context) (*Summary, error) {
	tasks, err := s.ListTasks(ctx)
	if err != nil {
		return nil, err
	}

	sum := Summary{Total: len(tasks), OpenTasks: []model.Task{}}
	for _, task := range tasks {
		sum.EstimatedPomodoros += task.EstimatedPomodoros
		sum.CompletedPomodoros += task.CompletedPomodoros
		if task.IsComplete {
			sum.Completed++
			continue
		}
		sum.OpenTasks = append(sum.OpenTasks, task)
	}
	sum.Open = len(sum.OpenTasks)

	sort.SliceStable(sum.OpenTasks, func(i, j int) bool {
		ri, rj := model.PriorityRank(sum.OpenTasks[i].Priority), model.PriorityRank(sum.OpenTasks[j].Priority)
		if ri != rj {
			return ri < rj
		}
		return sum.OpenTasks[i].CreatedAt.Before(sum.OpenTasks[j].CreatedAt)
	})
	return &sum, nil
}

// Ping reports whether storage is reachable.
func (s *TaskService) Ping(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return storage(err)
	}
	return nil
}

func (s *TaskService) SchemaInfo(ctx context.Context) (*repository.SchemaInfo, error) {
	info, err := s.store.SchemaInfo(ctx)
	if err != nil {
		return nil, storage(err)
	}
	return info, nil
}

func (s *TaskService) reload(ctx context.Context, id uint) (*model.Task, error) {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(EventUpdated, id, task)
	return task, nil
}

func (s *TaskService) publish(typ EventType, id uint, task *model.Task) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(Event{Type: typ, TaskID: id, Task: task})
}
