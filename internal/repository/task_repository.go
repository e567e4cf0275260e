package repository

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"prayerflow/internal/model"
)

// TaskUpdate carries every mutable task field. Update overwrites all of them.
type TaskUpdate struct {
	Name               string
	EstimatedPomodoros int
	CompletedPomodoros int
	IsComplete         bool
	Priority           string
}

// ColumnInfo is one row of PRAGMA table_info.
type ColumnInfo struct {
	CID          int     `gorm:"column:cid" json:"cid"`
	Name         string  `gorm:"column:name" json:"name"`
	Type         string  `gorm:"column:type" json:"type"`
	NotNull      bool    `gorm:"column:notnull" json:"notnull"`
	DefaultValue *string `gorm:"column:dflt_value" json:"dflt_value"`
	PK           int     `gorm:"column:pk" json:"pk"`
}

// SchemaInfo describes the database for diagnostics.
type SchemaInfo struct {
	SQLiteVersion string       `json:"sqlite_version"`
	Tables        []string     `json:"tables"`
	TaskColumns   []ColumnInfo `json:"tasks_table_structure"`
}

// TaskStore owns the single database connection. Every operation holds mu for
// the whole statement, so at most one statement is in flight at a time.
//
// Operations ignore cancellation of the caller's context: once the lock is
// taken, the statement runs to completion.
type TaskStore struct {
	mu sync.Mutex
	db *gorm.DB
}

func NewTaskStore(db *gorm.DB) *TaskStore {
	return &TaskStore{db: db}
}

// session returns a handle bound to ctx values but not to its cancellation.
func (s *TaskStore) session(ctx context.Context) *gorm.DB {
	return s.db.WithContext(context.WithoutCancel(ctx))
}

// List returns every task, newest first.
func (s *TaskStore) List(ctx context.Context) ([]model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := make([]model.Task, 0)
	if err := s.session(ctx).Order("created_at DESC").Order("id DESC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// Get loads a single task. A missing id yields gorm.ErrRecordNotFound.
func (s *TaskStore) Get(ctx context.Context, id uint) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var task model.Task
	if err := s.session(ctx).First(&task, id).Error; err != nil {
		return nil, fmt.Errorf("get task %d: %w", id, err)
	}
	return &task, nil
}

// Create inserts a fresh task with no progress and no notes.
func (s *TaskStore) Create(ctx context.Context, name string, estimatedPomodoros int, priority string) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.db.NowFunc()
	task := model.Task{
		Name:               name,
		EstimatedPomodoros: estimatedPomodoros,
		CompletedPomodoros: 0,
		IsComplete:         false,
		Priority:           priority,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	// Select forces zero values into the INSERT instead of column defaults.
	err := s.session(ctx).
		Select("Name", "EstimatedPomodoros", "CompletedPomodoros", "IsComplete", "Priority", "CreatedAt", "UpdatedAt").
		Create(&task).Error
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return &task, nil
}

// Update replaces all mutable fields of task id and refreshes updated_at.
// Notes are left untouched. It reports the number of rows changed, which is
// zero when id does not exist.
func (s *TaskStore) Update(ctx context.Context, id uint, u TaskUpdate) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.session(ctx).Model(&model.Task{}).Where("id = ?", id).Updates(map[string]any{
		"name":                u.Name,
		"estimated_pomodoros": u.EstimatedPomodoros,
		"completed_pomodoros": u.CompletedPomodoros,
		"is_complete":         u.IsComplete,
		"priority":            u.Priority,
		"updated_at":          s.db.NowFunc(),
	})
	if res.Error != nil {
		return 0, fmt.Errorf("update task %d: %w", id, res.Error)
	}
	return res.RowsAffected, nil
}

// SetNotes replaces the notes of task id. A nil value clears them.
func (s *TaskStore) SetNotes(ctx context.Context, id uint, notes *string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.session(ctx).Model(&model.Task{}).Where("id = ?", id).Updates(map[string]any{
		"notes":      notes,
		"updated_at": s.db.NowFunc(),
	})
	if res.Error != nil {
		return 0, fmt.Errorf("set notes of task %d: %w", id, res.Error)
	}
	return res.RowsAffected, nil
}

// AddPomodoro bumps completed_pomodoros of task id by one.
func (s *TaskStore) AddPomodoro(ctx context.Context, id uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.session(ctx).Model(&model.Task{}).Where("id = ?", id).Updates(map[string]any{
		"completed_pomodoros": gorm.Expr("completed_pomodoros + ?", 1),
		"updated_at":          s.db.NowFunc(),
	})
	if res.Error != nil {
		return 0, fmt.Errorf("add pomodoro to task %d: %w", id, res.Error)
	}
	return res.RowsAffected, nil
}

// SetComplete flips is_complete of task id and leaves every other field as
// stored.
func (s *TaskStore) SetComplete(ctx context.Context, id uint, complete bool) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.session(ctx).Model(&model.Task{}).Where("id = ?", id).Updates(map[string]any{
		"is_complete": complete,
		"updated_at":  s.db.NowFunc(),
	})
	if res.Error != nil {
		return 0, fmt.Errorf("set completion of task %d: %w", id, res.Error)
	}
	return res.RowsAffected, nil
}

// Delete removes task id for good. Deleting a missing id affects zero rows.
func (s *TaskStore) Delete(ctx context.Context, id uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.session(ctx).Delete(&model.Task{}, id)
	if res.Error != nil {
		return 0, fmt.Errorf("delete task %d: %w", id, res.Error)
	}
	return res.RowsAffected, nil
}

// Ping checks that the connection is still usable.
func (s *TaskStore) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// SchemaInfo reports the SQLite version, tables and the tasks table layout.
func (s *TaskStore) SchemaInfo(ctx context.Context) (*SchemaInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db := s.session(ctx)
	info := SchemaInfo{Tables: []string{}, TaskColumns: []ColumnInfo{}}
	if err := db.Raw("SELECT sqlite_version()").Scan(&info.SQLiteVersion).Error; err != nil {
		return nil, fmt.Errorf("sqlite version: %w", err)
	}
	if err := db.Raw("SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name").Scan(&info.Tables).Error; err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	if err := db.Raw("PRAGMA table_info(tasks)").Scan(&info.TaskColumns).Error; err != nil {
		return nil, fmt.Errorf("table info: %w", err)
	}
	return &info, nil
}

// Close releases the underlying connection.
func (s *TaskStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
