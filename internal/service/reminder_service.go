package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"prayerflow/internal/model"
)

// ReminderService builds human-readable summaries for chat notifications.
type ReminderService struct {
	tasks *TaskService
}

func NewReminderService(tasks *TaskService) *ReminderService {
	return &ReminderService{tasks: tasks}
}

// DailySummary renders the current progress as Telegram HTML.
func (s *ReminderService) DailySummary(ctx context.Context, now time.Time) (string, error) {
	sum, err := s.tasks.Summary(ctx)
	if err != nil {
		return "", err
	}
	return FormatSummary(sum, now), nil
}

// FormatSummary renders sum as Telegram HTML.
func FormatSummary(sum *Summary, now time.Time) string {
	var builder strings.Builder
	builder.WriteString("📋 <b>Daily report</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("2006-01-02")))

	builder.WriteString(fmt.Sprintf("✅ %d of %d tasks done\n", sum.Completed, sum.Total))
	builder.WriteString(fmt.Sprintf("🍅 %d of %d pomodoros\n\n", sum.CompletedPomodoros, sum.EstimatedPomodoros))

	builder.WriteString("🔥 <b>Open tasks</b>\n")
	if len(sum.OpenTasks) == 0 {
		builder.WriteString("Nothing left, well done\n")
	} else {
		for _, task := range sum.OpenTasks {
			builder.WriteString(FormatTask(task))
		}
	}

	return strings.TrimSpace(builder.String())
}

// FormatTask renders one task line with its id, progress and notes.
func FormatTask(task model.Task) string {
	var sb strings.Builder

	icon := priorityIcon(task.Priority)
	if task.IsComplete {
		icon = "✅"
	}
	sb.WriteString(fmt.Sprintf("%s <code>#%d</code> %s", icon, task.ID, html.EscapeString(strings.TrimSpace(task.Name))))
	sb.WriteString(fmt.Sprintf(" · 🍅 %d/%d", task.CompletedPomodoros, task.EstimatedPomodoros))

	if task.Notes != nil && strings.TrimSpace(*task.Notes) != "" {
		sb.WriteString(fmt.Sprintf("\n   📝 %s", html.EscapeString(strings.TrimSpace(*task.Notes))))
	}

	sb.WriteByte('\n')
	return sb.String()
}

func priorityIcon(p string) string {
	switch p {
	case model.PriorityHigh:
		return "🔴"
	case model.PriorityLow:
		return "🟢"
	default:
		return "🟡"
	}
}
