package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"prayerflow/internal/logger"
	"prayerflow/internal/model"
	"prayerflow/internal/prayer"
	"prayerflow/internal/service"
)

const (
	cbDonePrefix = "done:"
	cbPomoPrefix = "pomo:"
)

const helpText = "ℹ️ <b>Commands</b>\n" +
	"• /tasks: list tasks\n" +
	"• /new name | pomodoros | priority: add a task, e.g. <code>/new Write report | 3 | high</code>\n" +
	"• /pomo &lt;id&gt;: record a finished pomodoro\n" +
	"• /done &lt;id&gt;: mark a task complete\n" +
	"• /reopen &lt;id&gt;: mark a task open again\n" +
	"• /notes &lt;id&gt; text: replace the notes of a task\n" +
	"• /delete &lt;id&gt;: delete a task\n" +
	"• /report: progress summary\n" +
	"• /prayers: today's prayer times"

// Bot is a chat front-end over TaskService. It only talks to one chat.
type Bot struct {
	api       *tgbotapi.BotAPI
	tasks     *service.TaskService
	reminders *service.ReminderService
	prayers   *service.PrayerService
	chatID    int64
	now       func() time.Time
}

// New connects to Telegram. prayers may be nil when no location is configured.
func New(token string, chatID int64, tasks *service.TaskService, reminders *service.ReminderService, prayers *service.PrayerService) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	logger.Info("bot authorized", "account", api.Self.UserName)

	b := newBot(tasks, reminders, prayers, chatID)
	b.api = api
	return b, nil
}

func newBot(tasks *service.TaskService, reminders *service.ReminderService, prayers *service.PrayerService, chatID int64) *Bot {
	return &Bot{tasks: tasks, reminders: reminders, prayers: prayers, chatID: chatID, now: time.Now}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	logger.Info("bot polling updates", "chat_id", b.chatID)

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				logger.Warn("handle callback", "err", err)
			}
		case update.Message != nil:
			if err := b.handleMessage(ctx, update.Message); err != nil {
				logger.Warn("handle message", "err", err)
			}
		}
	}

	return ctx.Err()
}

// SendDailyReport pushes the progress summary to the configured chat.
func (b *Bot) SendDailyReport(ctx context.Context) error {
	text, err := b.reminders.DailySummary(ctx, b.now())
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}
	return b.sendText(b.chatID, text, nil)
}

// SendPrayerAlert tells the configured chat that a prayer has begun.
func (b *Bot) SendPrayerAlert(_ context.Context, pt prayer.Time) error {
	return b.sendText(b.chatID, service.FormatPrayerAlert(pt), nil)
}

func (b *Bot) allowed(chatID int64) bool {
	return chatID == b.chatID
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.Chat == nil || !b.allowed(msg.Chat.ID) {
		return nil
	}
	if !msg.IsCommand() {
		return b.sendText(msg.Chat.ID, "Send /help for the list of commands.", nil)
	}

	logger.Debug("bot command", "command", msg.Command(), "args", msg.CommandArguments())
	text, markup, err := b.reply(ctx, msg.Command(), strings.TrimSpace(msg.CommandArguments()))
	if err != nil {
		return err
	}
	return b.sendText(msg.Chat.ID, text, markup)
}

// reply runs one command and renders the answer. Errors the user can act on
// are rendered as text; only unexpected failures are returned.
func (b *Bot) reply(ctx context.Context, command, args string) (string, *tgbotapi.InlineKeyboardMarkup, error) {
	switch command {
	case "start", "help":
		return helpText, nil, nil
	case "tasks":
		return b.taskList(ctx)
	case "report":
		text, err := b.reminders.DailySummary(ctx, b.now())
		if err != nil {
			return userError("Could not build the report", err), nil, nil
		}
		return text, nil, nil
	case "prayers":
		return b.prayerTimes(ctx), nil, nil
	case "new":
		input, err := parseNewTask(args)
		if err != nil {
			return escape(err.Error()), nil, nil
		}
		task, err := b.tasks.CreateTask(ctx, input)
		if err != nil {
			return userError("Could not save the task", err), nil, nil
		}
		return "✅ <b>Task saved</b>\n" + service.FormatTask(*task), nil, nil
	case "pomo", "done", "reopen", "delete", "notes":
		return b.taskCommand(ctx, command, args), nil, nil
	default:
		return "Unknown command. See /help.", nil, nil
	}
}

func (b *Bot) taskCommand(ctx context.Context, command, args string) string {
	idPart, rest, _ := strings.Cut(args, " ")
	if idPart == "" {
		return fmt.Sprintf("Give the task id: /%s 12", command)
	}
	id64, err := strconv.ParseUint(idPart, 10, 64)
	if err != nil || id64 == 0 {
		return "The task id must be a positive number."
	}
	id := uint(id64)

	var task *model.Task
	switch command {
	case "pomo":
		task, err = b.tasks.CompletePomodoro(ctx, id)
	case "done":
		task, err = b.tasks.SetComplete(ctx, id, true)
	case "reopen":
		task, err = b.tasks.SetComplete(ctx, id, false)
	case "notes":
		task, err = b.tasks.SetNotes(ctx, id, rest)
	case "delete":
		if err = b.tasks.DeleteTask(ctx, id); err == nil {
			return fmt.Sprintf("🗑 Task #%d deleted.", id)
		}
	}
	if err != nil {
		return userError("Could not update the task", err)
	}
	return service.FormatTask(*task)
}

func (b *Bot) prayerTimes(ctx context.Context) string {
	if b.prayers == nil {
		return "Prayer times are not configured. Set PRAYER_LATITUDE and PRAYER_LONGITUDE."
	}
	now := b.now()
	day, err := b.prayers.Day(ctx, now)
	if err != nil {
		logger.Warn("prayer times", "err", err)
		return "Could not load prayer times, try again later."
	}
	next, err := b.prayers.Next(ctx, now)
	if err != nil {
		logger.Warn("next prayer", "err", err)
		next = nil
	}
	return service.FormatPrayerDay(day, next)
}

func (b *Bot) taskList(ctx context.Context) (string, *tgbotapi.InlineKeyboardMarkup, error) {
	tasks, err := b.tasks.ListTasks(ctx)
	if err != nil {
		return userError("Could not load tasks", err), nil, nil
	}
	if len(tasks) == 0 {
		return "No tasks yet. Add one with /new.", nil, nil
	}

	var sb strings.Builder
	sb.WriteString("📋 <b>Tasks</b>\n")
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, task := range tasks {
		sb.WriteString(service.FormatTask(task))
		if task.IsComplete {
			continue
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🍅 #%d", task.ID), fmt.Sprintf("%s%d", cbPomoPrefix, task.ID)),
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✅ #%d", task.ID), fmt.Sprintf("%s%d", cbDonePrefix, task.ID)),
		))
	}
	if len(rows) == 0 {
		return strings.TrimSpace(sb.String()), nil, nil
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return strings.TrimSpace(sb.String()), &markup, nil
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb.Message == nil || cb.Message.Chat == nil || !b.allowed(cb.Message.Chat.ID) {
		return nil
	}

	text := b.callbackReply(ctx, cb.Data)
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		logger.Warn("answer callback", "err", err)
	}
	return b.sendText(cb.Message.Chat.ID, text, nil)
}

func (b *Bot) callbackReply(ctx context.Context, data string) string {
	switch {
	case strings.HasPrefix(data, cbPomoPrefix):
		id, err := parseTaskID(data, cbPomoPrefix)
		if err != nil {
			return "Unknown button."
		}
		return b.taskCommand(ctx, "pomo", strconv.FormatUint(uint64(id), 10))
	case strings.HasPrefix(data, cbDonePrefix):
		id, err := parseTaskID(data, cbDonePrefix)
		if err != nil {
			return "Unknown button."
		}
		return b.taskCommand(ctx, "done", strconv.FormatUint(uint64(id), 10))
	default:
		return "Unknown button."
	}
}

func (b *Bot) sendText(chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if markup != nil {
		msg.ReplyMarkup = *markup
	}
	_, err := b.api.Send(msg)
	return err
}

// parseNewTask reads "name | pomodoros | priority"; only the name is required.
func parseNewTask(args string) (service.TaskInput, error) {
	parts := strings.Split(args, "|")
	input := service.TaskInput{Name: strings.TrimSpace(parts[0])}
	if input.Name == "" {
		return input, errors.New("usage: /new name | pomodoros | priority")
	}
	if len(parts) > 1 {
		if raw := strings.TrimSpace(parts[1]); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				return input, fmt.Errorf("pomodoros must be a positive number, got %q", raw)
			}
			input.EstimatedPomodoros = n
		}
	}
	if len(parts) > 2 {
		input.Priority = strings.TrimSpace(parts[2])
	}
	if len(parts) > 3 {
		return input, errors.New("too many fields, usage: /new name | pomodoros | priority")
	}
	return input, nil
}

func parseTaskID(data, prefix string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimPrefix(data, prefix), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

func userError(prefix string, err error) string {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return "Task not found."
	case errors.Is(err, service.ErrValidation):
		return fmt.Sprintf("%s: %s", prefix, escape(err.Error()))
	default:
		logger.Error(prefix, "err", err)
		return prefix + ", try again later."
	}
}

func escape(s string) string {
	return html.EscapeString(s)
}
