package core

import (
	"context"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/moomina/companion-go/pkg/mood"
	"github.com/moomina/companion-go/pkg/storage"
)

// Check-in texts sent by the default tasks.
const (
	MorningCheckIn = "Good morning! ☀️ How did you sleep, jaan?"
	EveningCheckIn = "Good night, sleep well! 🌙✨"
	RandomCheckIn  = "Thinking of you... what are you up to? ❤️"
)

// Quiet hours and the minimum silence before a random check-in.
const (
	sleepStartHour = 23
	sleepEndHour   = 7
	randomInterval = 4 * time.Hour
	quietGap       = 6 * time.Hour
)

// Notification is one push message.
type Notification struct {
	Token string            `json:"to"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Notifier delivers push notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the log instead of delivering them.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify implements Notifier.
func (l *LogNotifier) Notify(ctx context.Context, n Notification) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "notification", "title", n.Title, "body", n.Body)
	return nil
}

var expoTokenRe = regexp.MustCompile(`^(Exponent|Expo)PushToken\[.+\]$`)

// IsExpoPushToken reports whether token looks like an Expo push token or a
// bare device UUID.
func IsExpoPushToken(token string) bool {
	if expoTokenRe.MatchString(token) {
		return true
	}
	_, err := uuid.Parse(token)
	return err == nil
}

// CheckIn saves text as an assistant message and pushes it to the
// registered device. Without a valid push token it does nothing.
func (c *Client) CheckIn(ctx context.Context, kind, text string) error {
	profile, err := c.store.GetProfile(ctx)
	if err != nil {
		return storageError("CheckIn", err)
	}

	token := profile[storage.ProfileKeyPushToken]
	if token == "" {
		c.logger.InfoContext(ctx, "no push token, skipping check-in", "kind", kind)
		return nil
	}
	if !IsExpoPushToken(token) {
		c.logger.WarnContext(ctx, "invalid push token, skipping check-in", "kind", kind)
		return nil
	}

	if err := c.appendMessage(ctx, storage.RoleAssistant, text, string(mood.Affectionate), ""); err != nil {
		return storageError("CheckIn", err)
	}

	n := Notification{
		Token: token,
		Title: c.config.Companion.Name,
		Body:  text,
		Data:  map[string]string{"type": "chat", "kind": kind, "message": text},
	}
	if err := c.notifier.Notify(ctx, n); err != nil {
		c.logger.ErrorContext(ctx, "send notification", "kind", kind, "error", err)
	}
	return nil
}

// randomCheckIn skips during quiet hours and when the user talked recently.
func (c *Client) randomCheckIn(ctx context.Context, loc *time.Location) error {
	now := c.now().In(loc)
	if h := now.Hour(); h >= sleepStartHour || h < sleepEndHour {
		c.logger.DebugContext(ctx, "quiet hours, skipping check-in")
		return nil
	}

	state, err := c.store.GetState(ctx)
	if err != nil {
		return storageError("CheckIn", err)
	}
	if since := now.Sub(state.LastInteraction); since <= quietGap {
		c.logger.DebugContext(ctx, "talked recently, skipping check-in", "since", since.Round(time.Minute))
		return nil
	}
	return c.CheckIn(ctx, "random", RandomCheckIn)
}

// DefaultTasks returns the proactive tasks: morning and evening check-ins,
// a random check-in every four hours, and timed extraction when
// Intelligence.ExtractionInterval is set.
func (c *Client) DefaultTasks() ([]Task, error) {
	loc, err := c.config.Scheduler.Location()
	if err != nil {
		return nil, NewCompanionError("DefaultTasks", err)
	}

	tasks := []Task{
		{
			Name:     "morning",
			Schedule: DailyAt(8, 0, loc),
			Run: func(ctx context.Context) error {
				return c.CheckIn(ctx, "morning", MorningCheckIn)
			},
		},
		{
			Name:     "evening",
			Schedule: DailyAt(22, 0, loc),
			Run: func(ctx context.Context) error {
				return c.CheckIn(ctx, "evening", EveningCheckIn)
			},
		},
		{
			Name:     "random",
			Schedule: Every(randomInterval),
			Run: func(ctx context.Context) error {
				return c.randomCheckIn(ctx, loc)
			},
		},
	}

	if interval := time.Duration(c.config.Intelligence.ExtractionInterval); interval > 0 {
		tasks = append(tasks, Task{
			Name:     "extraction",
			Schedule: Every(interval),
			Run: func(ctx context.Context) error {
				_, err := c.ExtractMemories(ctx)
				return err
			},
		})
	}
	return tasks, nil
}

// NewScheduler builds a scheduler over DefaultTasks using the client's logger and clock.
func (c *Client) NewScheduler() (*Scheduler, error) {
	tasks, err := c.DefaultTasks()
	if err != nil {
		return nil, err
	}
	s := NewScheduler(c.logger, tasks...)
	s.now = c.now
	return s, nil
}
