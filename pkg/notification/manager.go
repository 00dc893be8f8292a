package notification

import (
	"context"
	"log/slog"
	"time"

	"simtelemetry/pkg/source"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/nikoksr/notify"
	"github.com/nikoksr/notify/service/telegram"
	"golang.org/x/time/rate"
)

const (
	subject     = "Telemetry source"
	sendTimeout = 10 * time.Second
)

// Manager forwards source events to a notifier. A flapping source is not
// allowed to flood the receivers: messages beyond the rate limit are dropped.
type Manager struct {
	notifier notify.Notifier
	limiter  *rate.Limiter
	log      *slog.Logger
}

func NewManager(notifier notify.Notifier, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		notifier: notifier,
		limiter:  rate.NewLimiter(rate.Every(10*time.Second), 3),
		log:      logger.With("component", "notification"),
	}
}

// NewTelegramManager sends to the given Telegram chats through bot.
func NewTelegramManager(bot *tgbotapi.BotAPI, chatIDs []int64, logger *slog.Logger) *Manager {
	tg := &telegram.Telegram{}
	tg.SetClient(bot)
	tg.AddReceivers(chatIDs...)
	return NewManager(notify.NewWithServices(tg), logger)
}

// Run sends one message per event until ctx is done.
func (m *Manager) Run(ctx context.Context, events <-chan source.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-events:
			m.handle(ctx, e)
		}
	}
}

func (m *Manager) handle(ctx context.Context, e source.Event) {
	if e.Kind == source.EventClosed {
		return
	}
	if !m.limiter.Allow() {
		m.log.Warn("notification dropped", "event", e.Kind)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if err := m.notifier.Send(ctx, subject, e.String()); err != nil {
		m.log.Error("error notifying source change", "event", e.Kind, "error", err)
		return
	}
	m.log.Info("source change notified", "event", e.Kind)
}
