// Package middleware holds the shared telebot middleware chain.
package middleware

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/jewelbot/core/logger"
)

// Recover catches panics in handlers and prevents the bot from crashing.
func Recover(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		defer func() {
			if r := recover(); r != nil {
				logger.TG.Error("panic recovered",
					slog.String("event", "tg.panic"),
					slog.Any("err", r),
					slog.String("stack", string(debug.Stack())),
				)
			}
		}()
		return next(c)
	}
}

// Logger logs a single receipt line per update and stores the rid for
// downstream handlers.
func Logger(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd := c.Update()
		chatID, userID := int64(0), int64(0)
		if chat := c.Chat(); chat != nil {
			chatID = chat.ID
		}
		if user := c.Sender(); user != nil {
			userID = user.ID
		}
		rid := logger.BuildRID(upd.ID, chatID, userID)
		c.Set("rid", rid)

		start := time.Now()
		err := next(c)

		attrs := []slog.Attr{
			slog.String("event", "update.handled"),
			slog.String("rid", rid),
			slog.Int("update_id", upd.ID),
			slog.Int64("chat_id", chatID),
			slog.Int64("user_id", userID),
			slog.Duration("duration", logger.RoundMS(time.Since(start))),
		}
		level := slog.LevelDebug
		if err != nil {
			level = slog.LevelError
			attrs = append(attrs, slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
		}
		logger.TG.LogAttrs(context.Background(), level, "update.handled", attrs...)
		return err
	}
}

// AdminOnly ensures that only the configured admin can invoke downstream
// handlers.
func AdminOnly(adminID int64, onReject tele.HandlerFunc) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil || sender.ID != adminID {
				if onReject != nil {
					return onReject(c)
				}
				return nil
			}
			return next(c)
		}
	}
}

// ChatSerializer hands out one mutex per chat so overlapping updates for the
// same chat are processed in arrival order while distinct chats proceed
// concurrently. Session and draft state is only safe under this guarantee.
type ChatSerializer struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewChatSerializer creates an empty serializer.
func NewChatSerializer() *ChatSerializer {
	return &ChatSerializer{locks: make(map[int64]*sync.Mutex)}
}

func (s *ChatSerializer) lockFor(chatID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[chatID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[chatID] = l
	}
	return l
}

// Run executes fn while holding the chat's lock.
func (s *ChatSerializer) Run(chatID int64, fn func() error) error {
	l := s.lockFor(chatID)
	l.Lock()
	defer l.Unlock()
	return fn()
}

// Middleware serializes handler execution per chat.
func (s *ChatSerializer) Middleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		chat := c.Chat()
		if chat == nil {
			return next(c)
		}
		return s.Run(chat.ID, func() error { return next(c) })
	}
}
