// Package telegram is the outbound transport: it delivers rendered
// alerts over the Telegram Bot API. The interactive bot (commands,
// keyboards, subscription editing) lives in a separate service; this
// side only sends.
package telegram

import (
	"context"
	"errors"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"
)

type Config struct {
	Token string
	// Offline skips the getMe call; used by tests.
	Offline bool
}

type Sender struct {
	bot *tele.Bot
}

func NewSender(cfg Config) (*Sender, error) {
	if strings.TrimSpace(cfg.Token) == "" && !cfg.Offline {
		return nil, errors.New("telegram token is empty")
	}
	b, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		Offline: cfg.Offline,
		Poller:  &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, err
	}
	return &Sender{bot: b}, nil
}

// Send delivers one HTML message without link previews. telebot has no
// context plumbing, so cancellation is checked at the boundary; the
// dispatcher's per-send timeout bounds the rest.
func (s *Sender) Send(ctx context.Context, userID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.bot.Send(&tele.User{ID: userID}, text, &tele.SendOptions{
		ParseMode:             tele.ModeHTML,
		DisableWebPagePreview: true,
	})
	return err
}
