package main

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/wneessen/go-mail"
)

var errNoRecipient = errors.New("没有可用的收件方式")

type sender interface {
	name() string
	// accepts 判断该通知是否可以通过此方式发送
	accepts(r *rendered) bool
	send(ctx context.Context, r *rendered) error
}

type mailSender struct {
	client *mail.Client
	from   string
}

func (s *mailSender) name() string { return "email" }

func (s *mailSender) accepts(r *rendered) bool { return r.To != "" }

func (s *mailSender) send(ctx context.Context, r *rendered) error {
	m := mail.NewMsg()
	if err := m.From(s.from); err != nil {
		return err
	}
	if err := m.To(r.To); err != nil {
		return err
	}
	m.Subject(r.Subject)
	m.SetBodyString(mail.TypeTextHTML, r.HTML)
	m.AddAlternativeString(mail.TypeTextPlain, r.Text)
	return s.client.DialAndSendWithContext(ctx, m)
}

type telegramSender struct {
	bot *tgbotapi.BotAPI
}

func (s *telegramSender) name() string { return "telegram" }

func (s *telegramSender) accepts(r *rendered) bool { return r.ChatID != nil }

func (s *telegramSender) send(_ context.Context, r *rendered) error {
	_, err := s.bot.Send(tgbotapi.NewMessage(*r.ChatID, r.Text))
	return err
}

// deliver 通过所有可用的方式发送，至少一种方式成功即视为送达
func deliver(ctx context.Context, senders []sender, r *rendered) (delivered []string, failures map[string]error) {
	failures = make(map[string]error)
	for _, s := range senders {
		if !s.accepts(r) {
			continue
		}
		if err := s.send(ctx, r); err != nil {
			failures[s.name()] = err
			continue
		}
		delivered = append(delivered, s.name())
	}
	return delivered, failures
}
