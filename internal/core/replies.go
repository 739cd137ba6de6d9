package core

import (
	"context"
	"fmt"
	"regexp"

	"github.com/keepmind9/villabot/internal/dispatch"
	"github.com/keepmind9/villabot/internal/event"
	"github.com/keepmind9/villabot/internal/message"
)

// RegisterReplies registers one handler per rule that answers with the rule text
func RegisterReplies(bot *Bot, rules []ReplyConfig) error {
	for i, rule := range rules {
		if err := registerReply(bot, rule); err != nil {
			return fmt.Errorf("reply rule %d: %w", i, err)
		}
	}
	return nil
}

func registerReply(bot *Bot, rule ReplyConfig) error {
	h := bot.OnStartsWith(rule.StartsWith...).Prefix(rule.Prefix...)
	h.handler.Predicate.EndsWith = rule.EndsWith
	h.handler.Predicate.Keywords = rule.Keywords
	if rule.Regex != "" {
		re, err := regexp.Compile(rule.Regex)
		if err != nil {
			return err
		}
		h.handler.Predicate.Regex = re
	}

	h.Priority(rule.Priority).Name(fmt.Sprintf("reply(%s)", truncate(rule.Text, 32)))
	if rule.Block {
		h.Block()
	}

	opts := ReplyOptions{MentionSender: rule.MentionSender, QuoteMessage: rule.Quote}
	_, err := h.Handle(replyWith(bot, rule.Text, opts))
	return err
}

func replyWith(bot *Bot, text string, opts ReplyOptions) dispatch.Callback {
	return func(ctx context.Context, ev event.Event) error {
		msg, ok := ev.(*event.SendMessage)
		if !ok {
			return nil
		}
		_, err := bot.Reply(ctx, msg, message.FromString(text), opts)
		return err
	}
}
