package core

import (
	"regexp"

	"github.com/keepmind9/villabot/internal/dispatch"
	"github.com/keepmind9/villabot/internal/event"
)

// DefaultPriority is the priority of handlers registered without one
const DefaultPriority = 1

// HandlerBuilder registers one handler on a bot. Nothing is registered until Handle.
type HandlerBuilder struct {
	registry *dispatch.Registry
	handler  dispatch.Handler
	prefixes []string
	words    []string
}

func newBuilder(reg *dispatch.Registry, types ...event.Type) *HandlerBuilder {
	return &HandlerBuilder{
		registry: reg,
		handler: dispatch.Handler{
			Types:     types,
			Predicate: &dispatch.Predicate{},
			Priority:  DefaultPriority,
		},
	}
}

// On starts a handler for the given event types; no types accepts every event
func (b *Bot) On(types ...event.Type) *HandlerBuilder {
	return newBuilder(b.registry, types...)
}

// OnMessage starts a handler for message events
func (b *Bot) OnMessage() *HandlerBuilder {
	return b.On(event.TypeSendMessage)
}

// OnStartsWith starts a message handler for text beginning with one of words
func (b *Bot) OnStartsWith(words ...string) *HandlerBuilder {
	h := b.OnMessage()
	h.words = append(h.words, words...)
	return h
}

// OnEndsWith starts a message handler for text ending with one of words
func (b *Bot) OnEndsWith(words ...string) *HandlerBuilder {
	h := b.OnMessage()
	h.handler.Predicate.EndsWith = append(h.handler.Predicate.EndsWith, words...)
	return h
}

// OnKeyword starts a message handler for text containing one of keywords
func (b *Bot) OnKeyword(keywords ...string) *HandlerBuilder {
	h := b.OnMessage()
	h.handler.Predicate.Keywords = append(h.handler.Predicate.Keywords, keywords...)
	return h
}

// OnRegex starts a message handler for text matching re at its start
func (b *Bot) OnRegex(re *regexp.Regexp) *HandlerBuilder {
	h := b.OnMessage()
	h.handler.Predicate.Regex = re
	return h
}

// Prefix sets prefixes combined with every startswith word, so
// Prefix("/", "!") with OnStartsWith("help") matches "/help" and "!help".
func (h *HandlerBuilder) Prefix(prefixes ...string) *HandlerBuilder {
	h.prefixes = append(h.prefixes, prefixes...)
	return h
}

// Priority sets the handler priority; lower runs first
func (h *HandlerBuilder) Priority(n int) *HandlerBuilder {
	h.handler.Priority = n
	return h
}

// Block stops lower priorities once this handler matched
func (h *HandlerBuilder) Block() *HandlerBuilder {
	h.handler.Block = true
	return h
}

// Name overrides the handler name shown in logs
func (h *HandlerBuilder) Name(name string) *HandlerBuilder {
	h.handler.Name = name
	return h
}

// Handle registers fn and returns the registered handler
func (h *HandlerBuilder) Handle(fn dispatch.Callback) (*dispatch.Handler, error) {
	handler := h.handler
	handler.Callback = fn
	predicate := *h.handler.Predicate
	predicate.StartsWith = startsWithProduct(h.prefixes, h.words)
	handler.Predicate = &predicate

	if err := h.registry.Add(&handler); err != nil {
		return nil, err
	}
	return &handler, nil
}

// startsWithProduct returns every prefix+word, deduplicated, in order
func startsWithProduct(prefixes, words []string) []string {
	if len(words) == 0 {
		return nil
	}
	if len(prefixes) == 0 {
		prefixes = []string{""}
	}
	seen := make(map[string]bool, len(prefixes)*len(words))
	var out []string
	for _, p := range prefixes {
		for _, w := range words {
			s := p + w
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}
