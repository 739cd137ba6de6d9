// Package dispatch routes events through priority-ordered handlers.
//
// Handlers are grouped into buckets by priority. Buckets run in ascending
// priority order, one after another; the handlers of one bucket run
// concurrently and are joined before the next bucket starts. A matched
// handler flagged Block stops every later bucket.
package dispatch

import (
	"context"
	"reflect"
	"regexp"
	"runtime"
	"slices"
	"strings"

	"github.com/keepmind9/villabot/internal/event"
	"github.com/keepmind9/villabot/internal/message"
)

// Callback handles one event. Returned errors are logged and isolated.
type Callback func(ctx context.Context, ev event.Event) error

// Predicate filters message events by their plain text. Every non-empty
// criterion must hold; within a criterion any one value is enough.
type Predicate struct {
	StartsWith []string
	EndsWith   []string
	Keywords   []string
	// Regex must match at the start of the text
	Regex *regexp.Regexp
}

// Empty reports whether p has no criterion
func (p *Predicate) Empty() bool {
	return p == nil || (len(p.StartsWith) == 0 && len(p.EndsWith) == 0 && len(p.Keywords) == 0 && p.Regex == nil)
}

// Match evaluates p against m
func (p *Predicate) Match(m *message.Message) bool {
	if p.Empty() {
		return true
	}
	if len(p.StartsWith) > 0 && !m.StartsWith(p.StartsWith...) {
		return false
	}
	if len(p.EndsWith) > 0 && !m.EndsWith(p.EndsWith...) {
		return false
	}
	if len(p.Keywords) > 0 && !containsAny(m.PlainText(), p.Keywords) {
		return false
	}
	if p.Regex != nil && m.Match(p.Regex) == nil {
		return false
	}
	return true
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// Handler is a registered event handler
type Handler struct {
	Name string
	// Types the handler accepts; empty accepts every event
	Types     []event.Type
	Predicate *Predicate
	// Priority orders buckets; lower runs first
	Priority int
	Block    bool
	Callback Callback
}

// Check reports whether h should run for ev. The predicate only applies to
// message events.
func (h *Handler) Check(ev event.Event) bool {
	if len(h.Types) > 0 && !slices.Contains(h.Types, ev.Type()) {
		return false
	}
	if msg, ok := ev.(*event.SendMessage); ok {
		return h.Predicate.Match(msg.Message)
	}
	return true
}

func (h *Handler) String() string {
	return h.Name
}

// FuncName returns the qualified name of a function value
func FuncName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return "<nil>"
	}
	if f := runtime.FuncForPC(v.Pointer()); f != nil {
		return f.Name()
	}
	return "<unknown>"
}
