package message

import (
	"fmt"
	"regexp"
	"strings"
)

// Message is an ordered, mutable sequence of segments in display order
type Message struct {
	segments []Segment
}

// New creates a message from the given segments
func New(segments ...Segment) *Message {
	m := &Message{segments: make([]Segment, 0, len(segments))}
	m.segments = append(m.segments, segments...)
	return m
}

// FromString creates a message holding a single text segment
func FromString(s string) *Message {
	return New(Text{Content: s})
}

// Len returns the number of segments
func (m *Message) Len() int {
	if m == nil {
		return 0
	}
	return len(m.segments)
}

// At returns the i-th segment. It panics when i is out of range, like slice indexing.
func (m *Message) At(i int) Segment {
	return m.segments[i]
}

// Segments returns a copy of the segment list
func (m *Message) Segments() []Segment {
	if m == nil {
		return nil
	}
	out := make([]Segment, len(m.segments))
	copy(out, m.segments)
	return out
}

// Append adds a segment at the end and returns m for chaining
func (m *Message) Append(seg Segment) *Message {
	m.segments = append(m.segments, seg)
	return m
}

// Insert places seg before index i. Indices past the end append.
func (m *Message) Insert(i int, seg Segment) *Message {
	if i < 0 {
		i = 0
	}
	if i >= len(m.segments) {
		m.segments = append(m.segments, seg)
		return m
	}
	m.segments = append(m.segments, nil)
	copy(m.segments[i+1:], m.segments[i:])
	m.segments[i] = seg
	return m
}

// Extend appends every segment of other in place
func (m *Message) Extend(other *Message) *Message {
	if other != nil {
		m.segments = append(m.segments, other.segments...)
	}
	return m
}

// Concat returns a new message holding m followed by other; neither is modified
func (m *Message) Concat(other *Message) *Message {
	out := New(m.Segments()...)
	return out.Extend(other)
}

// With returns a new message holding m followed by seg
func (m *Message) With(seg Segment) *Message {
	return New(m.Segments()...).Append(seg)
}

// Slice returns a new message holding segments [i, j)
func (m *Message) Slice(i, j int) *Message {
	return New(m.segments[i:j]...)
}

// PlainText concatenates the content of the text segments only
func (m *Message) PlainText() string {
	if m == nil {
		return ""
	}
	var sb strings.Builder
	for _, seg := range m.segments {
		if t, ok := seg.(Text); ok {
			sb.WriteString(t.Content)
		}
	}
	return sb.String()
}

// Contains reports whether the plain text contains s
func (m *Message) Contains(s string) bool {
	return strings.Contains(m.PlainText(), s)
}

// StartsWith reports whether the plain text starts with any of the prefixes
func (m *Message) StartsWith(prefixes ...string) bool {
	text := m.PlainText()
	for _, p := range prefixes {
		if strings.HasPrefix(text, p) {
			return true
		}
	}
	return false
}

// EndsWith reports whether the plain text ends with any of the suffixes
func (m *Message) EndsWith(suffixes ...string) bool {
	text := m.PlainText()
	for _, s := range suffixes {
		if strings.HasSuffix(text, s) {
			return true
		}
	}
	return false
}

// Match matches re at the start of the plain text and returns the submatches,
// or nil when the text does not start with a match.
func (m *Message) Match(re *regexp.Regexp) []string {
	text := m.PlainText()
	loc := re.FindStringSubmatchIndex(text)
	// leftmost-first: if any match begins at 0 the leftmost one does
	if loc == nil || loc[0] != 0 {
		return nil
	}
	out := make([]string, len(loc)/2)
	for i := range out {
		if loc[2*i] >= 0 {
			out[i] = text[loc[2*i]:loc[2*i+1]]
		}
	}
	return out
}

// Search finds the first match of re anywhere in the plain text
func (m *Message) Search(re *regexp.Regexp) []string {
	return re.FindStringSubmatch(m.PlainText())
}

// Has reports whether any segment is of the given kind
func (m *Message) Has(kind Kind) bool {
	for _, seg := range m.segments {
		if seg.Kind() == kind {
			return true
		}
	}
	return false
}

// Filter returns a new message with only the segments of the given kind
func (m *Message) Filter(kind Kind) *Message {
	out := New()
	for _, seg := range m.segments {
		if seg.Kind() == kind {
			out.segments = append(out.segments, seg)
		}
	}
	return out
}

// Nth returns the n-th (zero based) segment of the given kind
func (m *Message) Nth(kind Kind, n int) (Segment, bool) {
	if n < 0 {
		return nil, false
	}
	for _, seg := range m.segments {
		if seg.Kind() != kind {
			continue
		}
		if n == 0 {
			return seg, true
		}
		n--
	}
	return nil, false
}

func (m *Message) String() string {
	parts := make([]string, 0, len(m.segments))
	for _, seg := range m.segments {
		parts = append(parts, fmt.Sprintf("%s%+v", seg.Kind(), seg))
	}
	return "Message[" + strings.Join(parts, ", ") + "]"
}

// Text appends a text segment
func (m *Message) Text(content string) *Message {
	return m.Append(Text{Content: content})
}

// MentionUser appends a mention of a user whose name is known
func (m *Message) MentionUser(userID int64, userName string) *Message {
	return m.Append(NewMentionUser(userID, userName))
}

// MentionUserInVilla appends a mention whose name is looked up in villaID
func (m *Message) MentionUserInVilla(userID, villaID int64) *Message {
	return m.Append(NewMentionUserInVilla(userID, villaID))
}

// MentionAll appends an @all mention with the default display text
func (m *Message) MentionAll() *Message {
	return m.Append(NewMentionAll(""))
}

// MentionRobot appends a bot mention
func (m *Message) MentionRobot(botID, botName string) *Message {
	return m.Append(MentionRobot{BotID: botID, BotName: botName})
}

// RoomLink appends a room link
func (m *Message) RoomLink(villaID, roomID int64) *Message {
	return m.Append(RoomLink{VillaID: villaID, RoomID: roomID})
}

// Link appends a hyperlink
func (m *Message) Link(url, showText string, requiresBotAccessToken bool) *Message {
	return m.Append(NewLink(url, showText, requiresBotAccessToken))
}

// Image appends an image without size information
func (m *Message) Image(url string) *Message {
	return m.Append(Image{URL: url})
}

// Quote appends a quote of an earlier message
func (m *Message) Quote(messageID string, sendTime int64) *Message {
	return m.Append(Quote{QuotedMessageID: messageID, QuotedSendTime: sendTime})
}

// Post appends a forwarded post
func (m *Message) Post(postID string) *Message {
	return m.Append(Post{PostID: postID})
}

// PreviewLink appends a link preview card
func (m *Message) PreviewLink(card PreviewLink) *Message {
	return m.Append(card)
}

// Badge appends a badge
func (m *Message) Badge(iconURL, text, url string) *Message {
	return m.Append(Badge{IconURL: iconURL, Text: text, URL: url})
}
