package codec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/keepmind9/villabot/internal/message"
	"github.com/keepmind9/villabot/internal/model"
)

// ErrUnsupportedContent is returned for content the decoder does not know
var ErrUnsupportedContent = errors.New("unsupported message content")

// Decode rebuilds a Message from received content. villaID is recorded on
// decoded user mentions so their names can be looked up again when re-sent.
func Decode(info *model.MessageContentInfo, villaID int64) (*message.Message, error) {
	if info == nil {
		return nil, fmt.Errorf("%w: nil content", ErrUnsupportedContent)
	}

	msg := message.New()
	if q := info.Quote; q != nil {
		msg.Append(message.Quote{QuotedMessageID: q.QuotedMessageID, QuotedSendTime: q.QuotedMessageSendTime})
	}

	switch c := info.Content.(type) {
	case model.TextContent:
		if err := decodeText(msg, c, villaID); err != nil {
			return nil, err
		}
	case model.ImageContent:
		img := message.Image{URL: c.URL, FileSize: c.FileSize}
		if c.Size != nil {
			img.Width, img.Height = c.Size.Width, c.Size.Height
		}
		msg.Append(img)
	case model.PostContent:
		msg.Append(message.Post{PostID: c.PostID})
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedContent, info.Content)
	}
	return msg, nil
}

func decodeText(msg *message.Message, c model.TextContent, villaID int64) error {
	if len(c.Entities) == 0 {
		if c.Text != "" {
			msg.Text(c.Text)
		}
		return nil
	}

	buf := utf16Bytes(c.Text)
	lastOffset, lastLength := 0, 0
	for i, ent := range c.Entities {
		end := lastOffset + lastLength
		if ent.Offset != end {
			if gap := wireSlice(buf, end, ent.Offset); gap != "" {
				msg.Text(gap)
			}
		}
		rendered := wireSlice(buf, ent.Offset, ent.Offset+ent.Length)
		seg, err := decodeEntity(ent.Entity, rendered, villaID)
		if err != nil {
			return fmt.Errorf("entity %d: %w", i, err)
		}
		msg.Append(seg)
		lastOffset, lastLength = ent.Offset, ent.Length
	}
	if tail := wireTail(buf, lastOffset+lastLength); tail != "" {
		msg.Text(tail)
	}
	return nil
}

func decodeEntity(entity model.Entity, rendered string, villaID int64) (message.Segment, error) {
	switch e := entity.(type) {
	case model.MentionedRobot:
		return message.MentionRobot{BotID: e.BotID, BotName: unpad(rendered, "@")}, nil
	case model.MentionedUser:
		uid, err := strconv.ParseInt(e.UserID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("user id %q: %w", e.UserID, err)
		}
		return message.MentionUser{UserID: uid, UserName: unpad(rendered, "@"), VillaID: villaID}, nil
	case model.MentionedAll:
		return message.MentionAll{ShowText: unpad(rendered, "@")}, nil
	case model.VillaRoomLink:
		vid, err := strconv.ParseInt(e.VillaID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("villa id %q: %w", e.VillaID, err)
		}
		rid, err := strconv.ParseInt(e.RoomID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("room id %q: %w", e.RoomID, err)
		}
		return message.RoomLink{VillaID: vid, RoomID: rid}, nil
	case model.Link:
		return message.Link{URL: e.URL, ShowText: rendered, RequiresBotAccessToken: e.RequiresBotAccessToken}, nil
	case nil:
		return nil, errors.New("entity is missing")
	}
	return message.Link{ShowText: rendered}, nil
}

// unpad strips every leading marker and the trailing padding character
func unpad(rendered, marker string) string {
	r := []rune(strings.TrimLeft(rendered, marker))
	if len(r) == 0 {
		return ""
	}
	return string(r[:len(r)-1])
}
