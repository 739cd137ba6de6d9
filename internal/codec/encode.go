// Package codec converts between message.Message and the platform's
// MessageContentInfo wire representation.
package codec

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/keepmind9/villabot/internal/logger"
	"github.com/keepmind9/villabot/internal/message"
	"github.com/keepmind9/villabot/internal/model"
	"github.com/keepmind9/villabot/pkg/constants"
	"github.com/sirupsen/logrus"
)

var (
	// ErrEmptyMessage is returned when nothing sendable is left after encoding
	ErrEmptyMessage = errors.New("message content is empty")
	// ErrLookupFailed is returned by a Directory that cannot resolve a name
	ErrLookupFailed = errors.New("name lookup failed")
	// ErrInvalidPostID is returned for a post id that is not numeric
	ErrInvalidPostID = errors.New("post id must be numeric")
)

// Directory resolves the display names the encoder needs for mentions and room links
type Directory interface {
	MemberName(ctx context.Context, villaID, userID int64) (string, error)
	RoomName(ctx context.Context, villaID, roomID int64) (string, error)
}

// Encoder renders messages into MessageContentInfo
type Encoder struct {
	dir Directory
}

// NewEncoder creates an encoder. dir may be nil when no segment needs a lookup.
func NewEncoder(dir Directory) *Encoder {
	return &Encoder{dir: dir}
}

// span is the rendered form of one inline segment
type span struct {
	text       string
	entity     model.Entity
	mentionID  string
	mentionAll bool
}

// Encode renders m into exactly one MessageContentInfo.
//
// Segments that fail to render (a failed name lookup, an invalid mention) are
// skipped with a warning. ErrEmptyMessage is returned when nothing is left.
func (e *Encoder) Encode(ctx context.Context, m *message.Message) (*model.MessageContentInfo, error) {
	var (
		quote   *model.QuoteInfo
		badge   *model.Badge
		preview *model.PreviewLink
		post    *message.Post
		images  []model.Image
		inline  []message.Segment
	)

	for _, seg := range m.Segments() {
		switch s := seg.(type) {
		case message.Quote:
			if quote != nil {
				warnDuplicate(s.Kind())
				continue
			}
			quote = &model.QuoteInfo{
				QuotedMessageID:         s.QuotedMessageID,
				QuotedMessageSendTime:   s.QuotedSendTime,
				OriginalMessageID:       s.QuotedMessageID,
				OriginalMessageSendTime: s.QuotedSendTime,
			}
		case message.Badge:
			if badge != nil {
				warnDuplicate(s.Kind())
				continue
			}
			badge = &model.Badge{IconURL: s.IconURL, Text: s.Text, URL: s.URL}
		case message.PreviewLink:
			if preview != nil {
				warnDuplicate(s.Kind())
				continue
			}
			preview = &model.PreviewLink{
				IconURL:        s.IconURL,
				ImageURL:       s.ImageURL,
				IsInternalLink: s.IsInternalLink,
				Title:          s.Title,
				Content:        s.Content,
				URL:            s.URL,
				SourceName:     s.SourceName,
			}
		case message.Post:
			if post != nil {
				warnDuplicate(s.Kind())
				continue
			}
			p := s
			post = &p
		case message.Image:
			images = append(images, wireImage(s))
		default:
			inline = append(inline, seg)
		}
	}

	// a post is always sent alone
	if post != nil {
		if len(inline) > 0 || len(images) > 0 || quote != nil || badge != nil || preview != nil {
			logger.WithField("post_id", post.PostID).Warn("post-sent-alone-other-segments-dropped")
		}
		id, err := normalizePostID(post.PostID)
		if err != nil {
			return nil, err
		}
		return &model.MessageContentInfo{Content: model.PostContent{PostID: id}}, nil
	}

	var (
		text        strings.Builder
		offset      int
		entities    []model.TextEntity
		mentionType = model.MentionPart
		mentionIDs  []string
		lastErr     error
	)
	for _, seg := range inline {
		sp, err := e.render(ctx, seg)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"segment": seg.Kind(),
				"error":   err,
			}).Warn("message-segment-skipped")
			lastErr = err
			continue
		}
		length := wireLen(sp.text)
		if sp.entity != nil {
			entities = append(entities, model.TextEntity{Offset: offset, Length: length, Entity: sp.entity})
		}
		if sp.mentionAll {
			mentionType = model.MentionAll
		}
		if sp.mentionID != "" {
			mentionIDs = append(mentionIDs, sp.mentionID)
		}
		offset += length
		text.WriteString(sp.text)
	}

	info := &model.MessageContentInfo{Quote: quote}
	if mentionType == model.MentionAll && len(mentionIDs) > 0 {
		info.MentionedInfo = &model.MentionedInfo{Type: mentionType, UserIDList: mentionIDs}
	}

	if text.Len() == 0 && len(entities) == 0 {
		switch {
		case len(images) == 1:
			info.Content = model.ImageContent(images[0])
		case len(images) > 1 || preview != nil:
			info.Content = model.TextContent{
				Text:        constants.PlaceholderText,
				Images:      images,
				PreviewLink: preview,
				Badge:       badge,
			}
		default:
			if lastErr != nil {
				return nil, fmt.Errorf("%w: %w", ErrEmptyMessage, lastErr)
			}
			return nil, ErrEmptyMessage
		}
		return info, nil
	}

	info.Content = model.TextContent{
		Text:        text.String(),
		Entities:    entities,
		Images:      images,
		PreviewLink: preview,
		Badge:       badge,
	}
	return info, nil
}

func (e *Encoder) render(ctx context.Context, seg message.Segment) (span, error) {
	switch s := seg.(type) {
	case message.Text:
		return span{text: s.Content}, nil
	case message.MentionAll:
		return span{
			text:       "@" + s.ShowText + " ",
			entity:     model.MentionedAll{ShowText: s.ShowText},
			mentionAll: true,
		}, nil
	case message.MentionRobot:
		return span{
			text:      "@" + s.BotName + " ",
			entity:    model.MentionedRobot{BotID: s.BotID, BotName: s.BotName},
			mentionID: s.BotID,
		}, nil
	case message.MentionUser:
		if err := s.Validate(); err != nil {
			return span{}, err
		}
		name := s.UserName
		if name == "" {
			var err error
			if name, err = e.memberName(ctx, s.VillaID, s.UserID); err != nil {
				return span{}, err
			}
		}
		uid := strconv.FormatInt(s.UserID, 10)
		return span{
			text:      "@" + name + " ",
			entity:    model.MentionedUser{UserID: uid, UserName: name},
			mentionID: uid,
		}, nil
	case message.RoomLink:
		name, err := e.roomName(ctx, s.VillaID, s.RoomID)
		if err != nil {
			return span{}, err
		}
		return span{
			text: "#" + name + " ",
			entity: model.VillaRoomLink{
				VillaID:  strconv.FormatInt(s.VillaID, 10),
				RoomID:   strconv.FormatInt(s.RoomID, 10),
				RoomName: name,
			},
		}, nil
	case message.Link:
		return span{
			text: s.ShowText,
			entity: model.Link{
				URL:                    s.URL,
				ShowText:               s.ShowText,
				RequiresBotAccessToken: s.RequiresBotAccessToken,
			},
		}, nil
	}
	return span{}, fmt.Errorf("segment %s cannot be rendered inline", seg.Kind())
}

func (e *Encoder) memberName(ctx context.Context, villaID, userID int64) (string, error) {
	if e.dir == nil {
		return "", fmt.Errorf("%w: no directory for member %d", ErrLookupFailed, userID)
	}
	name, err := e.dir.MemberName(ctx, villaID, userID)
	if err != nil {
		return "", fmt.Errorf("%w: member %d in villa %d: %w", ErrLookupFailed, userID, villaID, err)
	}
	return name, nil
}

func (e *Encoder) roomName(ctx context.Context, villaID, roomID int64) (string, error) {
	if e.dir == nil {
		return "", fmt.Errorf("%w: no directory for room %d", ErrLookupFailed, roomID)
	}
	name, err := e.dir.RoomName(ctx, villaID, roomID)
	if err != nil {
		return "", fmt.Errorf("%w: room %d in villa %d: %w", ErrLookupFailed, roomID, villaID, err)
	}
	return name, nil
}

func wireImage(s message.Image) model.Image {
	img := model.Image{URL: s.URL, FileSize: s.FileSize}
	if s.Width > 0 && s.Height > 0 {
		img.Size = &model.ImageSize{Width: s.Width, Height: s.Height}
	}
	return img
}

// normalizePostID accepts a bare id or a post URL and returns the numeric id
func normalizePostID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if u, err := url.Parse(id); err == nil && u.Path != "" {
		id = u.Path
	}
	id = path.Base(strings.TrimRight(id, "/"))
	if id == "" || strings.Trim(id, "0123456789") != "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidPostID, raw)
	}
	return id, nil
}

func warnDuplicate(kind message.Kind) {
	logger.WithField("segment", kind).Warn("duplicate-segment-ignored")
}
