// Package model holds the platform's JSON wire types: message content and REST resources.
package model

import (
	"encoding/json"
	"fmt"

	"github.com/keepmind9/villabot/pkg/constants"
)

// Entity type tags as they appear on the wire
const (
	EntityMentionedRobot = "mentioned_robot"
	EntityMentionedUser  = "mentioned_user"
	EntityMentionAll     = "mention_all"
	EntityMentionedAll   = "mentioned_all" // accepted inbound only
	EntityVillaRoomLink  = "villa_room_link"
	EntityLink           = "link"
)

// MentionType tells the platform whom to notify
type MentionType int

const (
	MentionAll  MentionType = 1
	MentionPart MentionType = 2
)

// Entity annotates a span of TextContent.Text
type Entity interface {
	EntityType() string
}

// MentionedRobot marks an @bot span. BotName is not sent.
type MentionedRobot struct {
	BotID   string `json:"bot_id"`
	BotName string `json:"-"`
}

// MentionedUser marks an @user span. UserName is not sent.
type MentionedUser struct {
	UserID   string `json:"user_id"`
	UserName string `json:"-"`
}

// MentionedAll marks an @all span. ShowText is not sent.
type MentionedAll struct {
	ShowText string `json:"-"`
}

// VillaRoomLink marks a #room span. RoomName is not sent.
type VillaRoomLink struct {
	VillaID  string `json:"villa_id"`
	RoomID   string `json:"room_id"`
	RoomName string `json:"-"`
}

// Link marks a hyperlink span. ShowText is not sent.
type Link struct {
	URL                    string `json:"url"`
	RequiresBotAccessToken bool   `json:"requires_bot_access_token"`
	ShowText               string `json:"-"`
}

func (MentionedRobot) EntityType() string { return EntityMentionedRobot }
func (MentionedUser) EntityType() string  { return EntityMentionedUser }
func (MentionedAll) EntityType() string   { return EntityMentionAll }
func (VillaRoomLink) EntityType() string  { return EntityVillaRoomLink }
func (Link) EntityType() string           { return EntityLink }

func (e MentionedRobot) MarshalJSON() ([]byte, error) {
	type alias MentionedRobot
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{EntityMentionedRobot, alias(e)})
}

func (e MentionedUser) MarshalJSON() ([]byte, error) {
	type alias MentionedUser
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{EntityMentionedUser, alias(e)})
}

func (e MentionedAll) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
	}{EntityMentionAll})
}

func (e VillaRoomLink) MarshalJSON() ([]byte, error) {
	type alias VillaRoomLink
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{EntityVillaRoomLink, alias(e)})
}

func (e Link) MarshalJSON() ([]byte, error) {
	type alias Link
	return json.Marshal(struct {
		Type string `json:"type"`
		alias
	}{EntityLink, alias(e)})
}

// TextEntity is an entity positioned by UTF-16 offset and length over the rendered text
type TextEntity struct {
	Offset int    `json:"offset"`
	Length int    `json:"length"`
	Entity Entity `json:"entity"`
}

func (t *TextEntity) UnmarshalJSON(data []byte) error {
	var raw struct {
		Offset int             `json:"offset"`
		Length int             `json:"length"`
		Entity json.RawMessage `json:"entity"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	entity, err := unmarshalEntity(raw.Entity)
	if err != nil {
		return err
	}
	t.Offset, t.Length, t.Entity = raw.Offset, raw.Length, entity
	return nil
}

func unmarshalEntity(data []byte) (Entity, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("entity: %w", err)
	}
	switch head.Type {
	case EntityMentionedRobot:
		var e MentionedRobot
		err := json.Unmarshal(data, &e)
		return e, err
	case EntityMentionedUser:
		var e MentionedUser
		err := json.Unmarshal(data, &e)
		return e, err
	case EntityMentionAll, EntityMentionedAll:
		return MentionedAll{}, nil
	case EntityVillaRoomLink:
		var e VillaRoomLink
		err := json.Unmarshal(data, &e)
		return e, err
	default:
		// unknown kinds degrade to links so the span text is kept
		var e Link
		err := json.Unmarshal(data, &e)
		return e, err
	}
}

// ImageSize is sent only when both dimensions are known
type ImageSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Image is one picture of a message
type Image struct {
	URL      string     `json:"url"`
	Size     *ImageSize `json:"size,omitempty"`
	FileSize int        `json:"file_size,omitempty"`
}

// PreviewLink is a link preview card
type PreviewLink struct {
	IconURL        string `json:"icon_url"`
	ImageURL       string `json:"image_url"`
	IsInternalLink bool   `json:"is_internal_link"`
	Title          string `json:"title"`
	Content        string `json:"content"`
	URL            string `json:"url"`
	SourceName     string `json:"source_name"`
}

// Badge is shown below a text message
type Badge struct {
	IconURL string `json:"icon_url"`
	Text    string `json:"text"`
	URL     string `json:"url"`
}

// Content is one of TextContent, ImageContent or PostContent
type Content interface {
	ObjectName() string
}

// TextContent is rendered text plus entities and attachments
type TextContent struct {
	Text        string       `json:"text"`
	Entities    []TextEntity `json:"entities"`
	Images      []Image      `json:"images,omitempty"`
	PreviewLink *PreviewLink `json:"preview_link,omitempty"`
	Badge       *Badge       `json:"badge,omitempty"`
}

// ImageContent is a single image message
type ImageContent Image

// PostContent forwards a post
type PostContent struct {
	PostID string `json:"post_id"`
}

func (TextContent) ObjectName() string  { return constants.ObjectNameText }
func (ImageContent) ObjectName() string { return constants.ObjectNameImage }
func (PostContent) ObjectName() string  { return constants.ObjectNamePost }

func (c TextContent) MarshalJSON() ([]byte, error) {
	type alias TextContent
	a := alias(c)
	if a.Entities == nil {
		a.Entities = []TextEntity{}
	}
	return json.Marshal(a)
}

// MentionedInfo lists who is notified; it is omitted when nobody is
type MentionedInfo struct {
	Type       MentionType `json:"type"`
	UserIDList []string    `json:"userIdList"`
}

// QuoteInfo references the quoted message
type QuoteInfo struct {
	QuotedMessageID         string `json:"quoted_message_id"`
	QuotedMessageSendTime   int64  `json:"quoted_message_send_time"`
	OriginalMessageID       string `json:"original_message_id"`
	OriginalMessageSendTime int64  `json:"original_message_send_time"`
}

// User is the sender block of received content
type User struct {
	PortraitURI string          `json:"portraitUri"`
	Extra       json.RawMessage `json:"extra,omitempty"`
	Name        string          `json:"name"`
	Alias       string          `json:"alias"`
	ID          string          `json:"id"`
	Portrait    string          `json:"portrait"`
}

// Trace is client metadata attached to received content
type Trace struct {
	VisualRoomVersion string `json:"visual_room_version"`
	AppVersion        string `json:"app_version"`
	ActionType        int    `json:"action_type"`
	BotMsgID          string `json:"bot_msg_id"`
	Client            string `json:"client"`
	Env               string `json:"env"`
	RongSDKVersion    string `json:"rong_sdk_version"`
}

// MessageContentInfo is the msg_content payload, in both directions. User and
// Trace are only present on received messages.
type MessageContentInfo struct {
	Content       Content        `json:"content"`
	MentionedInfo *MentionedInfo `json:"mentionedInfo,omitempty"`
	Quote         *QuoteInfo     `json:"quote,omitempty"`
	User          *User          `json:"user,omitempty"`
	Trace         *Trace         `json:"trace,omitempty"`
}

func (m *MessageContentInfo) UnmarshalJSON(data []byte) error {
	var raw struct {
		Content       json.RawMessage `json:"content"`
		MentionedInfo *MentionedInfo  `json:"mentionedInfo"`
		Quote         *QuoteInfo      `json:"quote"`
		User          *User           `json:"user"`
		Trace         *Trace          `json:"trace"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	content, err := unmarshalContent(raw.Content)
	if err != nil {
		return err
	}
	*m = MessageContentInfo{
		Content:       content,
		MentionedInfo: raw.MentionedInfo,
		Quote:         raw.Quote,
		User:          raw.User,
		Trace:         raw.Trace,
	}
	return nil
}

func unmarshalContent(data []byte) (Content, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("content is missing")
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("content: %w", err)
	}
	switch {
	case probe["text"] != nil:
		var c TextContent
		err := json.Unmarshal(data, &c)
		return c, err
	case probe["post_id"] != nil:
		var c PostContent
		err := json.Unmarshal(data, &c)
		return c, err
	case probe["url"] != nil:
		var c ImageContent
		err := json.Unmarshal(data, &c)
		return c, err
	}
	return nil, fmt.Errorf("content has no text, post_id or url")
}
