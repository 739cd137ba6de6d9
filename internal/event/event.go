// Package event defines the typed callback events delivered by the platform
// and parses webhook payloads into them.
package event

import (
	"fmt"

	"github.com/keepmind9/villabot/internal/message"
	"github.com/keepmind9/villabot/internal/model"
)

// Type is the numeric event kind of a callback
type Type int

const (
	TypeJoinVilla        Type = 1
	TypeSendMessage      Type = 2
	TypeCreateRobot      Type = 3
	TypeDeleteRobot      Type = 4
	TypeAddQuickEmoticon Type = 5
	TypeAuditCallback    Type = 6
)

var typeNames = map[Type]string{
	TypeJoinVilla:        "JoinVilla",
	TypeSendMessage:      "SendMessage",
	TypeCreateRobot:      "CreateRobot",
	TypeDeleteRobot:      "DeleteRobot",
	TypeAddQuickEmoticon: "AddQuickEmoticon",
	TypeAuditCallback:    "AuditCallback",
}

// Types lists every known event kind
func Types() []Type {
	return []Type{
		TypeJoinVilla,
		TypeSendMessage,
		TypeCreateRobot,
		TypeDeleteRobot,
		TypeAddQuickEmoticon,
		TypeAuditCallback,
	}
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Valid reports whether t is a known event kind
func (t Type) Valid() bool {
	_, ok := typeNames[t]
	return ok
}

// Event is implemented by every callback event
type Event interface {
	Type() Type
	// Name is a short label used in logs
	Name() string
	// Description is a one-line human readable summary
	Description() string
	// BotID is the id of the bot the event was delivered to
	BotID() string
	// RobotInfo is the bot instance block of the payload
	RobotInfo() model.Robot
}

// Base holds the fields shared by every event
type Base struct {
	Robot     model.Robot `json:"-"`
	ID        string      `json:"-"`
	CreatedAt int64       `json:"-"`
	SendAt    int64       `json:"-"`
}

func (b Base) BotID() string          { return b.Robot.Template.ID }
func (b Base) RobotInfo() model.Robot { return b.Robot }

// AuditResult of an AuditCallback
type AuditResult int

const (
	AuditCompatibility AuditResult = 0
	AuditPass          AuditResult = 1
	AuditReject        AuditResult = 2
)

func (r AuditResult) String() string {
	switch r {
	case AuditCompatibility:
		return "compatibility"
	case AuditPass:
		return "pass"
	case AuditReject:
		return "reject"
	}
	return fmt.Sprintf("AuditResult(%d)", int(r))
}

// JoinVilla is delivered when a user joins a villa
type JoinVilla struct {
	Base
	JoinUID          int64  `json:"join_uid"`
	JoinUserNickname string `json:"join_user_nickname"`
	JoinAt           int64  `json:"join_at"`
}

// SendMessage is delivered when a user mentions the bot in a room
type SendMessage struct {
	Base
	Content    model.MessageContentInfo
	FromUserID int64
	// SendAt is the send time of the message, which the quote of a reply refers to
	SendAt     int64
	RoomID     int64
	ObjectName int
	Nickname   string
	MsgUID     string
	BotMsgID   string
	VillaID    int64
	// Message is Content decoded into segments
	Message *message.Message
}

// CreateRobot is delivered when the bot is added to a villa
type CreateRobot struct {
	Base
	VillaID int64 `json:"villa_id"`
}

// DeleteRobot is delivered when the bot is removed from a villa
type DeleteRobot struct {
	Base
	VillaID int64 `json:"villa_id"`
}

// AddQuickEmoticon is delivered when a user reacts to a bot message
type AddQuickEmoticon struct {
	Base
	VillaID    int64  `json:"villa_id"`
	RoomID     int64  `json:"room_id"`
	UID        int64  `json:"uid"`
	EmoticonID int64  `json:"emoticon_id"`
	Emoticon   string `json:"emoticon"`
	MsgUID     string `json:"msg_uid"`
	BotMsgID   string `json:"bot_msg_id"`
	IsCancel   bool   `json:"is_cancel"`
}

// AuditCallback carries the result of an audit request
type AuditCallback struct {
	Base
	AuditID     string      `json:"audit_id"`
	BotTplID    string      `json:"bot_tpl_id"`
	VillaID     int64       `json:"villa_id"`
	RoomID      int64       `json:"room_id"`
	UserID      int64       `json:"user_id"`
	PassThrough string      `json:"pass_through"`
	AuditResult AuditResult `json:"audit_result"`
}

func (*JoinVilla) Type() Type        { return TypeJoinVilla }
func (*SendMessage) Type() Type      { return TypeSendMessage }
func (*CreateRobot) Type() Type      { return TypeCreateRobot }
func (*DeleteRobot) Type() Type      { return TypeDeleteRobot }
func (*AddQuickEmoticon) Type() Type { return TypeAddQuickEmoticon }
func (*AuditCallback) Type() Type    { return TypeAuditCallback }

func (e *JoinVilla) Name() string        { return e.Type().String() + "(" + e.ID + ")" }
func (e *SendMessage) Name() string      { return e.Type().String() + "(" + e.ID + ")" }
func (e *CreateRobot) Name() string      { return e.Type().String() + "(" + e.ID + ")" }
func (e *DeleteRobot) Name() string      { return e.Type().String() + "(" + e.ID + ")" }
func (e *AddQuickEmoticon) Name() string { return e.Type().String() + "(" + e.ID + ")" }
func (e *AuditCallback) Name() string    { return e.Type().String() + "(" + e.ID + ")" }

func (e *JoinVilla) Description() string {
	return fmt.Sprintf("user %s(%d) joined villa %d", e.JoinUserNickname, e.JoinUID, e.Robot.VillaID)
}

func (e *SendMessage) Description() string {
	return fmt.Sprintf("message %s from %s(%d) in room %d of villa %d: %q",
		e.MsgUID, e.Nickname, e.FromUserID, e.RoomID, e.VillaID, e.Message.PlainText())
}

func (e *CreateRobot) Description() string {
	return fmt.Sprintf("bot added to villa %d", e.VillaID)
}

func (e *DeleteRobot) Description() string {
	return fmt.Sprintf("bot removed from villa %d", e.VillaID)
}

func (e *AddQuickEmoticon) Description() string {
	action := "added"
	if e.IsCancel {
		action = "removed"
	}
	return fmt.Sprintf("user %d %s emoticon %s(%d) on message %s in room %d of villa %d",
		e.UID, action, e.Emoticon, e.EmoticonID, e.MsgUID, e.RoomID, e.VillaID)
}

func (e *AuditCallback) Description() string {
	return fmt.Sprintf("audit %s for user %d in room %d of villa %d: %s",
		e.AuditID, e.UserID, e.RoomID, e.VillaID, e.AuditResult)
}
