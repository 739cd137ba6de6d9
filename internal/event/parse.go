package event

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/keepmind9/villabot/internal/codec"
	"github.com/keepmind9/villabot/internal/model"
)

// ErrPayloadInvalid is returned for a callback body that cannot be turned into an event
var ErrPayloadInvalid = errors.New("invalid event payload")

type envelope struct {
	Event json.RawMessage `json:"event"`
}

type rawEvent struct {
	Robot      model.Robot `json:"robot"`
	Type       Type        `json:"type"`
	ID         string      `json:"id"`
	CreatedAt  int64       `json:"created_at"`
	SendAt     int64       `json:"send_at"`
	ExtendData struct {
		EventData map[string]json.RawMessage `json:"EventData"`
	} `json:"extend_data"`
}

type rawSendMessage struct {
	Content    json.RawMessage `json:"content"`
	FromUserID int64           `json:"from_user_id"`
	SendAt     int64           `json:"send_at"`
	RoomID     int64           `json:"room_id"`
	ObjectName int             `json:"object_name"`
	Nickname   string          `json:"nickname"`
	MsgUID     string          `json:"msg_uid"`
	BotMsgID   string          `json:"bot_msg_id"`
	VillaID    int64           `json:"villa_id"`
}

// ParseBody parses a webhook request body of the form {"event": {...}}
func ParseBody(body []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPayloadInvalid, err)
	}
	if len(env.Event) == 0 || bytes.Equal(env.Event, []byte("null")) {
		return nil, fmt.Errorf("%w: missing event", ErrPayloadInvalid)
	}
	return Parse(env.Event)
}

// Parse parses the event object of a callback
func Parse(payload []byte) (Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPayloadInvalid, err)
	}
	if !raw.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown event type %d", ErrPayloadInvalid, int(raw.Type))
	}
	if raw.Robot.Template.ID == "" {
		return nil, fmt.Errorf("%w: missing robot template id", ErrPayloadInvalid)
	}

	base := Base{Robot: raw.Robot, ID: raw.ID, CreatedAt: raw.CreatedAt, SendAt: raw.SendAt}
	data := eventData(raw)

	var (
		ev  Event
		err error
	)
	switch raw.Type {
	case TypeJoinVilla:
		e := &JoinVilla{Base: base}
		err = unmarshalData(data, e)
		ev = e
	case TypeSendMessage:
		ev, err = parseSendMessage(base, data)
	case TypeCreateRobot:
		e := &CreateRobot{Base: base}
		err = unmarshalData(data, e)
		if e.VillaID == 0 {
			e.VillaID = base.Robot.VillaID
		}
		ev = e
	case TypeDeleteRobot:
		e := &DeleteRobot{Base: base}
		err = unmarshalData(data, e)
		if e.VillaID == 0 {
			e.VillaID = base.Robot.VillaID
		}
		ev = e
	case TypeAddQuickEmoticon:
		e := &AddQuickEmoticon{Base: base}
		err = unmarshalData(data, e)
		ev = e
	case TypeAuditCallback:
		e := &AuditCallback{Base: base}
		err = unmarshalData(data, e)
		ev = e
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrPayloadInvalid, raw.Type, err)
	}
	return ev, nil
}

// eventData picks the EventData entry named after the event type, or the
// only entry when the name differs.
func eventData(raw rawEvent) json.RawMessage {
	entries := raw.ExtendData.EventData
	if data, ok := entries[raw.Type.String()]; ok {
		return data
	}
	if len(entries) == 1 {
		for _, data := range entries {
			return data
		}
	}
	return nil
}

func unmarshalData(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func parseSendMessage(base Base, data json.RawMessage) (*SendMessage, error) {
	if len(data) == 0 {
		return nil, errors.New("missing event data")
	}
	var raw rawSendMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	// content is usually a JSON document inside a string
	contentJSON := []byte(raw.Content)
	var s string
	if err := json.Unmarshal(raw.Content, &s); err == nil {
		contentJSON = []byte(s)
	}
	var content model.MessageContentInfo
	if err := json.Unmarshal(contentJSON, &content); err != nil {
		return nil, fmt.Errorf("content: %w", err)
	}

	msg, err := codec.Decode(&content, raw.VillaID)
	if err != nil {
		return nil, fmt.Errorf("content: %w", err)
	}

	return &SendMessage{
		Base:       base,
		Content:    content,
		FromUserID: raw.FromUserID,
		SendAt:     raw.SendAt,
		RoomID:     raw.RoomID,
		ObjectName: raw.ObjectName,
		Nickname:   raw.Nickname,
		MsgUID:     raw.MsgUID,
		BotMsgID:   raw.BotMsgID,
		VillaID:    raw.VillaID,
		Message:    msg,
	}, nil
}
