package event

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/keepmind9/villabot/internal/message"
	"github.com/keepmind9/villabot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const robotJSON = `{"villa_id":100,"template":{"id":"bot_abc","name":"helper","desc":"d","icon":"i","commands":[{"name":"/help","desc":"show help"}]}}`

func payload(t *testing.T, typ Type, name string, data any) []byte {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return []byte(fmt.Sprintf(`{"robot":%s,"type":%d,"id":"evt-1","created_at":1,"send_at":2,"extend_data":{"EventData":{%q:%s}}}`,
		robotJSON, int(typ), name, raw))
}

func TestParse_SendMessage(t *testing.T) {
	content := `{"content":{"text":"@helper hello world","entities":[{"offset":0,"length":8,"entity":{"type":"mentioned_robot","bot_id":"bot_abc"}}]},"user":{"portraitUri":"p","name":"Alice","id":"42","portrait":"p","alias":""}}`

	tests := []struct {
		name    string
		content any
	}{
		{"content as string", content},
		{"content as object", json.RawMessage(content)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Parse(payload(t, TypeSendMessage, "SendMessage", map[string]any{
				"content":      tt.content,
				"from_user_id": 42,
				"send_at":      1690000000,
				"room_id":      5,
				"object_name":  1,
				"nickname":     "Alice",
				"msg_uid":      "m-1",
				"bot_msg_id":   "",
				"villa_id":     100,
			}))
			require.NoError(t, err)

			msg, ok := ev.(*SendMessage)
			require.True(t, ok)
			assert.Equal(t, TypeSendMessage, msg.Type())
			assert.Equal(t, "bot_abc", msg.BotID())
			assert.Equal(t, "evt-1", msg.ID)
			assert.Equal(t, int64(2), msg.Base.SendAt)
			assert.Equal(t, int64(1690000000), msg.SendAt)
			assert.Equal(t, int64(42), msg.FromUserID)
			assert.Equal(t, int64(5), msg.RoomID)
			assert.Equal(t, int64(100), msg.VillaID)
			assert.Equal(t, "m-1", msg.MsgUID)
			assert.Equal(t, "Alice", msg.Content.User.Name)
			assert.Equal(t, []message.Segment{
				message.MentionRobot{BotID: "bot_abc", BotName: "helper"},
				message.Text{Content: "hello world"},
			}, msg.Message.Segments())
			assert.Equal(t, "hello world", msg.Message.PlainText())
			assert.Contains(t, msg.Description(), "hello world")
			assert.Equal(t, "SendMessage(evt-1)", msg.Name())
			assert.Equal(t, "/help", msg.RobotInfo().Template.Commands[0].Name)
		})
	}
}

func TestParse_OtherEvents(t *testing.T) {
	tests := []struct {
		name     string
		typ      Type
		data     any
		expected Event
	}{
		{
			name: "join villa",
			typ:  TypeJoinVilla,
			data: map[string]any{"join_uid": 7, "join_user_nickname": "Bob", "join_at": 3},
			expected: &JoinVilla{JoinUID: 7, JoinUserNickname: "Bob", JoinAt: 3},
		},
		{
			name:     "create robot",
			typ:      TypeCreateRobot,
			data:     map[string]any{"villa_id": 100},
			expected: &CreateRobot{VillaID: 100},
		},
		{
			name:     "delete robot",
			typ:      TypeDeleteRobot,
			data:     map[string]any{"villa_id": 100},
			expected: &DeleteRobot{VillaID: 100},
		},
		{
			name: "add quick emoticon",
			typ:  TypeAddQuickEmoticon,
			data: map[string]any{
				"villa_id": 100, "room_id": 5, "uid": 7, "emoticon_id": 1,
				"emoticon": "like", "msg_uid": "m", "bot_msg_id": "b", "is_cancel": true,
			},
			expected: &AddQuickEmoticon{
				VillaID: 100, RoomID: 5, UID: 7, EmoticonID: 1,
				Emoticon: "like", MsgUID: "m", BotMsgID: "b", IsCancel: true,
			},
		},
		{
			name: "audit callback",
			typ:  TypeAuditCallback,
			data: map[string]any{
				"audit_id": "a", "bot_tpl_id": "bot_abc", "villa_id": 100, "room_id": 5,
				"user_id": 7, "pass_through": "x", "audit_result": 2,
			},
			expected: &AuditCallback{
				AuditID: "a", BotTplID: "bot_abc", VillaID: 100, RoomID: 5,
				UserID: 7, PassThrough: "x", AuditResult: AuditReject,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Parse(payload(t, tt.typ, tt.typ.String(), tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.typ, ev.Type())
			assert.Equal(t, "bot_abc", ev.BotID())
			assert.NotEmpty(t, ev.Description())

			// compare without the shared header
			switch e := ev.(type) {
			case *JoinVilla:
				e.Base = Base{}
			case *CreateRobot:
				e.Base = Base{}
			case *DeleteRobot:
				e.Base = Base{}
			case *AddQuickEmoticon:
				e.Base = Base{}
			case *AuditCallback:
				e.Base = Base{}
			}
			assert.Equal(t, tt.expected, ev)
		})
	}
}

func TestParse_DeleteRobotFallsBackToRobotVilla(t *testing.T) {
	body := []byte(`{"robot":` + robotJSON + `,"type":4,"id":"e","extend_data":{"EventData":{}}}`)

	ev, err := Parse(body)
	require.NoError(t, err)
	assert.Equal(t, int64(100), ev.(*DeleteRobot).VillaID)
}

func TestParse_EventDataUnderOtherName(t *testing.T) {
	ev, err := Parse(payload(t, TypeCreateRobot, "Whatever", map[string]any{"villa_id": 9}))
	require.NoError(t, err)
	assert.Equal(t, int64(9), ev.(*CreateRobot).VillaID)
}

func TestParse_InvalidPayloads(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{"not json", []byte(`{`)},
		{"unknown type", []byte(`{"robot":` + robotJSON + `,"type":99}`)},
		{"missing robot", []byte(`{"type":1}`)},
		{"send message without data", []byte(`{"robot":` + robotJSON + `,"type":2}`)},
		{"send message with bad content", payload(t, TypeSendMessage, "SendMessage", map[string]any{"content": "not json"})},
		{"send message with unknown content", payload(t, TypeSendMessage, "SendMessage", map[string]any{"content": `{"content":{"x":1}}`})},
		{"wrong field type", payload(t, TypeJoinVilla, "JoinVilla", map[string]any{"join_uid": "abc"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.body)
			assert.ErrorIs(t, err, ErrPayloadInvalid)
		})
	}
}

func TestParseBody(t *testing.T) {
	inner := payload(t, TypeCreateRobot, "CreateRobot", map[string]any{"villa_id": 1})

	ev, err := ParseBody([]byte(`{"event":` + string(inner) + `}`))
	require.NoError(t, err)
	assert.Equal(t, TypeCreateRobot, ev.Type())

	for _, body := range []string{`{}`, `{"event":null}`, `[]`, ``} {
		_, err := ParseBody([]byte(body))
		assert.ErrorIs(t, err, ErrPayloadInvalid, body)
	}
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "AuditCallback", TypeAuditCallback.String())
	assert.Equal(t, "Type(42)", Type(42).String())
	assert.False(t, Type(0).Valid())
	assert.Len(t, Types(), 6)
	assert.Equal(t, "pass", AuditPass.String())
}

func TestSendMessageDescriptionWithoutMessage(t *testing.T) {
	e := &SendMessage{Base: Base{Robot: model.Robot{}}}
	assert.NotPanics(t, func() { _ = e.Description() })
}
