package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/keepmind9/villabot/internal/model"
	"github.com/keepmind9/villabot/pkg/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capture records the last request the fake platform saw
type capture struct {
	mu     sync.Mutex
	method string
	path   string
	header http.Header
	body   map[string]any
}

func (c *capture) snapshot() (string, string, http.Header, map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.method, c.path, c.header, c.body
}

func newPlatform(t *testing.T, respond func(w http.ResponseWriter, r *http.Request)) (*Client, *capture) {
	t.Helper()
	got := &capture{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		got.mu.Lock()
		got.method, got.path, got.header, got.body = r.Method, r.URL.Path, r.Header.Clone(), body
		got.mu.Unlock()
		respond(w, r)
	}))
	t.Cleanup(srv.Close)
	return NewClient("bot_abc", "deadbeef", WithBaseURL(srv.URL+"/platform")), got
}

func reply(data string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"retcode":0,"message":"OK","data":`+data+`}`)
	}
}

func TestClient_Headers(t *testing.T) {
	c := NewClient("bot_abc", "deadbeef")

	h := c.Headers(42)
	assert.Equal(t, "bot_abc", h.Get(constants.HeaderBotID))
	assert.Equal(t, "deadbeef", h.Get(constants.HeaderBotSecret))
	assert.Equal(t, "42", h.Get(constants.HeaderBotVillaID))

	h = c.Headers(0)
	vals, ok := h[http.CanonicalHeaderKey(constants.HeaderBotVillaID)]
	require.True(t, ok, "villa header is always present")
	assert.Equal(t, []string{""}, vals)
}

func TestClient_GetSendsJSONBody(t *testing.T) {
	c, got := newPlatform(t, reply(`{"member":{"basic":{"uid":7,"nickname":"Carol"}}}`))

	_, err := c.GetMember(context.Background(), 100, 7)
	require.NoError(t, err)

	method, path, header, body := got.snapshot()
	assert.Equal(t, http.MethodGet, method)
	assert.Equal(t, "/platform/getMember", path)
	assert.Equal(t, "100", header.Get(constants.HeaderBotVillaID))
	assert.Equal(t, "application/json", header.Get("Content-Type"))
	assert.Equal(t, map[string]any{"uid": float64(7)}, body)
}

func TestClient_GetMember(t *testing.T) {
	c, _ := newPlatform(t, reply(`{"member":{"basic":{"uid":7,"nickname":"Carol"},"role_id_list":[1,2]}}`))

	member, err := c.GetMember(context.Background(), 100, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), member.Basic.UID)
	assert.Equal(t, "Carol", member.Basic.Nickname)
}

func TestClient_EmptyBodyIsObject(t *testing.T) {
	c, got := newPlatform(t, reply(`{"list":[]}`))

	_, err := c.GetAllEmoticons(context.Background())
	require.NoError(t, err)

	_, path, header, body := got.snapshot()
	assert.Equal(t, "/platform/getAllEmoticons", path)
	assert.Equal(t, "", header.Get(constants.HeaderBotVillaID))
	assert.NotNil(t, body)
	assert.Empty(t, body)
}

func TestClient_SendMessage(t *testing.T) {
	c, got := newPlatform(t, reply(`{"bot_msg_id":"m-1"}`))

	id, err := c.SendMessage(context.Background(), 100, 5, constants.ObjectNameText, `{"content":{"text":"hi"}}`)
	require.NoError(t, err)
	assert.Equal(t, "m-1", id)

	method, path, _, body := got.snapshot()
	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "/platform/sendMessage", path)
	assert.Equal(t, float64(5), body["room_id"])
	assert.Equal(t, "MHY:Text", body["object_name"])
	assert.Equal(t, `{"content":{"text":"hi"}}`, body["msg_content"])
}

func TestClient_ResultKeys(t *testing.T) {
	ctx := context.Background()

	c, got := newPlatform(t, reply(`{"group_id":9}`))
	groupID, err := c.CreateGroup(ctx, 1, "news")
	require.NoError(t, err)
	assert.Equal(t, int64(9), groupID)
	_, _, _, body := got.snapshot()
	assert.Equal(t, "news", body["group_name"])

	c, _ = newPlatform(t, reply(`{"room":{"room_id":5,"room_name":"lobby"}}`))
	room, err := c.GetRoom(ctx, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, "lobby", room.RoomName)

	c, _ = newPlatform(t, reply(`{"new_url":"https://img.example/x.png"}`))
	url, err := c.TransferImage(ctx, 1, "https://elsewhere/x.png")
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/x.png", url)

	c, got = newPlatform(t, reply(`{"audit_id":"a-1"}`))
	auditID, err := c.Audit(ctx, 1, AuditRequest{AuditContent: "text", UID: 3})
	require.NoError(t, err)
	assert.Equal(t, "a-1", auditID)
	_, _, _, body = got.snapshot()
	assert.Equal(t, "text", body["audit_content"])
	assert.NotContains(t, body, "room_id")
}

func TestClient_CreateMemberRoleSendsEmptyPermissions(t *testing.T) {
	c, got := newPlatform(t, reply(`{"id":11}`))

	id, err := c.CreateMemberRole(context.Background(), 1, "mods", model.ColorBlue, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(11), id)

	_, _, _, body := got.snapshot()
	assert.Equal(t, []any{}, body["permissions"])
}

func TestClient_RetcodeMapping(t *testing.T) {
	tests := []struct {
		retcode int
		kind    error
	}{
		{RetcodeUnknownServerError, ErrUnknownServerError},
		{RetcodeInvalidRequest, ErrInvalidRequest},
		{RetcodeInsufficientPermission, ErrInsufficientPermission},
		{RetcodeBotNotAdded, ErrBotNotAdded},
		{RetcodePermissionDenied, ErrPermissionDenied},
		{RetcodeInvalidMemberBotAccessToken, ErrInvalidMemberBotAccessToken},
		{RetcodeInvalidBotAuthInfo, ErrInvalidBotAuthInfo},
		{RetcodeUnsupportedMsgType, ErrUnsupportedMsgType},
		{123456, nil},
	}
	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.retcode), func(t *testing.T) {
			c, _ := newPlatform(t, func(w http.ResponseWriter, _ *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]any{"retcode": tt.retcode, "message": "nope", "data": map[string]any{}})
			})

			err := c.DeleteRoom(context.Background(), 1, 5)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrActionFailed)
			if tt.kind != nil {
				assert.ErrorIs(t, err, tt.kind)
			}

			var af *ActionFailedError
			require.True(t, errors.As(err, &af))
			assert.Equal(t, "deleteRoom", af.API)
			assert.Equal(t, "nope", af.Message)
			assert.Equal(t, http.StatusOK, af.StatusCode)

			code, ok := Retcode(err)
			assert.True(t, ok)
			assert.Equal(t, tt.retcode, code)
		})
	}
}

func TestClient_NonJSONResponse(t *testing.T) {
	c, _ := newPlatform(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "<html>bad gateway</html>")
	})

	err := c.DeleteGroup(context.Background(), 1, 2)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrActionFailed)
	_, ok := Retcode(err)
	assert.False(t, ok)
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient("bot_abc", "s", WithBaseURL(srv.URL), WithTimeout(50*time.Millisecond))
	_, err := c.GetVilla(context.Background(), 1)
	assert.Error(t, err)
}

// fakeLookup counts how often the platform is asked
type fakeLookup struct {
	members atomic.Int32
	rooms   atomic.Int32
	delay   time.Duration
	fail    bool
}

func (f *fakeLookup) GetMember(_ context.Context, _, uid int64) (*model.Member, error) {
	f.members.Add(1)
	time.Sleep(f.delay)
	if f.fail {
		return nil, newActionFailedError("getMember", 200, RetcodeBotNotAdded, "not added", nil)
	}
	return &model.Member{Basic: model.MemberBasic{UID: uid, Nickname: "Carol"}}, nil
}

func (f *fakeLookup) GetRoom(_ context.Context, _, roomID int64) (*model.Room, error) {
	f.rooms.Add(1)
	return &model.Room{RoomID: roomID, RoomName: "lobby"}, nil
}

func TestCachedDirectory_CachesNames(t *testing.T) {
	lookup := &fakeLookup{}
	dir := NewCachedDirectory(lookup, time.Minute, 0)
	defer dir.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		name, err := dir.MemberName(ctx, 1, 7)
		require.NoError(t, err)
		assert.Equal(t, "Carol", name)
	}
	assert.Equal(t, int32(1), lookup.members.Load())

	// villas are cached separately
	_, err := dir.MemberName(ctx, 2, 7)
	require.NoError(t, err)
	assert.Equal(t, int32(2), lookup.members.Load())

	name, err := dir.RoomName(ctx, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, "lobby", name)
	_, _ = dir.RoomName(ctx, 1, 5)
	assert.Equal(t, int32(1), lookup.rooms.Load())

	dir.Invalidate()
	_, _ = dir.RoomName(ctx, 1, 5)
	assert.Equal(t, int32(2), lookup.rooms.Load())
}

func TestCachedDirectory_CoalescesConcurrentMisses(t *testing.T) {
	lookup := &fakeLookup{delay: 50 * time.Millisecond}
	dir := NewCachedDirectory(lookup, time.Minute, 10)
	defer dir.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name, err := dir.MemberName(context.Background(), 1, 7)
			assert.NoError(t, err)
			assert.Equal(t, "Carol", name)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), lookup.members.Load())
}

func TestCachedDirectory_ErrorsAreNotCached(t *testing.T) {
	lookup := &fakeLookup{fail: true}
	dir := NewCachedDirectory(lookup, time.Minute, 10)
	defer dir.Close()

	_, err := dir.MemberName(context.Background(), 1, 7)
	assert.ErrorIs(t, err, ErrBotNotAdded)
	_, err = dir.MemberName(context.Background(), 1, 7)
	assert.Error(t, err)
	assert.Equal(t, int32(2), lookup.members.Load())
}
