package api

import (
	"context"
	"net/http"

	"github.com/keepmind9/villabot/internal/model"
)

// CheckMemberBotAccessToken validates a member's bot access token. villaID may be zero.
func (c *Client) CheckMemberBotAccessToken(ctx context.Context, villaID int64, token string) (*model.CheckMemberBotAccessTokenReturn, error) {
	var out model.CheckMemberBotAccessTokenReturn
	if err := c.call(ctx, http.MethodGet, "checkMemberBotAccessToken", villaID, map[string]any{"token": token}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetVilla returns villa information
func (c *Client) GetVilla(ctx context.Context, villaID int64) (*model.Villa, error) {
	var out struct {
		Villa model.Villa `json:"villa"`
	}
	if err := c.call(ctx, http.MethodGet, "getVilla", villaID, nil, &out); err != nil {
		return nil, err
	}
	return &out.Villa, nil
}

// GetMember returns a member of a villa
func (c *Client) GetMember(ctx context.Context, villaID, uid int64) (*model.Member, error) {
	var out struct {
		Member model.Member `json:"member"`
	}
	if err := c.call(ctx, http.MethodGet, "getMember", villaID, map[string]any{"uid": uid}, &out); err != nil {
		return nil, err
	}
	return &out.Member, nil
}

// GetVillaMembers returns one page of villa members
func (c *Client) GetVillaMembers(ctx context.Context, villaID, offset int64, size int) (*model.MemberListReturn, error) {
	var out model.MemberListReturn
	if err := c.call(ctx, http.MethodGet, "getVillaMembers", villaID, map[string]any{"offset": offset, "size": size}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteVillaMember removes a member from a villa
func (c *Client) DeleteVillaMember(ctx context.Context, villaID, uid int64) error {
	return c.call(ctx, http.MethodPost, "deleteVillaMember", villaID, map[string]any{"uid": uid}, nil)
}

// PinMessage pins a message, or unpins it when isCancel is set
func (c *Client) PinMessage(ctx context.Context, villaID int64, msgUID string, isCancel bool, roomID, sendAt int64) error {
	return c.call(ctx, http.MethodPost, "pinMessage", villaID, map[string]any{
		"msg_uid":   msgUID,
		"is_cancel": isCancel,
		"room_id":   roomID,
		"send_at":   sendAt,
	}, nil)
}

// RecallMessage recalls a message
func (c *Client) RecallMessage(ctx context.Context, villaID int64, msgUID string, roomID, msgTime int64) error {
	return c.call(ctx, http.MethodPost, "recallMessage", villaID, map[string]any{
		"msg_uid":  msgUID,
		"msg_time": msgTime,
		"room_id":  roomID,
	}, nil)
}

// SendMessage sends serialized MessageContentInfo and returns the bot message id
func (c *Client) SendMessage(ctx context.Context, villaID, roomID int64, objectName, msgContent string) (string, error) {
	var out struct {
		BotMsgID string `json:"bot_msg_id"`
	}
	err := c.call(ctx, http.MethodPost, "sendMessage", villaID, map[string]any{
		"room_id":     roomID,
		"object_name": objectName,
		"msg_content": msgContent,
	}, &out)
	return out.BotMsgID, err
}

// CreateGroup creates a room group and returns its id
func (c *Client) CreateGroup(ctx context.Context, villaID int64, groupName string) (int64, error) {
	var out struct {
		GroupID int64 `json:"group_id"`
	}
	err := c.call(ctx, http.MethodPost, "createGroup", villaID, map[string]any{"group_name": groupName}, &out)
	return out.GroupID, err
}

// EditGroup renames a room group
func (c *Client) EditGroup(ctx context.Context, villaID, groupID int64, groupName string) error {
	return c.call(ctx, http.MethodPost, "editGroup", villaID, map[string]any{
		"group_id":   groupID,
		"group_name": groupName,
	}, nil)
}

// DeleteGroup deletes a room group
func (c *Client) DeleteGroup(ctx context.Context, villaID, groupID int64) error {
	return c.call(ctx, http.MethodPost, "deleteGroup", villaID, map[string]any{"group_id": groupID}, nil)
}

// GetGroupList lists the room groups of a villa
func (c *Client) GetGroupList(ctx context.Context, villaID int64) ([]model.Group, error) {
	var out struct {
		List []model.Group `json:"list"`
	}
	err := c.call(ctx, http.MethodGet, "getGroupList", villaID, nil, &out)
	return out.List, err
}

// SortGroupList reorders the room groups of a villa
func (c *Client) SortGroupList(ctx context.Context, villaID int64, groupIDs []int64) error {
	return c.call(ctx, http.MethodPost, "sortGroupList", villaID, map[string]any{
		"villa_id":  villaID,
		"group_ids": groupIDs,
	}, nil)
}

// EditRoom renames a room
func (c *Client) EditRoom(ctx context.Context, villaID, roomID int64, roomName string) error {
	return c.call(ctx, http.MethodPost, "editRoom", villaID, map[string]any{
		"room_id":   roomID,
		"room_name": roomName,
	}, nil)
}

// DeleteRoom deletes a room
func (c *Client) DeleteRoom(ctx context.Context, villaID, roomID int64) error {
	return c.call(ctx, http.MethodPost, "deleteRoom", villaID, map[string]any{"room_id": roomID}, nil)
}

// GetRoom returns room information
func (c *Client) GetRoom(ctx context.Context, villaID, roomID int64) (*model.Room, error) {
	var out struct {
		Room model.Room `json:"room"`
	}
	if err := c.call(ctx, http.MethodGet, "getRoom", villaID, map[string]any{"room_id": roomID}, &out); err != nil {
		return nil, err
	}
	return &out.Room, nil
}

// GetVillaGroupRoomList lists every group of a villa with its rooms
func (c *Client) GetVillaGroupRoomList(ctx context.Context, villaID int64) ([]model.GroupRoom, error) {
	var out struct {
		List []model.GroupRoom `json:"list"`
	}
	err := c.call(ctx, http.MethodGet, "getVillaGroupRoomList", villaID, nil, &out)
	return out.List, err
}

// SortRoomList reorders rooms
func (c *Client) SortRoomList(ctx context.Context, villaID int64, rooms []model.RoomSort) error {
	return c.call(ctx, http.MethodPost, "sortRoomList", villaID, map[string]any{
		"villa_id":  villaID,
		"room_list": rooms,
	}, nil)
}

// OperateMemberToRole adds a member to a role, or removes it when isAdd is false
func (c *Client) OperateMemberToRole(ctx context.Context, villaID, roleID, uid int64, isAdd bool) error {
	return c.call(ctx, http.MethodPost, "operateMemberToRole", villaID, map[string]any{
		"role_id": roleID,
		"uid":     uid,
		"is_add":  isAdd,
	}, nil)
}

// CreateMemberRole creates a role and returns its id
func (c *Client) CreateMemberRole(ctx context.Context, villaID int64, name string, color model.Color, permissions []model.Permission) (int64, error) {
	var out struct {
		ID int64 `json:"id"`
	}
	err := c.call(ctx, http.MethodPost, "createMemberRole", villaID, map[string]any{
		"name":        name,
		"color":       color,
		"permissions": nonNil(permissions),
	}, &out)
	return out.ID, err
}

// EditMemberRole updates a role
func (c *Client) EditMemberRole(ctx context.Context, villaID, roleID int64, name string, color model.Color, permissions []model.Permission) error {
	return c.call(ctx, http.MethodPost, "editMemberRole", villaID, map[string]any{
		"id":          roleID,
		"name":        name,
		"color":       color,
		"permissions": nonNil(permissions),
	}, nil)
}

// DeleteMemberRole deletes a role
func (c *Client) DeleteMemberRole(ctx context.Context, villaID, roleID int64) error {
	return c.call(ctx, http.MethodPost, "deleteMemberRole", villaID, map[string]any{"id": roleID}, nil)
}

// GetMemberRoleInfo returns a role with its permissions
func (c *Client) GetMemberRoleInfo(ctx context.Context, villaID, roleID int64) (*model.MemberRoleDetail, error) {
	var out struct {
		Role model.MemberRoleDetail `json:"role"`
	}
	if err := c.call(ctx, http.MethodGet, "getMemberRoleInfo", villaID, map[string]any{"role_id": roleID}, &out); err != nil {
		return nil, err
	}
	return &out.Role, nil
}

// GetVillaMemberRoles lists the roles of a villa
func (c *Client) GetVillaMemberRoles(ctx context.Context, villaID int64) ([]model.MemberRoleDetail, error) {
	var out struct {
		List []model.MemberRoleDetail `json:"list"`
	}
	err := c.call(ctx, http.MethodGet, "getVillaMemberRoles", villaID, nil, &out)
	return out.List, err
}

// GetAllEmoticons lists every emoticon. The call is not scoped to a villa.
func (c *Client) GetAllEmoticons(ctx context.Context) ([]model.Emoticon, error) {
	var out struct {
		List []model.Emoticon `json:"list"`
	}
	err := c.call(ctx, http.MethodGet, "getAllEmoticons", 0, nil, &out)
	return out.List, err
}

// AuditRequest is the content submitted to Audit. Zero optional fields are sent as null.
type AuditRequest struct {
	AuditContent string `json:"audit_content"`
	PassThrough  string `json:"pass_through,omitempty"`
	RoomID       int64  `json:"room_id,omitempty"`
	UID          int64  `json:"uid,omitempty"`
}

// Audit submits content for review and returns the audit id. The result
// arrives later as an AuditCallback event.
func (c *Client) Audit(ctx context.Context, villaID int64, req AuditRequest) (string, error) {
	var out struct {
		AuditID string `json:"audit_id"`
	}
	err := c.call(ctx, http.MethodPost, "audit", villaID, req, &out)
	return out.AuditID, err
}

// TransferImage copies a third-party image to the platform image host and returns the new URL
func (c *Client) TransferImage(ctx context.Context, villaID int64, url string) (string, error) {
	var out struct {
		NewURL string `json:"new_url"`
	}
	err := c.call(ctx, http.MethodPost, "transferImage", villaID, map[string]any{"url": url}, &out)
	return out.NewURL, err
}

func nonNil(p []model.Permission) []model.Permission {
	if p == nil {
		return []model.Permission{}
	}
	return p
}
