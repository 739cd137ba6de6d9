package model

import "encoding/json"

// APIResponse is the envelope of every REST response
type APIResponse struct {
	Retcode int             `json:"retcode"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Command is a preset bot command
type Command struct {
	Name string `json:"name"`
	Desc string `json:"desc,omitempty"`
}

// Template describes the bot as configured on the platform
type Template struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Desc     string    `json:"desc,omitempty"`
	Icon     string    `json:"icon"`
	Commands []Command `json:"commands,omitempty"`
}

// Robot is the bot instance an event was delivered to
type Robot struct {
	VillaID  int64    `json:"villa_id"`
	Template Template `json:"template"`
}

// BotMemberAccessInfo is returned by checkMemberBotAccessToken
type BotMemberAccessInfo struct {
	UID               int64  `json:"uid"`
	VillaID           int64  `json:"villa_id"`
	MemberAccessToken string `json:"member_access_token"`
	BotTplID          string `json:"bot_tpl_id"`
}

// CheckMemberBotAccessTokenReturn pairs access info with the member
type CheckMemberBotAccessTokenReturn struct {
	AccessInfo BotMemberAccessInfo `json:"access_info"`
	Member     Member              `json:"member"`
}

// Villa is a community
type Villa struct {
	VillaID        int64    `json:"villa_id"`
	Name           string   `json:"name"`
	VillaAvatarURL string   `json:"villa_avatar_url"`
	OwnerUID       int64    `json:"onwer_uid"` // sic, platform spelling
	IsOfficial     bool     `json:"is_official"`
	Introduce      string   `json:"introduce"`
	CategoryID     int64    `json:"category_id"`
	Tags           []string `json:"tags"`
}

// MemberBasic is the public profile of a member
type MemberBasic struct {
	UID       int64  `json:"uid"`
	Nickname  string `json:"nickname"`
	Introduce string `json:"introduce"`
	Avatar    int64  `json:"avatar"`
	AvatarURL string `json:"avatar_url"`
}

// Member is a villa member
type Member struct {
	Basic      MemberBasic  `json:"basic"`
	RoleIDList []int64      `json:"role_id_list"`
	JoinedAt   int64        `json:"joined_at"`
	RoleList   []MemberRole `json:"role_list"`
}

// MemberListReturn is one page of villa members
type MemberListReturn struct {
	List       []Member `json:"list"`
	NextOffset int64    `json:"next_offset"`
}

// RoomType of a room
type RoomType string

const (
	RoomTypeChat    RoomType = "BOT_PLATFORM_ROOM_TYPE_CHAT_ROOM"
	RoomTypePost    RoomType = "BOT_PLATFORM_ROOM_TYPE_POST_ROOM"
	RoomTypeScene   RoomType = "BOT_PLATFORM_ROOM_TYPE_SCENE_ROOM"
	RoomTypeLive    RoomType = "BOT_PLATFORM_ROOM_TYPE_LIVE_ROOM"
	RoomTypeInvalid RoomType = "BOT_PLATFORM_ROOM_TYPE_INVALID"
)

// RoomDefaultNotifyType of a room
type RoomDefaultNotifyType string

const (
	NotifyTypeNotify  RoomDefaultNotifyType = "BOT_PLATFORM_DEFAULT_NOTIFY_TYPE_NOTIFY"
	NotifyTypeIgnore  RoomDefaultNotifyType = "BOT_PLATFORM_DEFAULT_NOTIFY_TYPE_IGNORE"
	NotifyTypeInvalid RoomDefaultNotifyType = "BOT_PLATFORM_DEFAULT_NOTIFY_TYPE_INVALID"
)

// SendMsgAuthRange says who may post in a room
type SendMsgAuthRange struct {
	IsAllSendMsg bool    `json:"is_all_send_msg"`
	Roles        []int64 `json:"roles"`
}

// Room is a room of a villa
type Room struct {
	RoomID                int64                 `json:"room_id"`
	RoomName              string                `json:"room_name"`
	RoomType              RoomType              `json:"room_type"`
	GroupID               int64                 `json:"group_id"`
	RoomDefaultNotifyType RoomDefaultNotifyType `json:"room_default_notify_type,omitempty"`
	SendMsgAuthRange      *SendMsgAuthRange     `json:"send_msg_auth_range,omitempty"`
}

// GroupRoom is a group with its rooms
type GroupRoom struct {
	GroupID   int64  `json:"group_id"`
	GroupName string `json:"group_name"`
	RoomList  []Room `json:"room_list"`
}

// Group is a room group
type Group struct {
	GroupID   int64  `json:"group_id"`
	GroupName string `json:"group_name"`
}

// RoomSort is one entry of sortRoomList
type RoomSort struct {
	RoomID  int64 `json:"room_id"`
	GroupID int64 `json:"group_id"`
}

// RoleType of a member role
type RoleType string

const (
	RoleTypeAllMember RoleType = "MEMBER_ROLE_TYPE_ALL_MEMBER"
	RoleTypeAdmin     RoleType = "MEMBER_ROLE_TYPE_ADMIN"
	RoleTypeOwner     RoleType = "MEMBER_ROLE_TYPE_OWNER"
	RoleTypeCustom    RoleType = "MEMBER_ROLE_TYPE_CUSTOM"
	RoleTypeUnknown   RoleType = "MEMBER_ROLE_TYPE_UNKNOWN"
)

// Permission key of a role
type Permission string

const (
	PermissionMentionAll                Permission = "mention_all"
	PermissionRecallMessage             Permission = "recall_message"
	PermissionPinMessage                Permission = "pin_message"
	PermissionManageMemberRole          Permission = "manage_member_role"
	PermissionEditVillaInfo             Permission = "edit_villa_info"
	PermissionManageGroupAndRoom        Permission = "manage_group_and_room"
	PermissionVillaSilence              Permission = "villa_silence"
	PermissionBlackOut                  Permission = "black_out"
	PermissionHandleApply               Permission = "handle_apply"
	PermissionManageChatRoom            Permission = "manage_chat_room"
	PermissionViewDataBoard             Permission = "view_data_board"
	PermissionManageCustomEvent         Permission = "manage_custom_event"
	PermissionLiveRoomOrder             Permission = "live_room_order"
	PermissionManageSpotlightCollection Permission = "manage_spotlight_collection"
)

// Color is one of the role colors the platform accepts
type Color string

const (
	ColorGrey   Color = "#6173AB"
	ColorPink   Color = "#F485D8"
	ColorRed    Color = "#F47884"
	ColorOrange Color = "#FFA54B"
	ColorGreen  Color = "#7ED321"
	ColorBlue   Color = "#59A1EA"
	ColorPurple Color = "#977EE1"
)

// MemberRole is a role as listed on a member
type MemberRole struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	VillaID     int64        `json:"villa_id"`
	Color       string       `json:"color"`
	WebColor    string       `json:"web_color"`
	Permissions []Permission `json:"permissions,omitempty"`
	RoleType    RoleType     `json:"role_type"`
}

// PermissionDetail describes one permission of a role
type PermissionDetail struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Describe string `json:"describe"`
}

// MemberRoleDetail is a role with its member count
type MemberRoleDetail struct {
	ID          int64              `json:"id"`
	Name        string             `json:"name"`
	Color       string             `json:"color"`
	VillaID     int64              `json:"villa_id"`
	RoleType    RoleType           `json:"role_type"`
	MemberNum   int64              `json:"member_num"`
	Permissions []PermissionDetail `json:"permissions,omitempty"`
}

// Emoticon is a reaction emoticon
type Emoticon struct {
	EmoticonID   int64  `json:"emoticon_id"`
	DescribeText string `json:"describe_text"`
	Icon         string `json:"icon"`
}
