// Package message defines the rich message model handlers compose and receive.
//
// A Message is an ordered sequence of segments. Segment is a closed set of
// value types; a switch over the concrete types is exhaustive when it covers
// the eleven variants declared here.
package message

import (
	"fmt"

	"github.com/keepmind9/villabot/pkg/constants"
)

// Kind tags a segment variant
type Kind string

const (
	KindText         Kind = "text"
	KindMentionUser  Kind = "mention_user"
	KindMentionAll   Kind = "mention_all"
	KindMentionRobot Kind = "mention_robot"
	KindRoomLink     Kind = "room_link"
	KindLink         Kind = "link"
	KindImage        Kind = "image"
	KindQuote        Kind = "quote"
	KindPost         Kind = "post"
	KindPreviewLink  Kind = "preview_link"
	KindBadge        Kind = "badge"
)

// Segment is one atomic unit of message content
type Segment interface {
	Kind() Kind
	sealed()
}

// Text is a literal text run
type Text struct {
	Content string
}

// MentionUser mentions a villa member. When UserName is empty the name is
// looked up in VillaID before sending.
type MentionUser struct {
	UserID   int64
	UserName string
	VillaID  int64
}

// MentionAll mentions every member of the room
type MentionAll struct {
	ShowText string
}

// MentionRobot mentions another bot
type MentionRobot struct {
	BotID   string
	BotName string
}

// RoomLink links to a room; the room name is resolved when sending
type RoomLink struct {
	VillaID int64
	RoomID  int64
}

// Link is a hyperlink rendered as ShowText
type Link struct {
	URL                    string
	ShowText               string
	RequiresBotAccessToken bool
}

// Image is an image attachment. Width and Height are sent only when both are set.
type Image struct {
	URL      string
	Width    int
	Height   int
	FileSize int
}

// Quote references an earlier message. Only the first quote of a message is sent.
type Quote struct {
	QuotedMessageID string
	QuotedSendTime  int64
}

// Post forwards a community post. PostID may be a post URL; the trailing path
// segment is used and must be numeric. A post is always sent alone.
type Post struct {
	PostID string
}

// PreviewLink is a link preview card
type PreviewLink struct {
	IconURL        string
	ImageURL       string
	IsInternalLink bool
	Title          string
	Content        string
	URL            string
	SourceName     string
}

// Badge is shown below the message body and cannot be sent on its own
type Badge struct {
	IconURL string
	Text    string
	URL     string
}

func (Text) Kind() Kind         { return KindText }
func (MentionUser) Kind() Kind  { return KindMentionUser }
func (MentionAll) Kind() Kind   { return KindMentionAll }
func (MentionRobot) Kind() Kind { return KindMentionRobot }
func (RoomLink) Kind() Kind     { return KindRoomLink }
func (Link) Kind() Kind         { return KindLink }
func (Image) Kind() Kind        { return KindImage }
func (Quote) Kind() Kind        { return KindQuote }
func (Post) Kind() Kind         { return KindPost }
func (PreviewLink) Kind() Kind  { return KindPreviewLink }
func (Badge) Kind() Kind        { return KindBadge }

func (Text) sealed()         {}
func (MentionUser) sealed()  {}
func (MentionAll) sealed()   {}
func (MentionRobot) sealed() {}
func (RoomLink) sealed()     {}
func (Link) sealed()         {}
func (Image) sealed()        {}
func (Quote) sealed()        {}
func (Post) sealed()         {}
func (PreviewLink) sealed()  {}
func (Badge) sealed()        {}

// NewMentionUser mentions a user whose display name is already known
func NewMentionUser(userID int64, userName string) MentionUser {
	return MentionUser{UserID: userID, UserName: userName}
}

// NewMentionUserInVilla mentions a user whose name will be looked up in villaID
func NewMentionUserInVilla(userID, villaID int64) MentionUser {
	return MentionUser{UserID: userID, VillaID: villaID}
}

// NewMentionAll returns an @all mention. An empty showText uses the platform default.
func NewMentionAll(showText string) MentionAll {
	if showText == "" {
		showText = constants.DefaultMentionAllText
	}
	return MentionAll{ShowText: showText}
}

// NewLink returns a hyperlink. An empty showText displays the url itself.
func NewLink(url, showText string, requiresBotAccessToken bool) Link {
	if showText == "" {
		showText = url
	}
	return Link{URL: url, ShowText: showText, RequiresBotAccessToken: requiresBotAccessToken}
}

// Validate reports whether the mention can be rendered
func (m MentionUser) Validate() error {
	if m.UserName == "" && m.VillaID == 0 {
		return fmt.Errorf("mention of user %d needs a user name or a villa id", m.UserID)
	}
	return nil
}
