package socket

import "time"

// ChannelType selects the kind of chat channel to join.
type ChannelType int

const (
	ChannelTypeUnspecified ChannelType = iota
	ChannelTypeRoom
	ChannelTypeDirectMessage
	ChannelTypeGroup
)

// UserPresence identifies one user session on a stream.
type UserPresence struct {
	UserID      string `json:"user_id,omitempty"`
	SessionID   string `json:"session_id,omitempty"`
	Username    string `json:"username,omitempty"`
	Persistence bool   `json:"persistence,omitempty"`
	Status      string `json:"status,omitempty"`
}

// Chat

type Channel struct {
	ID        string         `json:"id"`
	Presences []UserPresence `json:"presences,omitempty"`
	Self      UserPresence   `json:"self"`
	RoomName  string         `json:"room_name,omitempty"`
	GroupID   string         `json:"group_id,omitempty"`
	UserIDOne string         `json:"user_id_one,omitempty"`
	UserIDTwo string         `json:"user_id_two,omitempty"`
}

type ChannelJoin struct {
	Target      string      `json:"target"`
	Type        ChannelType `json:"type"`
	Persistence bool        `json:"persistence"`
	Hidden      bool        `json:"hidden"`
}

type ChannelLeave struct {
	ChannelID string `json:"channel_id"`
}

// ChannelMessage is a chat message pushed to channel members.
type ChannelMessage struct {
	ChannelID  string    `json:"channel_id"`
	MessageID  string    `json:"message_id"`
	Code       int       `json:"code,omitempty"`
	SenderID   string    `json:"sender_id,omitempty"`
	Username   string    `json:"username,omitempty"`
	Content    string    `json:"content,omitempty"`
	CreateTime time.Time `json:"create_time,omitempty"`
	UpdateTime time.Time `json:"update_time,omitempty"`
	Persistent bool      `json:"persistent,omitempty"`
	RoomName   string    `json:"room_name,omitempty"`
	GroupID    string    `json:"group_id,omitempty"`
	UserIDOne  string    `json:"user_id_one,omitempty"`
	UserIDTwo  string    `json:"user_id_two,omitempty"`
}

// ChannelMessageAck acknowledges a write, update or removal.
type ChannelMessageAck struct {
	ChannelID  string    `json:"channel_id"`
	MessageID  string    `json:"message_id"`
	Code       int       `json:"code,omitempty"`
	Username   string    `json:"username,omitempty"`
	CreateTime time.Time `json:"create_time,omitempty"`
	UpdateTime time.Time `json:"update_time,omitempty"`
	Persistent bool      `json:"persistent,omitempty"`
	RoomName   string    `json:"room_name,omitempty"`
	GroupID    string    `json:"group_id,omitempty"`
	UserIDOne  string    `json:"user_id_one,omitempty"`
	UserIDTwo  string    `json:"user_id_two,omitempty"`
}

type ChannelMessageSend struct {
	ChannelID string `json:"channel_id"`
	Content   string `json:"content"`
}

type ChannelMessageUpdate struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
	Content   string `json:"content"`
}

type ChannelMessageRemove struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
}

type ChannelPresenceEvent struct {
	ChannelID string         `json:"channel_id"`
	Joins     []UserPresence `json:"joins,omitempty"`
	Leaves    []UserPresence `json:"leaves,omitempty"`
	RoomName  string         `json:"room_name,omitempty"`
	GroupID   string         `json:"group_id,omitempty"`
	UserIDOne string         `json:"user_id_one,omitempty"`
	UserIDTwo string         `json:"user_id_two,omitempty"`
}

// ServerErrorPayload is the error envelope body sent by the server.
type ServerErrorPayload struct {
	Code    ErrorCode         `json:"code"`
	Message string            `json:"message"`
	Context map[string]string `json:"context,omitempty"`
}

// Matches

type Match struct {
	MatchID       string         `json:"match_id"`
	Authoritative bool           `json:"authoritative,omitempty"`
	Label         string         `json:"label,omitempty"`
	Size          int            `json:"size,omitempty"`
	Presences     []UserPresence `json:"presences,omitempty"`
	Self          UserPresence   `json:"self"`
}

type MatchCreate struct{}

// MatchData is match state relayed from another player or the match handler.
type MatchData struct {
	MatchID  string       `json:"match_id"`
	Presence UserPresence `json:"presence"`
	OpCode   int64        `json:"op_code,string"`
	Data     []byte       `json:"data,omitempty"`
	Reliable bool         `json:"reliable,omitempty"`
}

type MatchDataSend struct {
	MatchID   string         `json:"match_id"`
	OpCode    int64          `json:"op_code,string"`
	Data      []byte         `json:"data,omitempty"`
	Presences []UserPresence `json:"presences,omitempty"`
	Reliable  bool           `json:"reliable,omitempty"`
}

// MatchJoin joins either by match id or by matchmaker token.
type MatchJoin struct {
	MatchID  string            `json:"match_id,omitempty"`
	Token    string            `json:"token,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type MatchLeave struct {
	MatchID string `json:"match_id"`
}

type MatchPresenceEvent struct {
	MatchID string         `json:"match_id"`
	Joins   []UserPresence `json:"joins,omitempty"`
	Leaves  []UserPresence `json:"leaves,omitempty"`
}

// Matchmaker

type MatchmakerAdd struct {
	MinCount          int                `json:"min_count"`
	MaxCount          int                `json:"max_count"`
	Query             string             `json:"query"`
	StringProperties  map[string]string  `json:"string_properties,omitempty"`
	NumericProperties map[string]float64 `json:"numeric_properties,omitempty"`
}

type MatchmakerUser struct {
	Presence          UserPresence       `json:"presence"`
	PartyID           string             `json:"party_id,omitempty"`
	StringProperties  map[string]string  `json:"string_properties,omitempty"`
	NumericProperties map[string]float64 `json:"numeric_properties,omitempty"`
}

// MatchmakerMatched is pushed when a ticket has been matched.
type MatchmakerMatched struct {
	Ticket  string           `json:"ticket"`
	MatchID string           `json:"match_id,omitempty"`
	Token   string           `json:"token,omitempty"`
	Users   []MatchmakerUser `json:"users,omitempty"`
	Self    MatchmakerUser   `json:"self"`
}

type MatchmakerRemove struct {
	Ticket string `json:"ticket"`
}

type MatchmakerTicket struct {
	Ticket string `json:"ticket"`
}

// Notifications

type Notification struct {
	ID         string    `json:"id"`
	Subject    string    `json:"subject,omitempty"`
	Content    string    `json:"content,omitempty"`
	Code       int       `json:"code,omitempty"`
	SenderID   string    `json:"sender_id,omitempty"`
	CreateTime time.Time `json:"create_time,omitempty"`
	Persistent bool      `json:"persistent,omitempty"`
}

type NotificationList struct {
	Notifications   []Notification `json:"notifications"`
	CacheableCursor string         `json:"cacheable_cursor,omitempty"`
}

// Parties

type Party struct {
	PartyID   string         `json:"party_id"`
	Open      bool           `json:"open,omitempty"`
	MaxSize   int            `json:"max_size,omitempty"`
	Self      UserPresence   `json:"self"`
	Leader    UserPresence   `json:"leader"`
	Presences []UserPresence `json:"presences,omitempty"`
}

type PartyCreate struct {
	Open    bool `json:"open"`
	MaxSize int  `json:"max_size"`
}

type PartyJoin struct {
	PartyID string `json:"party_id"`
}

type PartyLeave struct {
	PartyID string `json:"party_id"`
}

type PartyPromote struct {
	PartyID  string       `json:"party_id"`
	Presence UserPresence `json:"presence"`
}

type PartyLeader struct {
	PartyID  string       `json:"party_id"`
	Presence UserPresence `json:"presence"`
}

type PartyAccept struct {
	PartyID  string       `json:"party_id"`
	Presence UserPresence `json:"presence"`
}

type PartyRemove struct {
	PartyID  string       `json:"party_id"`
	Presence UserPresence `json:"presence"`
}

type PartyClose struct {
	PartyID string `json:"party_id"`
}

type PartyJoinRequestList struct {
	PartyID string `json:"party_id"`
}

type PartyJoinRequest struct {
	PartyID   string         `json:"party_id"`
	Presences []UserPresence `json:"presences,omitempty"`
}

type PartyMatchmakerAdd struct {
	PartyID           string             `json:"party_id"`
	MinCount          int                `json:"min_count"`
	MaxCount          int                `json:"max_count"`
	Query             string             `json:"query"`
	StringProperties  map[string]string  `json:"string_properties,omitempty"`
	NumericProperties map[string]float64 `json:"numeric_properties,omitempty"`
}

type PartyMatchmakerRemove struct {
	PartyID string `json:"party_id"`
	Ticket  string `json:"ticket"`
}

type PartyMatchmakerTicket struct {
	PartyID string `json:"party_id"`
	Ticket  string `json:"ticket"`
}

// PartyData carries base64 payload bytes and a string-encoded op code.
type PartyData struct {
	PartyID  string       `json:"party_id"`
	Presence UserPresence `json:"presence"`
	OpCode   int64        `json:"op_code,string"`
	Data     []byte       `json:"data,omitempty"`
}

type PartyDataSend struct {
	PartyID string `json:"party_id"`
	OpCode  int64  `json:"op_code,string"`
	Data    []byte `json:"data,omitempty"`
}

type PartyPresenceEvent struct {
	PartyID string         `json:"party_id"`
	Joins   []UserPresence `json:"joins,omitempty"`
	Leaves  []UserPresence `json:"leaves,omitempty"`
}

// Status

type Status struct {
	Presences []UserPresence `json:"presences,omitempty"`
}

type StatusFollow struct {
	UserIDs   []string `json:"user_ids,omitempty"`
	Usernames []string `json:"usernames,omitempty"`
}

type StatusUnfollow struct {
	UserIDs []string `json:"user_ids"`
}

type StatusUpdate struct {
	Status string `json:"status"`
}

type StatusPresenceEvent struct {
	Joins  []UserPresence `json:"joins,omitempty"`
	Leaves []UserPresence `json:"leaves,omitempty"`
}

// Streams

type Stream struct {
	Mode       int    `json:"mode"`
	Subject    string `json:"subject,omitempty"`
	Subcontext string `json:"subcontext,omitempty"`
	Label      string `json:"label,omitempty"`
}

type StreamData struct {
	Stream   Stream       `json:"stream"`
	Sender   UserPresence `json:"sender"`
	Data     string       `json:"data,omitempty"`
	Reliable bool         `json:"reliable,omitempty"`
}

type StreamPresenceEvent struct {
	Stream Stream         `json:"stream"`
	Joins  []UserPresence `json:"joins,omitempty"`
	Leaves []UserPresence `json:"leaves,omitempty"`
}

// RPC is a server function call and its reply.
type RPC struct {
	ID      string `json:"id"`
	Payload string `json:"payload,omitempty"`
	HTTPKey string `json:"http_key,omitempty"`
}

type Ping struct{}

type Pong struct{}
