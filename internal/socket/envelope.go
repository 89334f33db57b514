package socket

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Envelope is one multiplexed message. Exactly one payload field is set;
// CID is set on requests and their responses and empty on pushes.
type Envelope struct {
	CID string `json:"cid,omitempty"`

	Channel              *Channel              `json:"channel,omitempty"`
	ChannelJoin          *ChannelJoin          `json:"channel_join,omitempty"`
	ChannelLeave         *ChannelLeave         `json:"channel_leave,omitempty"`
	ChannelMessage       *ChannelMessage       `json:"channel_message,omitempty"`
	ChannelMessageAck    *ChannelMessageAck    `json:"channel_message_ack,omitempty"`
	ChannelMessageRemove *ChannelMessageRemove `json:"channel_message_remove,omitempty"`
	ChannelMessageSend   *ChannelMessageSend   `json:"channel_message_send,omitempty"`
	ChannelMessageUpdate *ChannelMessageUpdate `json:"channel_message_update,omitempty"`
	ChannelPresenceEvent *ChannelPresenceEvent `json:"channel_presence_event,omitempty"`

	Error *ServerErrorPayload `json:"error,omitempty"`

	MatchmakerAdd     *MatchmakerAdd     `json:"matchmaker_add,omitempty"`
	MatchmakerMatched *MatchmakerMatched `json:"matchmaker_matched,omitempty"`
	MatchmakerRemove  *MatchmakerRemove  `json:"matchmaker_remove,omitempty"`
	MatchmakerTicket  *MatchmakerTicket  `json:"matchmaker_ticket,omitempty"`

	Match              *Match              `json:"match,omitempty"`
	MatchCreate        *MatchCreate        `json:"match_create,omitempty"`
	MatchJoin          *MatchJoin          `json:"match_join,omitempty"`
	MatchLeave         *MatchLeave         `json:"match_leave,omitempty"`
	MatchPresenceEvent *MatchPresenceEvent `json:"match_presence_event,omitempty"`
	MatchData          *MatchData          `json:"match_data,omitempty"`
	MatchDataSend      *MatchDataSend      `json:"match_data_send,omitempty"`

	Notifications *NotificationList `json:"notifications,omitempty"`
	RPC           *RPC              `json:"rpc,omitempty"`

	Status              *Status              `json:"status,omitempty"`
	StatusFollow        *StatusFollow        `json:"status_follow,omitempty"`
	StatusPresenceEvent *StatusPresenceEvent `json:"status_presence_event,omitempty"`
	StatusUnfollow      *StatusUnfollow      `json:"status_unfollow,omitempty"`
	StatusUpdate        *StatusUpdate        `json:"status_update,omitempty"`

	StreamPresenceEvent *StreamPresenceEvent `json:"stream_presence_event,omitempty"`
	StreamData          *StreamData          `json:"stream_data,omitempty"`

	Party                 *Party                 `json:"party,omitempty"`
	PartyCreate           *PartyCreate           `json:"party_create,omitempty"`
	PartyJoin             *PartyJoin             `json:"party_join,omitempty"`
	PartyLeave            *PartyLeave            `json:"party_leave,omitempty"`
	PartyPromote          *PartyPromote          `json:"party_promote,omitempty"`
	PartyLeader           *PartyLeader           `json:"party_leader,omitempty"`
	PartyAccept           *PartyAccept           `json:"party_accept,omitempty"`
	PartyRemove           *PartyRemove           `json:"party_remove,omitempty"`
	PartyClose            *PartyClose            `json:"party_close,omitempty"`
	PartyJoinRequestList  *PartyJoinRequestList  `json:"party_join_request_list,omitempty"`
	PartyJoinRequest      *PartyJoinRequest      `json:"party_join_request,omitempty"`
	PartyMatchmakerAdd    *PartyMatchmakerAdd    `json:"party_matchmaker_add,omitempty"`
	PartyMatchmakerRemove *PartyMatchmakerRemove `json:"party_matchmaker_remove,omitempty"`
	PartyMatchmakerTicket *PartyMatchmakerTicket `json:"party_matchmaker_ticket,omitempty"`
	PartyData             *PartyData             `json:"party_data,omitempty"`
	PartyDataSend         *PartyDataSend         `json:"party_data_send,omitempty"`
	PartyPresenceEvent    *PartyPresenceEvent    `json:"party_presence_event,omitempty"`

	Ping *Ping `json:"ping,omitempty"`
	Pong *Pong `json:"pong,omitempty"`
}

// ErrInvalidEnvelope is returned by Validate.
var ErrInvalidEnvelope = errors.New("invalid envelope")

// Kinds returns the wire names of the populated payload fields.
func (e *Envelope) Kinds() []string {
	var kinds []string
	v := reflect.ValueOf(e).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := v.Field(i)
		if f.Kind() != reflect.Pointer || f.IsNil() {
			continue
		}
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		kinds = append(kinds, name)
	}
	return kinds
}

// Validate checks that exactly one payload field is set.
func (e *Envelope) Validate() error {
	switch kinds := e.Kinds(); len(kinds) {
	case 1:
		return nil
	case 0:
		return fmt.Errorf("%w: no payload", ErrInvalidEnvelope)
	default:
		return fmt.Errorf("%w: multiple payloads %v", ErrInvalidEnvelope, kinds)
	}
}

// Codec converts envelopes to and from text frames.
type Codec interface {
	Encode(env *Envelope) ([]byte, error)
	Decode(data []byte, env *Envelope) error
	// DecodeCID extracts only the correlation id from a frame that may not
	// match the full envelope shape.
	DecodeCID(data []byte) (string, error)
}

// JSONCodec is the server's JSON wire format.
type JSONCodec struct{}

func (JSONCodec) Encode(env *Envelope) ([]byte, error) {
	return json.Marshal(env)
}

func (JSONCodec) Decode(data []byte, env *Envelope) error {
	return json.Unmarshal(data, env)
}

func (JSONCodec) DecodeCID(data []byte) (string, error) {
	var header struct {
		CID string `json:"cid"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return "", err
	}
	return header.CID, nil
}
