package socket

import (
	"context"
	"encoding/base64"

	"github.com/rickgao/nakama-client/internal/matchmaker"
)

// Realtime operations. Each request form waits for its response until ctx is
// done or the request times out through Tick. Fire-and-forget forms return
// once the frame is written.

// CreateMatch creates a relayed multiplayer match.
func (s *Socket) CreateMatch(ctx context.Context) (*Match, error) {
	resp, err := s.request(ctx, &Envelope{MatchCreate: &MatchCreate{}})
	if err != nil {
		return nil, err
	}
	if resp.Match == nil {
		return nil, unexpected("match", resp)
	}
	return resp.Match, nil
}

// JoinMatch joins the match a matchmaker result points at.
func (s *Socket) JoinMatch(ctx context.Context, matched MatchmakerMatched) (*Match, error) {
	join := &MatchJoin{Metadata: map[string]string{}}
	if matched.Token != "" {
		join.Token = matched.Token
	} else {
		join.MatchID = matched.MatchID
	}
	return s.joinMatch(ctx, join)
}

// JoinMatchByID joins a match by id with optional metadata.
func (s *Socket) JoinMatchByID(ctx context.Context, matchID string, metadata map[string]string) (*Match, error) {
	return s.joinMatch(ctx, &MatchJoin{MatchID: matchID, Metadata: metadata})
}

func (s *Socket) joinMatch(ctx context.Context, join *MatchJoin) (*Match, error) {
	resp, err := s.request(ctx, &Envelope{MatchJoin: join})
	if err != nil {
		return nil, err
	}
	if resp.Match == nil {
		return nil, unexpected("match", resp)
	}
	return resp.Match, nil
}

func (s *Socket) LeaveMatch(matchID string) error {
	return s.SendAsync(&Envelope{MatchLeave: &MatchLeave{MatchID: matchID}})
}

// SendMatchState relays data to the match. An empty presences list targets
// every participant.
func (s *Socket) SendMatchState(matchID string, opCode int64, data []byte, presences []UserPresence) error {
	return s.SendAsync(&Envelope{MatchDataSend: &MatchDataSend{
		MatchID:   matchID,
		OpCode:    opCode,
		Data:      data,
		Presences: presences,
		Reliable:  true,
	}})
}

// AddMatchmaker submits a ticket built with the matchmaker package.
func (s *Socket) AddMatchmaker(ctx context.Context, m *matchmaker.Matchmaker) (*MatchmakerTicket, error) {
	spec := m.Spec()
	resp, err := s.request(ctx, &Envelope{MatchmakerAdd: &MatchmakerAdd{
		MinCount:          spec.MinCount,
		MaxCount:          spec.MaxCount,
		Query:             spec.Query,
		StringProperties:  spec.StringProperties,
		NumericProperties: spec.NumericProperties,
	}})
	if err != nil {
		return nil, err
	}
	if resp.MatchmakerTicket == nil {
		return nil, unexpected("matchmaker_ticket", resp)
	}
	return resp.MatchmakerTicket, nil
}

// AddMatchmakerParty submits a ticket on behalf of a whole party.
func (s *Socket) AddMatchmakerParty(ctx context.Context, partyID string, m *matchmaker.Matchmaker) (*PartyMatchmakerTicket, error) {
	spec := m.Spec()
	resp, err := s.request(ctx, &Envelope{PartyMatchmakerAdd: &PartyMatchmakerAdd{
		PartyID:           partyID,
		MinCount:          spec.MinCount,
		MaxCount:          spec.MaxCount,
		Query:             spec.Query,
		StringProperties:  spec.StringProperties,
		NumericProperties: spec.NumericProperties,
	}})
	if err != nil {
		return nil, err
	}
	if resp.PartyMatchmakerTicket == nil {
		return nil, unexpected("party_matchmaker_ticket", resp)
	}
	return resp.PartyMatchmakerTicket, nil
}

func (s *Socket) RemoveMatchmaker(ticket string) error {
	return s.SendAsync(&Envelope{MatchmakerRemove: &MatchmakerRemove{Ticket: ticket}})
}

func (s *Socket) RemoveMatchmakerParty(partyID, ticket string) error {
	return s.SendAsync(&Envelope{PartyMatchmakerRemove: &PartyMatchmakerRemove{PartyID: partyID, Ticket: ticket}})
}

// Chat

func (s *Socket) JoinChat(ctx context.Context, target string, typ ChannelType, persistence, hidden bool) (*Channel, error) {
	resp, err := s.request(ctx, &Envelope{ChannelJoin: &ChannelJoin{
		Target:      target,
		Type:        typ,
		Persistence: persistence,
		Hidden:      hidden,
	}})
	if err != nil {
		return nil, err
	}
	if resp.Channel == nil {
		return nil, unexpected("channel", resp)
	}
	return resp.Channel, nil
}

func (s *Socket) LeaveChat(channelID string) error {
	return s.SendAsync(&Envelope{ChannelLeave: &ChannelLeave{ChannelID: channelID}})
}

// WriteChatMessage sends content, which must be a JSON object, to a channel.
func (s *Socket) WriteChatMessage(ctx context.Context, channelID, content string) (*ChannelMessageAck, error) {
	return s.chatAck(ctx, &Envelope{ChannelMessageSend: &ChannelMessageSend{ChannelID: channelID, Content: content}})
}

func (s *Socket) UpdateChatMessage(ctx context.Context, channelID, messageID, content string) (*ChannelMessageAck, error) {
	return s.chatAck(ctx, &Envelope{ChannelMessageUpdate: &ChannelMessageUpdate{
		ChannelID: channelID,
		MessageID: messageID,
		Content:   content,
	}})
}

func (s *Socket) RemoveChatMessage(ctx context.Context, channelID, messageID string) (*ChannelMessageAck, error) {
	return s.chatAck(ctx, &Envelope{ChannelMessageRemove: &ChannelMessageRemove{ChannelID: channelID, MessageID: messageID}})
}

func (s *Socket) chatAck(ctx context.Context, env *Envelope) (*ChannelMessageAck, error) {
	resp, err := s.request(ctx, env)
	if err != nil {
		return nil, err
	}
	if resp.ChannelMessageAck == nil {
		return nil, unexpected("channel_message_ack", resp)
	}
	return resp.ChannelMessageAck, nil
}

// Parties

func (s *Socket) CreateParty(ctx context.Context, open bool, maxSize int) (*Party, error) {
	resp, err := s.request(ctx, &Envelope{PartyCreate: &PartyCreate{Open: open, MaxSize: maxSize}})
	if err != nil {
		return nil, err
	}
	if resp.Party == nil {
		return nil, unexpected("party", resp)
	}
	return resp.Party, nil
}

func (s *Socket) JoinParty(ctx context.Context, partyID string) error {
	return s.ack(ctx, &Envelope{PartyJoin: &PartyJoin{PartyID: partyID}})
}

func (s *Socket) LeaveParty(ctx context.Context, partyID string) error {
	return s.ack(ctx, &Envelope{PartyLeave: &PartyLeave{PartyID: partyID}})
}

func (s *Socket) CloseParty(ctx context.Context, partyID string) error {
	return s.ack(ctx, &Envelope{PartyClose: &PartyClose{PartyID: partyID}})
}

func (s *Socket) AcceptPartyMember(ctx context.Context, partyID string, presence UserPresence) error {
	return s.ack(ctx, &Envelope{PartyAccept: &PartyAccept{PartyID: partyID, Presence: presence}})
}

func (s *Socket) PromotePartyMember(ctx context.Context, partyID string, presence UserPresence) error {
	return s.ack(ctx, &Envelope{PartyPromote: &PartyPromote{PartyID: partyID, Presence: presence}})
}

func (s *Socket) RemovePartyMember(ctx context.Context, partyID string, presence UserPresence) error {
	return s.ack(ctx, &Envelope{PartyRemove: &PartyRemove{PartyID: partyID, Presence: presence}})
}

func (s *Socket) ListPartyJoinRequests(ctx context.Context, partyID string) (*PartyJoinRequest, error) {
	resp, err := s.request(ctx, &Envelope{PartyJoinRequestList: &PartyJoinRequestList{PartyID: partyID}})
	if err != nil {
		return nil, err
	}
	if resp.PartyJoinRequest == nil {
		return nil, unexpected("party_join_request", resp)
	}
	return resp.PartyJoinRequest, nil
}

// SendPartyData relays data to every party member. The payload travels
// base64 encoded.
func (s *Socket) SendPartyData(partyID string, opCode int64, data []byte) error {
	return s.SendAsync(&Envelope{PartyDataSend: &PartyDataSend{PartyID: partyID, OpCode: opCode, Data: data}})
}

// ack sends a request whose response carries no payload of interest.
func (s *Socket) ack(ctx context.Context, env *Envelope) error {
	_, err := s.request(ctx, env)
	return err
}

// Status

func (s *Socket) FollowUsers(ctx context.Context, userIDs, usernames []string) (*Status, error) {
	resp, err := s.request(ctx, &Envelope{StatusFollow: &StatusFollow{UserIDs: userIDs, Usernames: usernames}})
	if err != nil {
		return nil, err
	}
	if resp.Status == nil {
		return nil, unexpected("status", resp)
	}
	return resp.Status, nil
}

func (s *Socket) UnfollowUsers(userIDs []string) error {
	return s.SendAsync(&Envelope{StatusUnfollow: &StatusUnfollow{UserIDs: userIDs}})
}

// UpdateStatus publishes a status message. An empty status appears offline.
func (s *Socket) UpdateStatus(status string) error {
	return s.SendAsync(&Envelope{StatusUpdate: &StatusUpdate{Status: status}})
}

// RPC

// RPC calls a registered server function with a string payload.
func (s *Socket) RPC(ctx context.Context, id, payload string) (*RPC, error) {
	resp, err := s.request(ctx, &Envelope{RPC: &RPC{ID: id, Payload: payload}})
	if err != nil {
		return nil, err
	}
	if resp.RPC == nil {
		return nil, unexpected("rpc", resp)
	}
	return resp.RPC, nil
}

// RPCBytes calls a server function with a binary payload, sent base64 encoded.
func (s *Socket) RPCBytes(ctx context.Context, id string, payload []byte) (*RPC, error) {
	return s.RPC(ctx, id, base64.StdEncoding.EncodeToString(payload))
}
