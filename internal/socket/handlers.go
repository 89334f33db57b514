package socket

// Event is a category of server push. Declaration order is dispatch
// priority: a push carrying several payloads goes to the first one present.
type Event int

const (
	EventChannelMessage Event = iota
	EventChannelPresence
	EventError
	EventMatchmakerMatched
	EventMatchState
	EventMatchPresence
	EventNotification
	EventPartyClose
	EventPartyData
	EventPartyJoinRequest
	EventPartyLeader
	EventPartyPresence
	EventStatusPresence
	EventStreamPresence
	EventStreamState
	numEvents
)

var eventNames = [numEvents]string{
	EventChannelMessage:    "channel_message",
	EventChannelPresence:   "channel_presence",
	EventError:             "error",
	EventMatchmakerMatched: "matchmaker_matched",
	EventMatchState:        "match_state",
	EventMatchPresence:     "match_presence",
	EventNotification:      "notification",
	EventPartyClose:        "party_close",
	EventPartyData:         "party_data",
	EventPartyJoinRequest:  "party_join_request",
	EventPartyLeader:       "party_leader",
	EventPartyPresence:     "party_presence",
	EventStatusPresence:    "status_presence",
	EventStreamPresence:    "stream_presence",
	EventStreamState:       "stream_state",
}

func (e Event) String() string {
	if e < 0 || e >= numEvents {
		return "unknown"
	}
	return eventNames[e]
}

// eventPresent reports whether env carries the payload for each event.
var eventPresent = [numEvents]func(env *Envelope) bool{
	EventChannelMessage:    func(env *Envelope) bool { return env.ChannelMessage != nil },
	EventChannelPresence:   func(env *Envelope) bool { return env.ChannelPresenceEvent != nil },
	EventError:             func(env *Envelope) bool { return env.Error != nil },
	EventMatchmakerMatched: func(env *Envelope) bool { return env.MatchmakerMatched != nil },
	EventMatchState:        func(env *Envelope) bool { return env.MatchData != nil },
	EventMatchPresence:     func(env *Envelope) bool { return env.MatchPresenceEvent != nil },
	EventNotification:      func(env *Envelope) bool { return env.Notifications != nil },
	EventPartyClose:        func(env *Envelope) bool { return env.PartyClose != nil },
	EventPartyData:         func(env *Envelope) bool { return env.PartyData != nil },
	EventPartyJoinRequest:  func(env *Envelope) bool { return env.PartyJoinRequest != nil },
	EventPartyLeader:       func(env *Envelope) bool { return env.PartyLeader != nil },
	EventPartyPresence:     func(env *Envelope) bool { return env.PartyPresenceEvent != nil },
	EventStatusPresence:    func(env *Envelope) bool { return env.StatusPresenceEvent != nil },
	EventStreamPresence:    func(env *Envelope) bool { return env.StreamPresenceEvent != nil },
	EventStreamState:       func(env *Envelope) bool { return env.StreamData != nil },
}

// classify returns the highest priority event present in env.
func classify(env *Envelope) (Event, bool) {
	for ev := Event(0); ev < numEvents; ev++ {
		if eventPresent[ev](env) {
			return ev, true
		}
	}
	return 0, false
}

// Register installs fn as the handler for ev, replacing any previous one.
// A nil fn clears the slot.
func (s *Socket) Register(ev Event, fn func(env *Envelope)) {
	if ev < 0 || ev >= numEvents {
		return
	}
	s.mu.Lock()
	s.handlers[ev] = fn
	s.mu.Unlock()
}

func (s *Socket) handler(ev Event) func(env *Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handlers[ev]
}

func (s *Socket) OnChannelMessage(fn func(msg ChannelMessage)) {
	s.Register(EventChannelMessage, func(env *Envelope) { fn(*env.ChannelMessage) })
}

func (s *Socket) OnChannelPresence(fn func(evt ChannelPresenceEvent)) {
	s.Register(EventChannelPresence, func(env *Envelope) { fn(*env.ChannelPresenceEvent) })
}

// OnError receives error pushes that are not tied to a request.
func (s *Socket) OnError(fn func(err *ServerError)) {
	s.Register(EventError, func(env *Envelope) { fn(newServerError(env.Error)) })
}

func (s *Socket) OnMatchmakerMatched(fn func(matched MatchmakerMatched)) {
	s.Register(EventMatchmakerMatched, func(env *Envelope) { fn(*env.MatchmakerMatched) })
}

func (s *Socket) OnMatchState(fn func(data MatchData)) {
	s.Register(EventMatchState, func(env *Envelope) { fn(*env.MatchData) })
}

func (s *Socket) OnMatchPresence(fn func(evt MatchPresenceEvent)) {
	s.Register(EventMatchPresence, func(env *Envelope) { fn(*env.MatchPresenceEvent) })
}

// OnNotification is called once per notification, in list order.
func (s *Socket) OnNotification(fn func(n Notification)) {
	s.Register(EventNotification, func(env *Envelope) {
		for _, n := range env.Notifications.Notifications {
			fn(n)
		}
	})
}

func (s *Socket) OnPartyClose(fn func(p PartyClose)) {
	s.Register(EventPartyClose, func(env *Envelope) { fn(*env.PartyClose) })
}

func (s *Socket) OnPartyData(fn func(data PartyData)) {
	s.Register(EventPartyData, func(env *Envelope) { fn(*env.PartyData) })
}

func (s *Socket) OnPartyJoinRequest(fn func(req PartyJoinRequest)) {
	s.Register(EventPartyJoinRequest, func(env *Envelope) { fn(*env.PartyJoinRequest) })
}

func (s *Socket) OnPartyLeader(fn func(leader PartyLeader)) {
	s.Register(EventPartyLeader, func(env *Envelope) { fn(*env.PartyLeader) })
}

func (s *Socket) OnPartyPresence(fn func(evt PartyPresenceEvent)) {
	s.Register(EventPartyPresence, func(env *Envelope) { fn(*env.PartyPresenceEvent) })
}

func (s *Socket) OnStatusPresence(fn func(evt StatusPresenceEvent)) {
	s.Register(EventStatusPresence, func(env *Envelope) { fn(*env.StatusPresenceEvent) })
}

func (s *Socket) OnStreamPresence(fn func(evt StreamPresenceEvent)) {
	s.Register(EventStreamPresence, func(env *Envelope) { fn(*env.StreamPresenceEvent) })
}

func (s *Socket) OnStreamState(fn func(data StreamData)) {
	s.Register(EventStreamState, func(env *Envelope) { fn(*env.StreamData) })
}

// OnConnected is called each time the transport (re)connects.
func (s *Socket) OnConnected(fn func()) {
	s.mu.Lock()
	s.onConnected = fn
	s.mu.Unlock()
}

// OnClosed is called when the transport closes. err is nil for a clean close.
func (s *Socket) OnClosed(fn func(err error)) {
	s.mu.Lock()
	s.onClosed = fn
	s.mu.Unlock()
}
