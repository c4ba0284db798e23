package peer

import (
	"context"
	"sync"
	"time"

	pion "github.com/pion/webrtc/v4"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/BioHazard786/Pairline/internal/config"
	"github.com/BioHazard786/Pairline/internal/matchmaking"
	"github.com/BioHazard786/Pairline/internal/signaling"
)

// Stage is a step of the call as shown to the user.
type Stage int

const (
	StageQueued Stage = iota
	StageMatched
	StageNegotiating
	StageConnected
	StageChannelOpen
	StageHello
	StageEnded
)

func (s Stage) String() string {
	switch s {
	case StageQueued:
		return "queued"
	case StageMatched:
		return "matched"
	case StageNegotiating:
		return "negotiating"
	case StageConnected:
		return "connected"
	case StageChannelOpen:
		return "channel open"
	case StageHello:
		return "hello"
	case StageEnded:
		return "ended"
	}
	return "unknown"
}

// Update reports call progress to the UI.
type Update struct {
	Stage     Stage
	QueueSize int
	RoomID    string
	PeerID    string
	Role      string
	Detail    string
}

// Options tune one call.
type Options struct {
	// UserID is sent with join_queue. Empty lets the relay use the
	// connection ID.
	UserID string

	// Duration hangs up after the given time once matched. Zero means stay
	// until interrupted or the peer leaves.
	Duration time.Duration
}

// Session runs one matchmaking round and the resulting call.
type Session struct {
	cfg     *config.Peer
	client  *Client
	handler *Handler
	opts    Options
	log     *zap.Logger

	updates chan Update

	pc         *pion.PeerConnection
	match      *signaling.MatchFoundPayload
	self       string
	candidates candidateQueue
	peerEnded  bool

	iceState chan pion.ICEConnectionState
	opened   chan struct{}
	hello    chan HelloPayload
	bye      chan ByePayload

	mu sync.Mutex
	dc *pion.DataChannel
}

// NewSession wires a session to a connected client and its handler.
func NewSession(cfg *config.Peer, client *Client, handler *Handler, opts Options, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		cfg:      cfg,
		client:   client,
		handler:  handler,
		opts:     opts,
		log:      log.Named("session"),
		updates:  make(chan Update, 32),
		iceState: make(chan pion.ICEConnectionState, 8),
		opened:   make(chan struct{}, 1),
		hello:    make(chan HelloPayload, 1),
		bye:      make(chan ByePayload, 1),
	}
}

// Updates streams progress until Run returns.
func (s *Session) Updates() <-chan Update { return s.updates }

// Run joins the queue and holds the call until ctx is done, the duration
// elapses or the peer leaves. Cancelling ctx while matched is a clean exit.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.updates)

	if err := s.client.SendMessage(&signaling.Request{
		Type:    signaling.EventJoinQueue,
		Payload: signaling.RequestPayload{UserID: s.opts.UserID},
	}); err != nil {
		return NewError("join queue", err)
	}

	match, err := s.waitForMatch(ctx)
	if err != nil {
		return err
	}
	s.match = match
	s.self = s.opts.UserID
	if s.self == "" {
		s.self = selfFromRoom(match.RoomID, match.MatchedUserID)
	}
	s.emit(Update{
		Stage:  StageMatched,
		RoomID: match.RoomID,
		PeerID: match.MatchedUserID,
		Role:   match.Role,
	})

	defer s.hangUp()

	if err := s.negotiate(); err != nil {
		return err
	}
	return s.loop(ctx)
}

func (s *Session) waitForMatch(ctx context.Context) (*signaling.MatchFoundPayload, error) {
	for {
		select {
		case <-ctx.Done():
			s.client.SendMessage(&signaling.Request{Type: signaling.EventLeaveQueue})
			return nil, ctx.Err()

		case st := <-s.handler.QueueStatus:
			s.emit(Update{Stage: StageQueued, QueueSize: st.QueueSize})

		case m := <-s.handler.MatchFound:
			return m, nil

		case <-s.handler.Disconnected:
			return nil, NewError("wait for match", ErrServerClosed)
		}
	}
}

func (s *Session) negotiate() error {
	pc, err := NewPeerConnection(s.cfg)
	if err != nil {
		return err
	}
	s.pc = pc

	pc.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil {
			return
		}
		wire, err := toWire(c.ToJSON())
		if err != nil {
			s.log.Warn("encode local candidate", zap.Error(err))
			return
		}
		s.send(signaling.EventICECandidate, signaling.RequestPayload{Candidate: wire})
	})

	pc.OnICEConnectionStateChange(func(state pion.ICEConnectionState) {
		select {
		case s.iceState <- state:
		default:
		}
	})

	if matchmaking.Role(s.match.Role) != matchmaking.RoleCaller {
		pc.OnDataChannel(s.attach)
		s.emit(Update{Stage: StageNegotiating, Detail: "waiting for offer"})
		return nil
	}

	dc, err := CreateDataChannel(pc)
	if err != nil {
		return err
	}
	s.attach(dc)

	offer, err := CreateOffer(pc)
	if err != nil {
		return err
	}
	wire, err := toWire(offer)
	if err != nil {
		return NewError("encode offer", err)
	}
	s.send(signaling.EventOffer, signaling.RequestPayload{Offer: wire})
	s.emit(Update{Stage: StageNegotiating, Detail: "offer sent"})
	return nil
}

// attach greets the peer when dc opens and watches for its messages.
func (s *Session) attach(dc *pion.DataChannel) {
	dc.OnOpen(func() {
		s.mu.Lock()
		s.dc = dc
		s.mu.Unlock()

		select {
		case s.opened <- struct{}{}:
		default:
		}

		data, err := EncodeChannelMessage(ChannelHello, HelloPayload{
			UserID: s.self,
			Role:   s.match.Role,
			SentAt: time.Now().UnixMilli(),
		})
		if err != nil {
			s.log.Warn("encode hello", zap.Error(err))
			return
		}
		if err := dc.Send(data); err != nil {
			s.log.Warn("send hello", zap.Error(err))
		}
	})

	dc.OnMessage(func(raw pion.DataChannelMessage) {
		s.receive(raw.Data)
	})
}

// receive routes one data channel message to the loop.
func (s *Session) receive(data []byte) {
	var msg ChannelMessage
	if err := msgpack.Unmarshal(data, &msg); err != nil {
		s.log.Debug("undecodable data channel message", zap.Error(err))
		return
	}

	switch msg.Type {
	case ChannelHello:
		var hello HelloPayload
		if err := msg.DecodePayload(&hello); err != nil {
			s.log.Debug("bad hello", zap.Error(err))
			return
		}
		select {
		case s.hello <- hello:
		default:
		}

	case ChannelBye:
		var bye ByePayload
		if err := msg.DecodePayload(&bye); err != nil {
			s.log.Debug("bad bye", zap.Error(err))
		}
		select {
		case s.bye <- bye:
		default:
		}

	default:
		s.log.Debug("unknown data channel message", zap.String("type", msg.Type))
	}
}

// sayBye tells the peer over the data channel that we are leaving.
func (s *Session) sayBye(reason string) {
	s.mu.Lock()
	dc := s.dc
	s.mu.Unlock()
	if dc == nil || dc.ReadyState() != pion.DataChannelStateOpen {
		return
	}

	data, err := EncodeChannelMessage(ChannelBye, ByePayload{Reason: reason})
	if err != nil {
		s.log.Debug("encode bye", zap.Error(err))
		return
	}
	if err := dc.Send(data); err != nil {
		s.log.Debug("send bye", zap.Error(err))
	}
}

func (s *Session) loop(ctx context.Context) error {
	var deadline <-chan time.Time
	if s.opts.Duration > 0 {
		t := time.NewTimer(s.opts.Duration)
		defer t.Stop()
		deadline = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-deadline:
			return nil

		case <-s.handler.CallEnded:
			s.peerEnded = true
			return ErrPeerLeft

		case bye := <-s.bye:
			s.log.Debug("peer said bye", zap.String("reason", bye.Reason))
			s.peerEnded = true
			return ErrPeerLeft

		case <-s.handler.Disconnected:
			return NewError("call", ErrServerClosed)

		case sig := <-s.handler.Signal:
			if err := s.handleSignal(sig); err != nil {
				return err
			}

		case state := <-s.iceState:
			s.log.Debug("ice state", zap.String("state", state.String()))
			switch state {
			case pion.ICEConnectionStateConnected:
				s.emit(Update{Stage: StageConnected})
			case pion.ICEConnectionStateFailed:
				return NewError("ice", ErrConnectionFailed)
			}

		case <-s.opened:
			s.emit(Update{Stage: StageChannelOpen})

		case hello := <-s.hello:
			s.emit(Update{
				Stage:  StageHello,
				PeerID: hello.UserID,
				Role:   hello.Role,
				Detail: time.Since(time.UnixMilli(hello.SentAt)).Round(time.Millisecond).String(),
			})

		case err := <-s.handler.Error:
			s.log.Debug("ignoring relay message", zap.Error(err))
		}
	}
}

func (s *Session) handleSignal(sig *Signal) error {
	if sig.From != s.match.MatchedUserID {
		s.log.Debug("signal from unexpected sender", zap.String("from", sig.From))
		return nil
	}

	switch sig.Type {
	case signaling.EventOffer:
		if matchmaking.Role(s.match.Role) != matchmaking.RoleCallee {
			return WrapError("handle offer", ErrUnexpectedSignal, "caller received an offer")
		}
		answer, err := CreateAnswer(s.pc, sig.Description)
		if err != nil {
			return err
		}
		s.flushCandidates()
		wire, err := toWire(answer)
		if err != nil {
			return NewError("encode answer", err)
		}
		s.send(signaling.EventAnswer, signaling.RequestPayload{Answer: wire})

	case signaling.EventAnswer:
		if err := s.pc.SetRemoteDescription(*sig.Description); err != nil {
			return NewError("set remote description", err)
		}
		s.flushCandidates()

	case signaling.EventICECandidate:
		if err := s.candidates.Add(*sig.Candidate, s.pc.AddICECandidate); err != nil {
			s.log.Debug("add ICE candidate", zap.Error(err))
		}
	}
	return nil
}

func (s *Session) flushCandidates() {
	if err := s.candidates.Ready(s.pc.AddICECandidate); err != nil {
		s.log.Debug("add buffered ICE candidate", zap.Error(err))
	}
}

// send stamps the room ID and queues the request.
func (s *Session) send(t signaling.EventType, payload signaling.RequestPayload) {
	payload.RoomID = s.match.RoomID
	if err := s.client.SendMessage(&signaling.Request{Type: t, Payload: payload}); err != nil {
		s.log.Debug("send to relay", zap.String("type", string(t)), zap.Error(err))
	}
}

func (s *Session) hangUp() {
	if !s.peerEnded {
		s.sayBye("hangup")
		s.send(signaling.EventEndCall, signaling.RequestPayload{})
	}
	if s.pc != nil {
		if err := s.pc.Close(); err != nil {
			s.log.Debug("close peer connection", zap.Error(err))
		}
	}
	s.emit(Update{Stage: StageEnded, RoomID: s.match.RoomID})
}

func (s *Session) emit(u Update) {
	select {
	case s.updates <- u:
	default:
	}
}

// selfFromRoom recovers our own user ID from the room ID when the relay
// assigned it.
func selfFromRoom(roomID, peerID string) string {
	a, b, ok := matchmaking.SplitRoomID(roomID)
	switch {
	case !ok:
		return ""
	case a == peerID:
		return b
	case b == peerID:
		return a
	}
	return ""
}
