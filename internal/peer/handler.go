package peer

import (
	"sync"

	pion "github.com/pion/webrtc/v4"
	"go.uber.org/zap"

	"github.com/BioHazard786/Pairline/internal/signaling"
)

// Signal is a relayed handshake message, already parsed into pion types.
type Signal struct {
	Type        signaling.EventType
	From        string
	Description *pion.SessionDescription
	Candidate   *pion.ICECandidateInit
}

// Handler routes incoming relay messages to typed channels.
type Handler struct {
	incoming <-chan *Inbound
	log      *zap.Logger

	MatchFound  chan *signaling.MatchFoundPayload
	QueueStatus chan *signaling.QueueStatusPayload
	Signal      chan *Signal
	CallEnded   chan struct{}
	Error       chan error

	// Disconnected is closed once the relay connection is gone.
	Disconnected chan struct{}

	stop     chan struct{}
	stopOnce sync.Once
}

// NewHandler creates a new message handler.
func NewHandler(incoming <-chan *Inbound, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		incoming:     incoming,
		log:          log.Named("handler"),
		MatchFound:   make(chan *signaling.MatchFoundPayload, 1),
		QueueStatus:  make(chan *signaling.QueueStatusPayload, 1),
		Signal:       make(chan *Signal, 64),
		CallEnded:    make(chan struct{}, 1),
		Error:        make(chan error, 8),
		Disconnected: make(chan struct{}),
		stop:         make(chan struct{}),
	}
}

// Start begins listening to incoming messages and routing them. It returns
// when the connection drops or Stop is called.
func (h *Handler) Start() {
	defer close(h.Disconnected)

	for {
		var msg *Inbound
		select {
		case m, ok := <-h.incoming:
			if !ok {
				return
			}
			msg = m
		case <-h.stop:
			return
		}

		switch msg.Type {
		case signaling.EventMatchFound:
			var p signaling.MatchFoundPayload
			if err := convert(msg.Payload, &p); err != nil {
				h.fail(WrapError("parse match_found", ErrMalformedPayload, err.Error()))
				continue
			}
			latest(h.MatchFound, &p)

		case signaling.EventQueueStatus:
			var p signaling.QueueStatusPayload
			if err := convert(msg.Payload, &p); err != nil {
				h.fail(WrapError("parse queue_status", ErrMalformedPayload, err.Error()))
				continue
			}
			latest(h.QueueStatus, &p)

		case signaling.EventOffer, signaling.EventAnswer, signaling.EventICECandidate:
			sig, err := parseSignal(msg)
			if err != nil {
				h.fail(err)
				continue
			}
			select {
			case h.Signal <- sig:
			case <-h.stop:
				return
			}

		case signaling.EventCallEnded:
			latest(h.CallEnded, struct{}{})

		default:
			h.log.Debug("ignoring event", zap.String("type", string(msg.Type)))
		}
	}
}

// Stop makes Start return without waiting for the connection to drop.
func (h *Handler) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

func (h *Handler) fail(err error) {
	h.log.Debug("bad message from relay", zap.Error(err))
	select {
	case h.Error <- err:
	default:
	}
}

func parseSignal(msg *Inbound) (*Signal, error) {
	var p signaling.SignalPayload
	if err := convert(msg.Payload, &p); err != nil {
		return nil, WrapError("parse signal", ErrMalformedPayload, err.Error())
	}

	sig := &Signal{Type: msg.Type, From: p.From}
	var err error
	switch msg.Type {
	case signaling.EventOffer:
		sig.Description, err = parseDescription(p.Offer, pion.SDPTypeOffer)
	case signaling.EventAnswer:
		sig.Description, err = parseDescription(p.Answer, pion.SDPTypeAnswer)
	case signaling.EventICECandidate:
		sig.Candidate, err = parseCandidate(p.Candidate)
	}
	if err != nil {
		return nil, err
	}
	return sig, nil
}

// latest delivers v, replacing an unread older value.
func latest[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
