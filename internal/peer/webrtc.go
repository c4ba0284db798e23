package peer

import (
	pion "github.com/pion/webrtc/v4"

	"github.com/BioHazard786/Pairline/internal/config"
)

const dataChannelLabel = "pairline"

// NewPeerConnection builds a peer connection using the configured STUN and
// TURN servers.
func NewPeerConnection(cfg *config.Peer) (*pion.PeerConnection, error) {
	var iceServers []pion.ICEServer
	if stun := cfg.GetSTUNServers(); stun != nil {
		iceServers = append(iceServers, pion.ICEServer{URLs: stun})
	}
	turn := cfg.GetTURNServers()
	if turn != nil {
		iceServers = append(iceServers, pion.ICEServer{
			URLs:       turn,
			Username:   cfg.TURNUser,
			Credential: cfg.TURNPass,
		})
	}

	policy := pion.ICETransportPolicyAll
	if turn != nil && cfg.ForceRelay {
		policy = pion.ICETransportPolicyRelay
	}

	pc, err := pion.NewPeerConnection(pion.Configuration{
		ICEServers:         iceServers,
		ICETransportPolicy: policy,
	})
	if err != nil {
		return nil, NewError("create peer connection", err)
	}
	return pc, nil
}

// CreateDataChannel opens the ordered channel the call uses.
func CreateDataChannel(pc *pion.PeerConnection) (*pion.DataChannel, error) {
	ordered := true
	dc, err := pc.CreateDataChannel(dataChannelLabel, &pion.DataChannelInit{Ordered: &ordered})
	if err != nil {
		return nil, NewError("create data channel", err)
	}
	return dc, nil
}

func CreateOffer(pc *pion.PeerConnection) (*pion.SessionDescription, error) {
	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return nil, NewError("create offer", err)
	}

	if err = pc.SetLocalDescription(offer); err != nil {
		return nil, NewError("set local description", err)
	}

	return pc.LocalDescription(), nil
}

func CreateAnswer(pc *pion.PeerConnection, offer *pion.SessionDescription) (*pion.SessionDescription, error) {
	if err := pc.SetRemoteDescription(*offer); err != nil {
		return nil, NewError("set remote description", err)
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return nil, NewError("create answer", err)
	}

	if err = pc.SetLocalDescription(answer); err != nil {
		return nil, NewError("set local description", err)
	}

	return pc.LocalDescription(), nil
}
