package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/BioHazard786/Pairline/internal/config"
	"github.com/BioHazard786/Pairline/internal/logging"
	"github.com/BioHazard786/Pairline/internal/peer"
	"github.com/BioHazard786/Pairline/internal/ui"
)

var (
	flagServer   string
	flagUser     string
	flagSTUN     string
	flagTURN     string
	flagTURNUser string
	flagTURNPass string
	flagRelay    bool
	flagMsgpack  bool
	flagDuration time.Duration
)

var peerCmd = &cobra.Command{
	Use:   "peer",
	Short: "Join the queue and hold a call with whoever you are matched with",
	Long: `Join the relay's queue, then negotiate a WebRTC data channel with the matched
peer and exchange a greeting over it. The call lasts until you press q, the
peer hangs up or --duration elapses.

Examples:
  pairline peer
  pairline peer --user alice --duration 30s
  pairline peer --server wss://relay.example.com/ws --msgpack`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPeer(cmd.Context())
	},
}

func init() {
	peerCmd.Flags().StringVar(&flagServer, "server", "", "Relay websocket URL (env PAIRLINE_SERVER)")
	peerCmd.Flags().StringVar(&flagUser, "user", "", "User ID to join with (default: assigned by the relay)")
	peerCmd.Flags().StringVar(&flagSTUN, "stun", "", "STUN server URL (env STUN_SERVER)")
	peerCmd.Flags().StringVar(&flagTURN, "turn", "", "TURN server host (env TURN_SERVER)")
	peerCmd.Flags().StringVar(&flagTURNUser, "turn-user", "", "TURN username (env TURN_USERNAME)")
	peerCmd.Flags().StringVar(&flagTURNPass, "turn-pass", "", "TURN password (env TURN_PASSWORD)")
	peerCmd.Flags().BoolVar(&flagRelay, "relay", false, "Only use TURN relay candidates")
	peerCmd.Flags().BoolVar(&flagMsgpack, "msgpack", false, "Talk to the relay in MessagePack instead of JSON")
	peerCmd.Flags().DurationVar(&flagDuration, "duration", 0, "Hang up after this long once matched (0 = until q)")

	rootCmd.AddCommand(peerCmd)
}

func runPeer(ctx context.Context) error {
	cfg, err := config.LoadPeer(config.PeerOptions{
		ServerURL:  flagServer,
		STUNServer: flagSTUN,
		TURNServer: flagTURN,
		TURNUser:   flagTURNUser,
		TURNPass:   flagTURNPass,
		ForceRelay: flagRelay,
	})
	if err != nil {
		return err
	}
	if !cfg.ForceRelay && peer.ShouldForceRelay() {
		if cfg.TURNServer != "" {
			cfg.ForceRelay = true
			ui.PrintWarning("VPN or CGNAT detected, using TURN relay only")
		} else {
			ui.PrintWarning("VPN or CGNAT detected, a direct connection may fail without --turn")
		}
	}

	// The terminal UI owns stdout; only errors are logged by default.
	log, err := logging.FromEnv(zapcore.ErrorLevel)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, hangUp := context.WithCancel(ctx)
	defer hangUp()

	stopSpinner := ui.RunConnectionSpinner("Connecting to relay...")
	client := peer.NewClient(cfg.ServerURL, flagMsgpack, log)
	err = client.Connect(ctx, flagUser)
	stopSpinner()
	if err != nil {
		return peer.NewError("connect to relay", err)
	}
	defer client.Close()
	ui.PrintSuccessf("Connected to %s (%s)", cfg.ServerURL, client.Codec().Name())

	handler := peer.NewHandler(client.Incoming(), log)
	go handler.Start()
	defer handler.Stop()

	session := peer.NewSession(cfg, client, handler, peer.Options{
		UserID:   flagUser,
		Duration: flagDuration,
	}, log)

	view := ui.NewCallView("Pairline", hangUp)
	view.Start()

	done := make(chan error, 1)
	go func() { done <- session.Run(ctx) }()

	var matched *peer.Update
	for u := range session.Updates() {
		if u.Stage == peer.StageMatched {
			matched = &u
		}
		view.Update(describe(u))
	}
	err = <-done

	final := ui.CallStatus{Icon: ui.IconHangUp, Text: "Call ended", State: "Bye", Done: true}
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		err = nil
	case errors.Is(err, peer.ErrPeerLeft):
		final.Text = "Peer hung up"
		err = nil
	default:
		final = ui.CallStatus{Icon: ui.IconError, Text: err.Error(), State: "Call failed", Done: true}
	}
	view.Update(final)
	view.Stop()

	if matched != nil {
		fmt.Println(ui.MatchView(matched.RoomID, matched.PeerID, matched.Role))
	}
	return err
}

func describe(u peer.Update) ui.CallStatus {
	switch u.Stage {
	case peer.StageQueued:
		return ui.CallStatus{
			Icon:  ui.IconWaiting,
			Text:  fmt.Sprintf("Waiting in queue (%d)", u.QueueSize),
			State: "Waiting for a match...",
		}
	case peer.StageMatched:
		return ui.CallStatus{
			Icon:  ui.IconPeer,
			Text:  fmt.Sprintf("Matched with %s in %s as %s", u.PeerID, u.RoomID, u.Role),
			State: "Negotiating...",
		}
	case peer.StageNegotiating:
		return ui.CallStatus{Icon: ui.IconConnect, Text: u.Detail}
	case peer.StageConnected:
		return ui.CallStatus{Icon: ui.IconConnect, Text: "ICE connected", State: "Opening data channel..."}
	case peer.StageChannelOpen:
		return ui.CallStatus{Icon: ui.IconSuccess, Text: "Data channel open"}
	case peer.StageHello:
		return ui.CallStatus{
			Icon:  ui.IconWave,
			Text:  fmt.Sprintf("Hello from %s (%s, %s)", u.PeerID, u.Role, u.Detail),
			State: "In call",
		}
	case peer.StageEnded:
		return ui.CallStatus{State: "Hanging up..."}
	}
	return ui.CallStatus{Text: u.Stage.String()}
}
