package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/warpcall/warpcall/internal/config"
	"github.com/warpcall/warpcall/internal/logging"
	"github.com/warpcall/warpcall/internal/media"
	"github.com/warpcall/warpcall/internal/negotiation"
	"github.com/warpcall/warpcall/internal/protocol"
	"github.com/warpcall/warpcall/internal/signaling"
	"github.com/warpcall/warpcall/internal/ui"
	"github.com/warpcall/warpcall/internal/webrtc"
)

// releaseTimeout bounds how long we wait for in-flight operations after leaving.
const releaseTimeout = 5 * time.Second

// LoadConfig loads configuration with CLI flag overrides
func LoadConfig(opts config.Options) (*config.Config, error) {
	return config.Load(opts)
}

// NewCallSession wires the negotiation session to the websocket relay client,
// pion and the local media provider.
func NewCallSession(cfg *config.Config, roomID string) (*negotiation.Session, error) {
	codec, err := protocol.CodecByName(cfg.Codec)
	if err != nil {
		return nil, err
	}

	peers, err := webrtc.NewFactory(cfg.GetSTUNServers(), logging.Component("webrtc"))
	if err != nil {
		return nil, err
	}

	sigLog := logging.Component("signaling")
	dialURL := cfg.DialURL()

	return negotiation.New(negotiation.Options{
		RoomID:      roomID,
		Media:       media.NewSyntheticProvider(logging.Component("media")),
		Constraints: media.DefaultConstraints(),
		Dial: func(ctx context.Context) (negotiation.Channel, error) {
			c, err := signaling.Dial(ctx, dialURL, codec, sigLog)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
		Peers:              peers,
		NegotiationTimeout: cfg.NegotiationTimeout,
		NoAudio:            !cfg.Audio,
		NoVideo:            !cfg.Video,
		Logger:             logging.Component("negotiation"),
	}), nil
}

func runCall(ctx context.Context, cfg *config.Config, roomID string) error {
	fmt.Println()
	fmt.Println(ui.RoomInfoView(roomID))

	session, err := NewCallSession(cfg, roomID)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := session.Join(ctx); err != nil {
		return err
	}

	model := ui.NewCallModel(session)
	_, runErr := tea.NewProgram(model, tea.WithContext(ctx)).Run()

	session.Leave()
	select {
	case <-session.Done():
	case <-time.After(releaseTimeout):
		ui.PrintWarning("Timed out waiting for the call to shut down")
	}

	summary := model.Summary()
	summary.State = session.State().String()
	fmt.Println()
	ui.RenderCallSummary(summary)

	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return runErr
	}
	if err := session.Err(); err != nil && negotiation.IsFatal(err) {
		return err
	}
	return nil
}
