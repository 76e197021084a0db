package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/warpcall/warpcall/internal/config"
	"github.com/warpcall/warpcall/internal/protocol"
)

var (
	flagServer  string
	flagSTUN    []string
	flagCodec   string
	flagTimeout time.Duration
	flagNoAudio bool
	flagNoVideo bool
)

var joinCmd = &cobra.Command{
	Use:     "join [ROOM]",
	Aliases: []string{"j"},
	Short:   "Join a room and start a call",
	Long: `Join a room and call whoever else joins it. Without a ROOM argument a
fresh room ID is generated; share it with the other participant.

Examples:
  warpcall join
  warpcall join X7Q
  warpcall join X7Q --server wss://relay.example.com/ws --codec msgpack
  warpcall join X7Q --no-video`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		roomID := protocol.GenerateRoomID()
		if len(args) == 1 {
			normalized, err := protocol.NormalizeRoomID(args[0])
			if err != nil {
				return err
			}
			roomID = normalized
		}

		cfg, err := LoadConfig(config.Options{
			ServerURL:          flagServer,
			STUNServers:        flagSTUN,
			Codec:              flagCodec,
			NegotiationTimeout: timeoutOverride(cmd),
			NoAudio:            flagNoAudio,
			NoVideo:            flagNoVideo,
		})
		if err != nil {
			return err
		}

		return runCall(cmd.Context(), cfg, roomID)
	},
}

// timeoutOverride is nil unless --timeout was given, so an explicit 0
// disables the timeout instead of falling back to the default.
func timeoutOverride(cmd *cobra.Command) *time.Duration {
	if !cmd.Flags().Changed("timeout") {
		return nil
	}
	d, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil
	}
	return &d
}

func init() {
	rootCmd.AddCommand(joinCmd)

	joinCmd.Flags().StringVarP(&flagServer, "server", "s", "", "Relay websocket URL")
	joinCmd.Flags().StringSliceVar(&flagSTUN, "stun", nil, "STUN server URLs (repeatable)")
	joinCmd.Flags().StringVar(&flagCodec, "codec", "", "Signaling encoding: json or msgpack")
	joinCmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "Negotiation timeout, 0 disables (default 30s)")
	joinCmd.Flags().BoolVar(&flagNoAudio, "no-audio", false, "Start with the microphone muted")
	joinCmd.Flags().BoolVar(&flagNoVideo, "no-video", false, "Start with the camera off")
}
