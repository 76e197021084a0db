package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/warpcall/warpcall/internal/config"
	"github.com/warpcall/warpcall/internal/server"
	"github.com/warpcall/warpcall/internal/ui"
)

var flagRoomsServer string

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "List the rooms currently open on a relay",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(config.Options{ServerURL: flagRoomsServer})
		if err != nil {
			return err
		}

		stopSpinner := ui.RunConnectionSpinner("Fetching rooms...")
		rooms, err := fetchRooms(cfg.HTTPURL("/rooms"))
		stopSpinner()
		if err != nil {
			return err
		}

		if len(rooms) == 0 {
			ui.PrintInfo("No active rooms")
			return nil
		}

		rows := make([]ui.RoomRow, len(rooms))
		for i, r := range rooms {
			rows[i] = ui.RoomRow{RoomID: r.RoomID, Members: r.Members}
		}
		ui.RenderRooms(os.Stdout, rows)
		return nil
	},
}

func fetchRooms(url string) ([]server.RoomInfo, error) {
	client := &http.Client{Timeout: 10 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to reach relay: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("relay returned %s", resp.Status)
	}

	var rooms []server.RoomInfo
	if err := json.NewDecoder(resp.Body).Decode(&rooms); err != nil {
		return nil, fmt.Errorf("decode room list: %w", err)
	}
	return rooms, nil
}

func init() {
	rootCmd.AddCommand(roomsCmd)

	roomsCmd.Flags().StringVarP(&flagRoomsServer, "server", "s", "", "Relay websocket URL")
}
