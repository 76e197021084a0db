package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/warpcall/warpcall/internal/config"
	"github.com/warpcall/warpcall/internal/protocol"
	"github.com/warpcall/warpcall/internal/registry"
	"github.com/warpcall/warpcall/internal/relay"
)

// HealthResponse is served on /health.
type HealthResponse struct {
	Status string   `json:"status"`
	Rooms  []string `json:"rooms"`
}

// RoomInfo is one entry of the /rooms listing.
type RoomInfo struct {
	RoomID  string   `json:"room_id"`
	Members []string `json:"members"`
}

// NewRouter wires the websocket endpoint and the diagnostic endpoints.
func NewRouter(rl *relay.Relay, reg *registry.Registry, cfg *config.ServerConfig, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	r.Get("/health", healthHandler(reg))
	r.Get("/rooms", roomsHandler(reg))
	r.Get("/ws", ServeWs(rl, cfg, log))

	return r
}

// ServeWs returns an http.HandlerFunc that upgrades to a websocket and
// attaches the connection to the relay as a new session.
func ServeWs(rl *relay.Relay, cfg *config.ServerConfig, log zerolog.Logger) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  64 * 1024, // 64 KB
		WriteBufferSize: 64 * 1024, // 64 KB
		CheckOrigin: func(r *http.Request) bool {
			return cfg.OriginAllowed(r.Header.Get("Origin"))
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		codec, err := protocol.CodecByName(r.URL.Query().Get("codec"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Msg("failed to upgrade connection")
			return
		}

		client := rl.Attach(conn, codec)

		// These methods handle the session's lifecycle; ReadPump detaches it.
		go client.WritePump()
		go client.ReadPump()
	}
}

func healthHandler(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Rooms: reg.Rooms()})
	}
}

func roomsHandler(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms := make([]RoomInfo, 0)
		for _, id := range reg.Rooms() {
			members := reg.Members(id)
			if len(members) == 0 {
				continue
			}
			info := RoomInfo{RoomID: id, Members: make([]string, len(members))}
			for i, m := range members {
				info.Members[i] = m.String()
			}
			rooms = append(rooms, info)
		}
		writeJSON(w, http.StatusOK, rooms)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
