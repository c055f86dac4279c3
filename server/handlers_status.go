package server

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"
)

// statusResponse is the JSON shape of /status.
type statusResponse struct {
	Uptime      string `json:"uptime"`
	Guilds      int    `json:"guilds"`
	ActiveGames int    `json:"active_games"`
	LastReady   string `json:"last_ready,omitempty"`
	DatabaseOK  bool   `json:"database_ok"`
}

// HandleStatus reports a coarse operational snapshot: configured guilds,
// guilds with a started game, and the last gateway ready heartbeat.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Uptime:     time.Since(h.started).Round(time.Second).String(),
		DatabaseOK: h.db.PingContext(r.Context()) == nil,
	}

	if resp.DatabaseOK {
		_ = h.db.QueryRowContext(r.Context(),
			"SELECT COUNT(*) FROM config").Scan(&resp.Guilds)
		_ = h.db.QueryRowContext(r.Context(),
			"SELECT COUNT(*) FROM config WHERE (cycle->>'number')::int > 0").Scan(&resp.ActiveGames)

		var lastReady sql.NullString
		if err := h.db.QueryRowContext(r.Context(),
			"SELECT value FROM kv WHERE key='last_ready'").Scan(&lastReady); err == nil && lastReady.Valid {
			resp.LastReady = lastReady.String
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
