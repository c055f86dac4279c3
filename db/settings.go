package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hexlocke/tvm-warden/game"
)

// Settings is one guild's persisted configuration, with defaults applied for
// absent rows and NULL columns.
type Settings struct {
	GuildID          string
	Prefix           string
	HostRoleID       string
	PlayerRoleID     string
	SpecRoleID       string
	ReplRoleID       string
	DeadRoleID       string
	NAChannelID      string
	SignupsChannelID string
	CanChangeNA      bool
	Locked           bool
	SignupsOpen      bool
	UseRoster        bool
	TotalPlayers     int
	TotalSignups     int
	Cycle            game.Cycle
}

// LogSettings is one guild's audit-logging configuration. The whitelist takes
// precedence over the blacklist.
type LogSettings struct {
	GuildID      string
	LogChannelID string
	Whitelist    []string
	Blacklist    []string
}

// Store backs the game engine and the command handlers with the config and
// logging tables. It implements game.Store.
type Store struct {
	DB *sql.DB
}

var _ game.Store = (*Store)(nil)

const defaultTotalPlayers = 12

// Settings loads a guild's configuration. A guild with no row yet gets the
// column defaults without creating one.
func (s *Store) Settings(ctx context.Context, guildID string) (Settings, error) {
	out := Settings{
		GuildID:      guildID,
		CanChangeNA:  true,
		SignupsOpen:  true,
		TotalPlayers: defaultTotalPlayers,
	}
	var cycleRaw []byte
	row := s.DB.QueryRowContext(ctx, `
		SELECT COALESCE(prefix, ''), COALESCE(host_role_id, ''), COALESCE(player_role_id, ''),
		       COALESCE(spec_role_id, ''), COALESCE(repl_role_id, ''), COALESCE(dead_role_id, ''),
		       COALESCE(na_channel_id, ''), COALESCE(signups_channel_id, ''),
		       COALESCE(can_change_na, TRUE), COALESCE(settings_locked, FALSE),
		       COALESCE(signups_open, TRUE), COALESCE(use_roster, FALSE),
		       COALESCE(total_players, $2), COALESCE(total_signups, 0), cycle
		FROM config WHERE guild_id = $1`, guildID, defaultTotalPlayers)
	err := row.Scan(&out.Prefix, &out.HostRoleID, &out.PlayerRoleID,
		&out.SpecRoleID, &out.ReplRoleID, &out.DeadRoleID,
		&out.NAChannelID, &out.SignupsChannelID,
		&out.CanChangeNA, &out.Locked, &out.SignupsOpen, &out.UseRoster,
		&out.TotalPlayers, &out.TotalSignups, &cycleRaw)
	if err == sql.ErrNoRows {
		return out, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	if len(cycleRaw) > 0 {
		if err := json.Unmarshal(cycleRaw, &out.Cycle); err != nil {
			return Settings{}, fmt.Errorf("decode cycle: %w", err)
		}
	}
	return out, nil
}

// setColumn upserts a single config column. Callers pass only constant column
// names, never user input.
func (s *Store) setColumn(ctx context.Context, guildID, column string, value any) error {
	q := fmt.Sprintf(`INSERT INTO config(guild_id, %s, updated_at) VALUES($1,$2,NOW())
		ON CONFLICT(guild_id) DO UPDATE SET %s=EXCLUDED.%s, updated_at=NOW()`, column, column, column)
	if _, err := s.DB.ExecContext(ctx, q, guildID, value); err != nil {
		return fmt.Errorf("set %s: %w", column, err)
	}
	return nil
}

func (s *Store) SetPrefix(ctx context.Context, guildID, prefix string) error {
	return s.setColumn(ctx, guildID, "prefix", prefix)
}

func (s *Store) SetHostRole(ctx context.Context, guildID, roleID string) error {
	return s.setColumn(ctx, guildID, "host_role_id", roleID)
}

func (s *Store) SetPlayerRole(ctx context.Context, guildID, roleID string) error {
	return s.setColumn(ctx, guildID, "player_role_id", roleID)
}

func (s *Store) SetSpecRole(ctx context.Context, guildID, roleID string) error {
	return s.setColumn(ctx, guildID, "spec_role_id", roleID)
}

func (s *Store) SetReplRole(ctx context.Context, guildID, roleID string) error {
	return s.setColumn(ctx, guildID, "repl_role_id", roleID)
}

func (s *Store) SetDeadRole(ctx context.Context, guildID, roleID string) error {
	return s.setColumn(ctx, guildID, "dead_role_id", roleID)
}

func (s *Store) SetSignupsChannel(ctx context.Context, guildID, channelID string) error {
	return s.setColumn(ctx, guildID, "signups_channel_id", channelID)
}

func (s *Store) SetCanChangeNA(ctx context.Context, guildID string, v bool) error {
	return s.setColumn(ctx, guildID, "can_change_na", v)
}

func (s *Store) SetLocked(ctx context.Context, guildID string, v bool) error {
	return s.setColumn(ctx, guildID, "settings_locked", v)
}

func (s *Store) SetSignupsOpen(ctx context.Context, guildID string, v bool) error {
	return s.setColumn(ctx, guildID, "signups_open", v)
}

func (s *Store) SetUseRoster(ctx context.Context, guildID string, v bool) error {
	return s.setColumn(ctx, guildID, "use_roster", v)
}

func (s *Store) SetTotalPlayers(ctx context.Context, guildID string, n int) error {
	return s.setColumn(ctx, guildID, "total_players", n)
}

func (s *Store) SetTotalSignups(ctx context.Context, guildID string, n int) error {
	return s.setColumn(ctx, guildID, "total_signups", n)
}

// AdjustTotalSignups shifts the signup counter by delta, clamped at zero.
func (s *Store) AdjustTotalSignups(ctx context.Context, guildID string, delta int) error {
	q := `INSERT INTO config(guild_id, total_signups, updated_at) VALUES($1, GREATEST($2, 0), NOW())
		  ON CONFLICT(guild_id) DO UPDATE
		  SET total_signups = GREATEST(COALESCE(config.total_signups, 0) + $2, 0), updated_at=NOW()`
	if _, err := s.DB.ExecContext(ctx, q, guildID, delta); err != nil {
		return fmt.Errorf("adjust total signups: %w", err)
	}
	return nil
}

// Cycle implements game.Store.
func (s *Store) Cycle(ctx context.Context, guildID string) (game.Cycle, error) {
	var raw []byte
	row := s.DB.QueryRowContext(ctx, `SELECT cycle FROM config WHERE guild_id = $1`, guildID)
	err := row.Scan(&raw)
	if err == sql.ErrNoRows {
		return game.Cycle{}, nil
	}
	if err != nil {
		return game.Cycle{}, fmt.Errorf("load cycle: %w", err)
	}
	var c game.Cycle
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &c); err != nil {
			return game.Cycle{}, fmt.Errorf("decode cycle: %w", err)
		}
	}
	return c, nil
}

// SetCycle implements game.Store, replacing the stored cycle wholesale.
func (s *Store) SetCycle(ctx context.Context, guildID string, c game.Cycle) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cycle: %w", err)
	}
	return s.setColumn(ctx, guildID, "cycle", raw)
}

// ResetNightActions implements game.Store.
func (s *Store) ResetNightActions(ctx context.Context, guildID string) error {
	return s.setColumn(ctx, guildID, "na_submitted", []byte(`[]`))
}

// NightActionsChannel implements game.Store.
func (s *Store) NightActionsChannel(ctx context.Context, guildID string) (string, error) {
	var id sql.NullString
	row := s.DB.QueryRowContext(ctx, `SELECT na_channel_id FROM config WHERE guild_id = $1`, guildID)
	err := row.Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load night-actions channel: %w", err)
	}
	return id.String, nil
}

// SetNightActionsChannel implements game.Store.
func (s *Store) SetNightActionsChannel(ctx context.Context, guildID, channelID string) error {
	return s.setColumn(ctx, guildID, "na_channel_id", channelID)
}

// NASubmitted returns the user IDs that already submitted a night action this
// night.
func (s *Store) NASubmitted(ctx context.Context, guildID string) ([]string, error) {
	return s.jsonArray(ctx, "config", "na_submitted", guildID)
}

// AddNASubmitted records a submission; added is false when the user was
// already in the set.
func (s *Store) AddNASubmitted(ctx context.Context, guildID, userID string) (added bool, err error) {
	q := `INSERT INTO config(guild_id, na_submitted, updated_at) VALUES($1, jsonb_build_array($2::text), NOW())
		  ON CONFLICT(guild_id) DO UPDATE
		  SET na_submitted = config.na_submitted || to_jsonb($2::text), updated_at=NOW()
		  WHERE NOT config.na_submitted @> to_jsonb($2::text)`
	res, err := s.DB.ExecContext(ctx, q, guildID, userID)
	if err != nil {
		return false, fmt.Errorf("record night action: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Roster returns the guild's player roster (display tags).
func (s *Store) Roster(ctx context.Context, guildID string) ([]string, error) {
	return s.jsonArray(ctx, "config", "roster", guildID)
}

// AddToRoster inserts a display tag if absent.
func (s *Store) AddToRoster(ctx context.Context, guildID, tag string) error {
	q := `INSERT INTO config(guild_id, roster, updated_at) VALUES($1, jsonb_build_array($2::text), NOW())
		  ON CONFLICT(guild_id) DO UPDATE
		  SET roster = config.roster || to_jsonb($2::text), updated_at=NOW()
		  WHERE NOT config.roster @> to_jsonb($2::text)`
	if _, err := s.DB.ExecContext(ctx, q, guildID, tag); err != nil {
		return fmt.Errorf("add to roster: %w", err)
	}
	return nil
}

// RemoveFromRoster drops a display tag if present.
func (s *Store) RemoveFromRoster(ctx context.Context, guildID, tag string) error {
	q := `UPDATE config SET roster = roster - $2, updated_at=NOW() WHERE guild_id = $1`
	if _, err := s.DB.ExecContext(ctx, q, guildID, tag); err != nil {
		return fmt.Errorf("remove from roster: %w", err)
	}
	return nil
}

// LogSettings loads a guild's audit-logging configuration; absent rows come
// back as the zero configuration (logging disabled).
func (s *Store) LogSettings(ctx context.Context, guildID string) (LogSettings, error) {
	out := LogSettings{GuildID: guildID}
	var wl, bl []byte
	row := s.DB.QueryRowContext(ctx, `
		SELECT COALESCE(log_channel_id, ''), whitelist_channel_ids, blacklist_channel_ids
		FROM logging WHERE guild_id = $1`, guildID)
	err := row.Scan(&out.LogChannelID, &wl, &bl)
	if err == sql.ErrNoRows {
		return out, nil
	}
	if err != nil {
		return LogSettings{}, fmt.Errorf("load log settings: %w", err)
	}
	if len(wl) > 0 {
		if err := json.Unmarshal(wl, &out.Whitelist); err != nil {
			return LogSettings{}, fmt.Errorf("decode log whitelist: %w", err)
		}
	}
	if len(bl) > 0 {
		if err := json.Unmarshal(bl, &out.Blacklist); err != nil {
			return LogSettings{}, fmt.Errorf("decode log blacklist: %w", err)
		}
	}
	return out, nil
}

// SetLogChannel points the audit logger at a channel; empty disables it.
func (s *Store) SetLogChannel(ctx context.Context, guildID, channelID string) error {
	q := `INSERT INTO logging(guild_id, log_channel_id, updated_at) VALUES($1,$2,NOW())
		  ON CONFLICT(guild_id) DO UPDATE SET log_channel_id=EXCLUDED.log_channel_id, updated_at=NOW()`
	if _, err := s.DB.ExecContext(ctx, q, guildID, channelID); err != nil {
		return fmt.Errorf("set log channel: %w", err)
	}
	return nil
}

func (s *Store) AddLogWhitelist(ctx context.Context, guildID, channelID string) error {
	return s.addLogList(ctx, guildID, "whitelist_channel_ids", channelID)
}

func (s *Store) RemoveLogWhitelist(ctx context.Context, guildID, channelID string) error {
	return s.removeLogList(ctx, guildID, "whitelist_channel_ids", channelID)
}

func (s *Store) AddLogBlacklist(ctx context.Context, guildID, channelID string) error {
	return s.addLogList(ctx, guildID, "blacklist_channel_ids", channelID)
}

func (s *Store) RemoveLogBlacklist(ctx context.Context, guildID, channelID string) error {
	return s.removeLogList(ctx, guildID, "blacklist_channel_ids", channelID)
}

func (s *Store) addLogList(ctx context.Context, guildID, column, channelID string) error {
	q := fmt.Sprintf(`INSERT INTO logging(guild_id, %s, updated_at) VALUES($1, jsonb_build_array($2::text), NOW())
		ON CONFLICT(guild_id) DO UPDATE
		SET %s = logging.%s || to_jsonb($2::text), updated_at=NOW()
		WHERE NOT logging.%s @> to_jsonb($2::text)`, column, column, column, column)
	if _, err := s.DB.ExecContext(ctx, q, guildID, channelID); err != nil {
		return fmt.Errorf("add to %s: %w", column, err)
	}
	return nil
}

func (s *Store) removeLogList(ctx context.Context, guildID, column, channelID string) error {
	q := fmt.Sprintf(`UPDATE logging SET %s = %s - $2, updated_at=NOW() WHERE guild_id = $1`, column, column)
	if _, err := s.DB.ExecContext(ctx, q, guildID, channelID); err != nil {
		return fmt.Errorf("remove from %s: %w", column, err)
	}
	return nil
}

func (s *Store) jsonArray(ctx context.Context, table, column, guildID string) ([]string, error) {
	var raw []byte
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE guild_id = $1`, column, table)
	err := s.DB.QueryRowContext(ctx, q, guildID).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", column, err)
	}
	var out []string
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("decode %s: %w", column, err)
		}
	}
	return out, nil
}
