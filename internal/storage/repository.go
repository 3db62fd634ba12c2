package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mhso/intfar/internal/game"
)

var (
	// ErrNotFound is returned when a lookup matches no rows.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyRegistered is returned when an account is linked twice.
	ErrAlreadyRegistered = errors.New("account already registered")
)

// Repository handles all database operations
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new repository with SQLite
func NewRepository(dbPath string) (*Repository, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Poll tasks of several games write concurrently.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate creates the database schema
func (r *Repository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			guild_id VARCHAR(20) NOT NULL,
			user_id VARCHAR(20) NOT NULL,
			game VARCHAR(10) NOT NULL,
			external_id VARCHAR(100) NOT NULL,
			display_name VARCHAR(50) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(guild_id, game, external_id)
		)`,
		`CREATE TABLE IF NOT EXISTS guild_settings (
			guild_id VARCHAR(20) PRIMARY KEY,
			notification_channel_id VARCHAR(20),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS matches (
			game VARCHAR(10) NOT NULL,
			match_id VARCHAR(50) NOT NULL,
			guild_id VARCHAR(20) NOT NULL,
			status VARCHAR(20) NOT NULL,
			started_at TIMESTAMP,
			duration_seconds INTEGER NOT NULL DEFAULT 0,
			participants INTEGER NOT NULL DEFAULT 0,
			recorded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (game, match_id)
		)`,
		`CREATE TABLE IF NOT EXISTS missed_matches (
			game VARCHAR(10) NOT NULL,
			match_id VARCHAR(50) NOT NULL,
			guild_id VARCHAR(20) NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (game, match_id, guild_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_guild ON accounts(guild_id, game)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_guild ON matches(guild_id, recorded_at)`,
	}

	for _, migration := range migrations {
		if _, err := r.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// Account operations

// RegisterAccount links an external account to a Discord user
func (r *Repository) RegisterAccount(ctx context.Context, a *Account) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (guild_id, user_id, game, external_id, display_name) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(guild_id, game, external_id) DO NOTHING`,
		a.GuildID, a.UserID, string(a.Game), a.ExternalID, a.DisplayName,
	)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAlreadyRegistered
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = id
	return nil
}

// UnregisterAccounts removes every account a user linked for a game and
// returns how many were removed
func (r *Repository) UnregisterAccounts(ctx context.Context, guildID, userID string, gameType game.GameType) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM accounts WHERE guild_id = ? AND user_id = ? AND game = ?`,
		guildID, userID, string(gameType),
	)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrNotFound
	}
	return n, nil
}

// AccountsByGuild returns all accounts registered in a guild
func (r *Repository) AccountsByGuild(ctx context.Context, guildID string) ([]*Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, guild_id, user_id, game, external_id, display_name, created_at
		 FROM accounts WHERE guild_id = ? ORDER BY game, user_id, id`,
		guildID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*Account
	for rows.Next() {
		a := &Account{}
		var gameType string
		if err := rows.Scan(&a.ID, &a.GuildID, &a.UserID, &gameType, &a.ExternalID, &a.DisplayName, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Game = game.GameType(gameType)
		accounts = append(accounts, a)
	}

	return accounts, rows.Err()
}

// PlayersForUsers returns the registered players among the given users for
// a game, with their accounts in registration order. Users without an
// account are left out.
func (r *Repository) PlayersForUsers(ctx context.Context, guildID string, gameType game.GameType, userIDs []string) ([]game.Player, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	wanted := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = true
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, external_id, display_name FROM accounts
		 WHERE guild_id = ? AND game = ? ORDER BY user_id, id`,
		guildID, string(gameType),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []game.Player
	for rows.Next() {
		var userID, externalID, name string
		if err := rows.Scan(&userID, &externalID, &name); err != nil {
			return nil, err
		}
		if !wanted[userID] {
			continue
		}
		if n := len(players); n > 0 && players[n-1].UserID == userID {
			players[n-1].ExternalIDs = append(players[n-1].ExternalIDs, externalID)
			continue
		}
		players = append(players, game.Player{UserID: userID, DisplayName: name, ExternalIDs: []string{externalID}})
	}

	return players, rows.Err()
}

// Match operations

// MatchAlreadyRecorded reports whether a match has been saved
func (r *Repository) MatchAlreadyRecorded(ctx context.Context, gameType game.GameType, matchID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM matches WHERE game = ? AND match_id = ?`,
		string(gameType), matchID,
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SaveMatch records a finished match. Saving the same match twice is a no-op.
func (r *Repository) SaveMatch(ctx context.Context, m *RecordedMatch) error {
	var startedAt any
	if !m.StartedAt.IsZero() {
		startedAt = m.StartedAt.UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO matches (game, match_id, guild_id, status, started_at, duration_seconds, participants)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(game, match_id) DO NOTHING`,
		string(m.Game), m.MatchID, m.GuildID, m.Status, startedAt, int64(m.Duration/time.Second), m.Participants,
	)
	return err
}

// RecentMatches returns the latest matches recorded for a guild
func (r *Repository) RecentMatches(ctx context.Context, guildID string, limit int) ([]*RecordedMatch, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT game, match_id, guild_id, status, started_at, duration_seconds, participants, recorded_at
		 FROM matches WHERE guild_id = ? ORDER BY recorded_at DESC, rowid DESC LIMIT ?`,
		guildID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []*RecordedMatch
	for rows.Next() {
		m := &RecordedMatch{}
		var (
			gameType  string
			startedAt sql.NullTime
			seconds   int64
		)
		if err := rows.Scan(&gameType, &m.MatchID, &m.GuildID, &m.Status, &startedAt, &seconds, &m.Participants, &m.RecordedAt); err != nil {
			return nil, err
		}
		m.Game = game.GameType(gameType)
		m.StartedAt = startedAt.Time
		m.Duration = time.Duration(seconds) * time.Second
		matches = append(matches, m)
	}

	return matches, rows.Err()
}

// SaveMissedMatch records a match that could not be classified
func (r *Repository) SaveMissedMatch(ctx context.Context, m *MissedMatch) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO missed_matches (game, match_id, guild_id, reason) VALUES (?, ?, ?, ?)
		 ON CONFLICT(game, match_id, guild_id) DO UPDATE SET reason = excluded.reason`,
		string(m.Game), m.MatchID, m.GuildID, m.Reason,
	)
	return err
}

// MissedMatches returns the matches of a guild waiting for a backfill
func (r *Repository) MissedMatches(ctx context.Context, guildID string) ([]*MissedMatch, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT game, match_id, guild_id, reason, created_at FROM missed_matches WHERE guild_id = ? ORDER BY created_at, match_id`,
		guildID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var missed []*MissedMatch
	for rows.Next() {
		m := &MissedMatch{}
		var gameType string
		if err := rows.Scan(&gameType, &m.MatchID, &m.GuildID, &m.Reason, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Game = game.GameType(gameType)
		missed = append(missed, m)
	}

	return missed, rows.Err()
}

// Guild settings operations

// UpsertGuildSettings creates or updates guild settings
func (r *Repository) UpsertGuildSettings(ctx context.Context, settings *GuildSettings) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO guild_settings (guild_id, notification_channel_id) VALUES (?, ?)
		 ON CONFLICT(guild_id) DO UPDATE SET notification_channel_id = excluded.notification_channel_id`,
		settings.GuildID, settings.NotificationChannelID,
	)
	return err
}

// GetGuildSettings retrieves guild settings
func (r *Repository) GetGuildSettings(ctx context.Context, guildID string) (*GuildSettings, error) {
	settings := &GuildSettings{}
	err := r.db.QueryRowContext(ctx,
		`SELECT guild_id, notification_channel_id, created_at FROM guild_settings WHERE guild_id = ?`,
		guildID,
	).Scan(&settings.GuildID, &settings.NotificationChannelID, &settings.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return settings, nil
}

// MatchLedger answers duplicate checks for one game
type MatchLedger struct {
	repo     *Repository
	gameType game.GameType
}

// Ledger returns the recorded matches of one game
func (r *Repository) Ledger(gameType game.GameType) *MatchLedger {
	return &MatchLedger{repo: r, gameType: gameType}
}

func (l *MatchLedger) MatchAlreadyRecorded(ctx context.Context, matchID string) (bool, error) {
	return l.repo.MatchAlreadyRecorded(ctx, l.gameType, matchID)
}
