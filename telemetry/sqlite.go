package telemetry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder keeps a queryable history of matches, mode changes,
// reports and events. Writes happen on one goroutine.
type SQLiteRecorder struct {
	db *sql.DB
	q  *queue

	wg   sync.WaitGroup
	once sync.Once
}

func OpenSQLite(path string, buffer int) (*SQLiteRecorder, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite pragmas: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	r := &SQLiteRecorder{db: db, q: newQueue(buffer)}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.loop()
	}()
	return r, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS matches (
			match_id TEXT PRIMARY KEY,
			player TEXT NOT NULL,
			race TEXT NOT NULL,
			started_tick INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS modes (
			id TEXT PRIMARY KEY,
			match_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			game_time REAL NOT NULL,
			mode TEXT NOT NULL,
			detail_json TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS reports (
			id TEXT PRIMARY KEY,
			match_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			game_time REAL NOT NULL,
			threat TEXT NOT NULL,
			opportunity TEXT NOT NULL,
			army_value REAL NOT NULL,
			enemy_army_value REAL NOT NULL,
			report_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			match_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			game_time REAL NOT NULL,
			name TEXT NOT NULL,
			detail_json TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS modes_match ON modes(match_id, tick);`,
		`CREATE INDEX IF NOT EXISTS reports_match ON reports(match_id, tick);`,
		`CREATE INDEX IF NOT EXISTS events_match ON events(match_id, tick);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteRecorder) Publish(e Event) error { return r.q.offer(e) }

func (r *SQLiteRecorder) Dropped() uint64 { return r.q.dropped.Load() }

// Close flushes queued events and closes the database.
func (r *SQLiteRecorder) Close() error {
	var err error
	r.once.Do(func() {
		r.q.close()
		r.wg.Wait()
		err = r.db.Close()
	})
	return err
}

func (r *SQLiteRecorder) loop() {
	for e := range r.q.ch {
		if err := r.insert(e); err != nil {
			slog.Warn("telemetry write failed", "sink", "sqlite", "kind", e.Kind, "error", err)
		}
	}
}

func (r *SQLiteRecorder) insert(e Event) error {
	detail, err := marshalDetail(e.Detail)
	if err != nil {
		return err
	}
	switch e.Kind {
	case KindMatch:
		player, _ := e.Detail["player"].(string)
		race, _ := e.Detail["race"].(string)
		_, err = r.db.Exec(
			`INSERT OR IGNORE INTO matches(match_id, player, race, started_tick) VALUES(?,?,?,?)`,
			e.MatchID, player, race, e.Tick,
		)
	case KindMode:
		_, err = r.db.Exec(
			`INSERT INTO modes(id, match_id, tick, game_time, mode, detail_json) VALUES(?,?,?,?,?,?)`,
			uuid.NewString(), e.MatchID, e.Tick, e.Time, e.Mode.String(), detail,
		)
	case KindReport:
		if e.Report == nil {
			return fmt.Errorf("report event without report")
		}
		b, merr := json.Marshal(e.Report)
		if merr != nil {
			return merr
		}
		_, err = r.db.Exec(
			`INSERT INTO reports(id, match_id, tick, game_time, threat, opportunity, army_value, enemy_army_value, report_json)
			 VALUES(?,?,?,?,?,?,?,?,?)`,
			uuid.NewString(), e.MatchID, e.Tick, e.Time,
			e.Report.Threat.String(), e.Report.Opportunity.String(),
			e.Report.Military.ArmyValue, e.Report.Military.EnemyArmyValue, string(b),
		)
	case KindEvent:
		_, err = r.db.Exec(
			`INSERT INTO events(id, match_id, tick, game_time, name, detail_json) VALUES(?,?,?,?,?,?)`,
			uuid.NewString(), e.MatchID, e.Tick, e.Time, e.Name, detail,
		)
	default:
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
	return err
}

func marshalDetail(d map[string]any) (sql.NullString, error) {
	if len(d) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("detail: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// ModeChange is one recorded mode transition.
type ModeChange struct {
	Tick int
	Time float64
	Mode string
}

// ModeHistory returns a match's mode changes in tick order.
func (r *SQLiteRecorder) ModeHistory(ctx context.Context, matchID string) ([]ModeChange, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT tick, game_time, mode FROM modes WHERE match_id = ? ORDER BY tick, rowid`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ModeChange
	for rows.Next() {
		var m ModeChange
		if err := rows.Scan(&m.Tick, &m.Time, &m.Mode); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// EventCounts returns how many times each named event fired in a match.
func (r *SQLiteRecorder) EventCounts(ctx context.Context, matchID string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, COUNT(*) FROM events WHERE match_id = ? GROUP BY name`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, err
		}
		out[name] = n
	}
	return out, rows.Err()
}
