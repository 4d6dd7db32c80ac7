// Package sqlite stores the animation as rows of a features table, one row
// per feature, so a run can be queried by step, time or class.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	_ "modernc.org/sqlite"

	"meshviz/internal/transform"
	"meshviz/sink"
)

const defaultTable = "features"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type Config struct {
	Path    string `yaml:"path"`
	Table   string `yaml:"table"`
	Replace bool   `yaml:"replace"` // drop earlier rows instead of appending
}

type driver struct {
	cfg      Config
	features []transform.Feature
}

func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("sqlite-sink: expected Config, got %T", raw)
	}
	if strings.TrimSpace(c.Path) == "" {
		return errors.New("sqlite-sink: path is required")
	}
	if c.Table == "" {
		c.Table = defaultTable
	}
	if !tableName.MatchString(c.Table) {
		return fmt.Errorf("sqlite-sink: invalid table name %q", c.Table)
	}
	d.cfg = c
	return nil
}

func (d *driver) Push(f transform.Feature) error {
	d.features = append(d.features, f)
	return nil
}

// Flush writes every buffered feature in one transaction.
func (d *driver) Flush() error {
	return Write(context.Background(), d.cfg, d.features)
}

func (d *driver) Close() error {
	d.features = nil
	return nil
}

// Open opens the database behind cfg and makes sure the table exists.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	dsn := filepath.Clean(cfg.Path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+cfg.Table+` (
		seq     INTEGER PRIMARY KEY,
		step    INTEGER NOT NULL,
		time    TEXT    NOT NULL,
		kind    TEXT    NOT NULL,
		class   TEXT    NOT NULL,
		popup   TEXT    NOT NULL,
		feature TEXT    NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create table %s: %w", cfg.Table, err)
	}
	if _, err := db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS `+cfg.Table+`_time ON `+cfg.Table+` (time)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create index on %s: %w", cfg.Table, err)
	}
	return db, nil
}

// Write stores features after any rows already present, or in place of them
// when cfg.Replace is set. Sequence numbers continue from the table's maximum.
func Write(ctx context.Context, cfg Config, features []transform.Feature) (err error) {
	db, err := Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if cfg.Replace {
		if _, err = tx.ExecContext(ctx, `DELETE FROM `+cfg.Table); err != nil {
			return err
		}
	}
	var base int64
	if err = tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM `+cfg.Table).Scan(&base); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+cfg.Table+
		` (seq, step, time, kind, class, popup, feature) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, f := range features {
		body, mErr := json.Marshal(f.GeoJSON())
		if mErr != nil {
			err = mErr
			return err
		}
		if _, err = stmt.ExecContext(ctx, base+int64(i)+1, f.Step, f.Time, string(f.Kind), f.Class, f.Popup, string(body)); err != nil {
			return fmt.Errorf("insert feature %d: %w", i, err)
		}
	}
	return tx.Commit()
}

func init() {
	sink.Register("sqlite", func() sink.Adapter { return &driver{} })
}
