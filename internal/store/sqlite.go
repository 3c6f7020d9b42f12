package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/scmmishra/linkpulse/internal/db"
	"github.com/scmmishra/linkpulse/internal/models"
)

const linkColumns = `code, target_url, owner_id, password_hash, tags, created_at, expires_at,
	is_active, total_clicks, unique_visitors, last_clicked_at, qr_code`

// SQLiteStore is the durable Backend.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and migrates) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	conn, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: conn}, nil
}

func NewSQLiteStore(conn *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: conn}
}

func (s *SQLiteStore) Name() string { return "sqlite" }

func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM issued_codes WHERE code = ''`).Scan(&n); err != nil {
		return fmt.Errorf("probe schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) InsertLink(ctx context.Context, l *models.Link) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO issued_codes (code) VALUES (?) ON CONFLICT(code) DO NOTHING`, l.Code)
	if err != nil {
		return fmt.Errorf("issue code: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("insert %q: %w", l.Code, models.ErrDuplicateCode)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO links (code, target_url, owner_id, password_hash, tags, created_at, expires_at, is_active, qr_code)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.Code, l.TargetURL, l.OwnerID, l.PasswordHash, models.JoinTags(l.Tags),
		l.CreatedAt.UTC(), nullTime(l.ExpiresAt), boolInt(l.IsActive), l.QRCode,
	)
	if err != nil {
		return fmt.Errorf("insert link: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetLink(ctx context.Context, code string) (*models.Link, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+linkColumns+` FROM links WHERE code = ?`, code)
	return scanLink(row)
}

func (s *SQLiteStore) ListLinksByOwner(ctx context.Context, ownerID string) ([]*models.Link, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+linkColumns+` FROM links WHERE owner_id = ? ORDER BY created_at DESC, code`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer rows.Close()

	links := []*models.Link{}
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	// Stored timestamps are text; order on the parsed values.
	sortNewestFirst(links)
	return links, nil
}

func (s *SQLiteStore) DeleteLink(ctx context.Context, code, ownerID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var owner string
	err = tx.QueryRowContext(ctx, `SELECT owner_id FROM links WHERE code = ?`, code).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && owner != ownerID) {
		return models.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load link: %w", err)
	}

	for _, q := range []string{
		`DELETE FROM clicks WHERE link_code = ?`,
		`DELETE FROM click_tallies WHERE link_code = ?`,
		`DELETE FROM link_visitors WHERE link_code = ?`,
		`DELETE FROM links WHERE code = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, code); err != nil {
			return fmt.Errorf("delete link: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) DeactivateLink(ctx context.Context, code string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE links SET is_active = 0 WHERE code = ? AND is_active = 1`, code)
	if err != nil {
		return false, fmt.Errorf("deactivate link: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return true, nil
	}
	if _, err := s.GetLink(ctx, code); err != nil {
		return false, err
	}
	return false, nil
}

func (s *SQLiteStore) SetQRCode(ctx context.Context, code string, png []byte) error {
	res, err := s.db.ExecContext(ctx, `UPDATE links SET qr_code = ? WHERE code = ?`, png, code)
	if err != nil {
		return fmt.Errorf("set qr code: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) CodeIssued(ctx context.Context, code string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM issued_codes WHERE code = ?`, code).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check code: %w", err)
	}
	return count > 0, nil
}

func (s *SQLiteStore) IssuedCodes(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT code FROM issued_codes ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list issued codes: %w", err)
	}
	defer rows.Close()

	codes := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan code: %w", err)
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

// AppendClick runs in one transaction: insert, counters, tallies and
// retention eviction commit together or not at all.
func (s *SQLiteStore) AppendClick(ctx context.Context, ev *models.ClickEvent, retention int) (*models.Link, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM links WHERE code = ?`, ev.LinkCode).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("load link: %w", err)
	}
	if exists == 0 {
		return nil, models.ErrNotFound
	}

	ts := ev.Timestamp.UTC()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO clicks (id, link_code, clicked_at, visitor_key, country, country_code, city, region,
		 device, browser, os, referrer, referrer_domain) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.LinkCode, ts, ev.VisitorKey, ev.Country, ev.CountryCode, ev.City, ev.Region,
		ev.Device, ev.Browser, ev.OS, ev.Referrer, ev.ReferrerDomain,
	)
	if err != nil {
		return nil, fmt.Errorf("insert click: %w", err)
	}
	if err := applyTallies(ctx, tx, ev, 1); err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO link_visitors (link_code, visitor_key) VALUES (?, ?) ON CONFLICT DO NOTHING`,
		ev.LinkCode, ev.VisitorKey)
	if err != nil {
		return nil, fmt.Errorf("record visitor: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE links SET total_clicks = total_clicks + 1,
		 unique_visitors = (SELECT COUNT(*) FROM link_visitors WHERE link_code = ?),
		 last_clicked_at = ? WHERE code = ?`,
		ev.LinkCode, ts, ev.LinkCode)
	if err != nil {
		return nil, fmt.Errorf("update counters: %w", err)
	}

	if retention > 0 {
		if err := evictOldest(ctx, tx, ev.LinkCode, retention); err != nil {
			return nil, err
		}
	}

	l, err := scanLink(tx.QueryRowContext(ctx, `SELECT `+linkColumns+` FROM links WHERE code = ?`, ev.LinkCode))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit click: %w", err)
	}
	return l, nil
}

func evictOldest(ctx context.Context, tx *sql.Tx, code string, retention int) error {
	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM clicks WHERE link_code = ?`, code).Scan(&count); err != nil {
		return fmt.Errorf("count clicks: %w", err)
	}
	excess := count - retention
	if excess <= 0 {
		return nil
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT seq, clicked_at, country, device, browser, os, referrer_domain
		 FROM clicks WHERE link_code = ? ORDER BY seq LIMIT ?`, code, excess)
	if err != nil {
		return fmt.Errorf("select evicted: %w", err)
	}
	var (
		seqs    []int64
		evicted []models.ClickEvent
	)
	for rows.Next() {
		var seq int64
		c := models.ClickEvent{LinkCode: code}
		if err := rows.Scan(&seq, &c.Timestamp, &c.Country, &c.Device, &c.Browser, &c.OS, &c.ReferrerDomain); err != nil {
			rows.Close()
			return fmt.Errorf("scan evicted: %w", err)
		}
		seqs = append(seqs, seq)
		evicted = append(evicted, c)
	}
	if err := rows.Close(); err != nil {
		return fmt.Errorf("select evicted: %w", err)
	}

	for i := range evicted {
		if err := applyTallies(ctx, tx, &evicted[i], -1); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM clicks WHERE seq = ?`, seqs[i]); err != nil {
			return fmt.Errorf("evict click: %w", err)
		}
	}
	return nil
}

func applyTallies(ctx context.Context, tx *sql.Tx, c *models.ClickEvent, delta int) error {
	for dim, key := range models.ClickDimensions(c) {
		if key == "" {
			continue
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO click_tallies (link_code, dimension, key, count) VALUES (?, ?, ?, ?)
			 ON CONFLICT(link_code, dimension, key) DO UPDATE SET count = count + excluded.count`,
			c.LinkCode, dim, key, delta)
		if err != nil {
			return fmt.Errorf("update tally %s: %w", dim, err)
		}
	}
	if delta < 0 {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM click_tallies WHERE link_code = ? AND count <= 0`, c.LinkCode); err != nil {
			return fmt.Errorf("prune tallies: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Tallies(ctx context.Context, code string) (models.Tallies, error) {
	if _, err := s.GetLink(ctx, code); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT dimension, key, count FROM click_tallies WHERE link_code = ?`, code)
	if err != nil {
		return nil, fmt.Errorf("load tallies: %w", err)
	}
	defer rows.Close()

	t := models.NewTallies()
	for rows.Next() {
		var (
			dim, key string
			count    int
		)
		if err := rows.Scan(&dim, &key, &count); err != nil {
			return nil, fmt.Errorf("scan tally: %w", err)
		}
		t.Add(dim, key, count)
	}
	return t, rows.Err()
}

func (s *SQLiteStore) RecentClicks(ctx context.Context, code string, limit int) ([]models.ClickEvent, error) {
	if _, err := s.GetLink(ctx, code); err != nil {
		return nil, err
	}
	q := `SELECT id, link_code, clicked_at, visitor_key, country, country_code, city, region,
		device, browser, os, referrer, referrer_domain
		FROM clicks WHERE link_code = ? ORDER BY seq DESC`
	args := []any{code}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list clicks: %w", err)
	}
	defer rows.Close()

	out := []models.ClickEvent{}
	for rows.Next() {
		var c models.ClickEvent
		if err := rows.Scan(&c.ID, &c.LinkCode, &c.Timestamp, &c.VisitorKey, &c.Country, &c.CountryCode,
			&c.City, &c.Region, &c.Device, &c.Browser, &c.OS, &c.Referrer, &c.ReferrerDomain); err != nil {
			return nil, fmt.Errorf("scan click: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLink(row rowScanner) (*models.Link, error) {
	var (
		l                  models.Link
		tags               string
		active             int
		expires, lastClick sql.NullTime
	)
	err := row.Scan(&l.Code, &l.TargetURL, &l.OwnerID, &l.PasswordHash, &tags, &l.CreatedAt, &expires,
		&active, &l.TotalClicks, &l.UniqueVisitors, &lastClick, &l.QRCode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan link: %w", err)
	}
	l.Tags = models.SplitTags(tags)
	l.IsActive = active == 1
	if expires.Valid {
		t := expires.Time
		l.ExpiresAt = &t
	}
	if lastClick.Valid {
		t := lastClick.Time
		l.LastClickedAt = &t
	}
	return &l, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
