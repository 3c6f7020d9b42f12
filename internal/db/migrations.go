package db

import "database/sql"

func Migrate(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

// issued_codes outlives links so a deleted code is never handed out again.
const schema = `
CREATE TABLE IF NOT EXISTS issued_codes (
    code       TEXT     PRIMARY KEY,
    issued_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS links (
    code            TEXT     PRIMARY KEY REFERENCES issued_codes(code),
    target_url      TEXT     NOT NULL,
    owner_id        TEXT     NOT NULL,
    password_hash   TEXT     NOT NULL DEFAULT '',
    tags            TEXT     NOT NULL DEFAULT '',
    created_at      DATETIME NOT NULL,
    expires_at      DATETIME,
    is_active       INTEGER  NOT NULL DEFAULT 1,
    total_clicks    INTEGER  NOT NULL DEFAULT 0,
    unique_visitors INTEGER  NOT NULL DEFAULT 0,
    last_clicked_at DATETIME,
    qr_code         BLOB
);

CREATE INDEX IF NOT EXISTS idx_links_owner ON links(owner_id, created_at);

CREATE TABLE IF NOT EXISTS clicks (
    seq             INTEGER  PRIMARY KEY AUTOINCREMENT,
    id              TEXT     NOT NULL UNIQUE,
    link_code       TEXT     NOT NULL,
    clicked_at      DATETIME NOT NULL,
    visitor_key     TEXT     NOT NULL,
    country         TEXT     NOT NULL DEFAULT '',
    country_code    TEXT     NOT NULL DEFAULT '',
    city            TEXT     NOT NULL DEFAULT '',
    region          TEXT     NOT NULL DEFAULT '',
    device          TEXT     NOT NULL DEFAULT '',
    browser         TEXT     NOT NULL DEFAULT '',
    os              TEXT     NOT NULL DEFAULT '',
    referrer        TEXT     NOT NULL DEFAULT '',
    referrer_domain TEXT     NOT NULL DEFAULT '',
    FOREIGN KEY (link_code) REFERENCES links(code) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_clicks_link_seq ON clicks(link_code, seq);

CREATE TABLE IF NOT EXISTS click_tallies (
    link_code  TEXT    NOT NULL,
    dimension  TEXT    NOT NULL,
    key        TEXT    NOT NULL,
    count      INTEGER NOT NULL,
    PRIMARY KEY (link_code, dimension, key),
    FOREIGN KEY (link_code) REFERENCES links(code) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS link_visitors (
    link_code    TEXT NOT NULL,
    visitor_key  TEXT NOT NULL,
    PRIMARY KEY (link_code, visitor_key),
    FOREIGN KEY (link_code) REFERENCES links(code) ON DELETE CASCADE
);
`
