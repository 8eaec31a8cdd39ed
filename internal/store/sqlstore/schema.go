package sqlstore

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		id          TEXT PRIMARY KEY,
		url         TEXT NOT NULL,
		title       TEXT NOT NULL DEFAULT '',
		raw_content TEXT NOT NULL DEFAULT '',
		token_count INTEGER NOT NULL DEFAULT 0,
		page_rank   DOUBLE PRECISION NOT NULL DEFAULT 0,
		outlinks    JSONB NOT NULL DEFAULT '[]',
		words       JSONB NOT NULL DEFAULT '[]',
		indexed_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS postings (
		word       TEXT PRIMARY KEY,
		page_count INTEGER NOT NULL,
		pages      JSONB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_url ON documents(url)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		id          TEXT PRIMARY KEY,
		url         TEXT NOT NULL,
		title       TEXT NOT NULL DEFAULT '',
		raw_content TEXT NOT NULL DEFAULT '',
		token_count INTEGER NOT NULL DEFAULT 0,
		page_rank   REAL NOT NULL DEFAULT 0,
		outlinks    TEXT NOT NULL DEFAULT '[]',
		words       TEXT NOT NULL DEFAULT '[]',
		indexed_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS postings (
		word       TEXT PRIMARY KEY,
		page_count INTEGER NOT NULL,
		pages      TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_url ON documents(url)`,
}
