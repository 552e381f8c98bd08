package db

// SchemaSQL is the complete schema for fresh installs.
//
// This is the single source of truth for the database layout. Repository
// tests load it via GetSchemaSQL() so that test and production schemas
// cannot drift: a repository referencing a column missing here fails
// immediately with "no such column".
const SchemaSQL = `
-- CTFs (one row per registered competition)
CREATE TABLE IF NOT EXISTS ctfs (
	id TEXT PRIMARY KEY,
	guild_ref TEXT NOT NULL,
	event_id TEXT,
	team_name TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT,
	url TEXT,
	logo_url TEXT,
	invite_url TEXT,
	channel_ref TEXT NOT NULL UNIQUE,
	join_marker_ref TEXT NOT NULL UNIQUE,
	scheduled_event_ref TEXT,
	phase TEXT NOT NULL CHECK(phase IN ('upcoming', 'reminded_day_before', 'active', 'ended', 'archived')) DEFAULT 'upcoming',
	start_at DATETIME NOT NULL,
	finish_at DATETIME NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Challenges (owned by exactly one CTF, names unique per CTF)
CREATE TABLE IF NOT EXISTS challenges (
	id TEXT PRIMARY KEY,
	ctf_id TEXT NOT NULL,
	name TEXT NOT NULL,
	category TEXT NOT NULL,
	thread_ref TEXT,
	points INTEGER NOT NULL DEFAULT 0,
	solved INTEGER NOT NULL DEFAULT 0,
	flag TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (ctf_id) REFERENCES ctfs(id) ON DELETE CASCADE,
	UNIQUE(ctf_id, name)
);

-- Users working on a challenge (append-only set)
CREATE TABLE IF NOT EXISTS challenge_workers (
	challenge_id TEXT NOT NULL,
	user_ref TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (challenge_id, user_ref),
	FOREIGN KEY (challenge_id) REFERENCES challenges(id) ON DELETE CASCADE
);

-- Users credited with solving a challenge
CREATE TABLE IF NOT EXISTS challenge_solvers (
	challenge_id TEXT NOT NULL,
	user_ref TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (challenge_id, user_ref),
	FOREIGN KEY (challenge_id) REFERENCES challenges(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_challenges_ctf ON challenges(ctf_id);
CREATE INDEX IF NOT EXISTS idx_ctfs_phase ON ctfs(phase);
`

// GetSchemaSQL returns the authoritative schema for tests and fresh installs.
func GetSchemaSQL() string {
	return SchemaSQL
}
