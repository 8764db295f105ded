package store

// Schema applied by the sqlite driver at open. The postgres schema lives in
// the migrations directory and mirrors these tables.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL,
	started_at  TIMESTAMP NOT NULL,
	finished_at TIMESTAMP,
	seed        INTEGER NOT NULL,
	config_yaml TEXT NOT NULL,
	error       TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

CREATE TABLE IF NOT EXISTS passages (
	run_id        TEXT NOT NULL,
	document_id   TEXT NOT NULL,
	passage_index INTEGER NOT NULL,
	section       TEXT NOT NULL,
	start_offset  INTEGER NOT NULL,
	end_offset    INTEGER NOT NULL,
	text          TEXT NOT NULL,
	PRIMARY KEY (run_id, document_id, passage_index)
);

CREATE TABLE IF NOT EXISTS features (
	run_id            TEXT NOT NULL,
	document_id       TEXT NOT NULL,
	passage_index     INTEGER NOT NULL,
	hedge_density     REAL NOT NULL,
	modal_rate        REAL NOT NULL,
	vague_density     REAL NOT NULL,
	passive_rate      REAL NOT NULL,
	numeric_density   REAL NOT NULL,
	sentiment         REAL NOT NULL,
	readability       REAL NOT NULL,
	avg_sentence_len  REAL NOT NULL,
	lexical_diversity REAL NOT NULL,
	PRIMARY KEY (run_id, document_id, passage_index)
);

CREATE TABLE IF NOT EXISTS labels (
	run_id          TEXT NOT NULL,
	document_id     TEXT NOT NULL,
	passage_index   INTEGER NOT NULL,
	evasive         INTEGER,
	label_source    TEXT NOT NULL,
	ambiguity_score REAL NOT NULL,
	market_adverse  BOOLEAN,
	forward_return  REAL,
	window_days     INTEGER NOT NULL,
	PRIMARY KEY (run_id, document_id, passage_index)
);

CREATE TABLE IF NOT EXISTS predictions (
	run_id          TEXT NOT NULL,
	document_id     TEXT NOT NULL,
	passage_index   INTEGER NOT NULL,
	model           TEXT NOT NULL,
	probability     REAL NOT NULL,
	predicted_class INTEGER NOT NULL,
	PRIMARY KEY (run_id, document_id, passage_index, model)
);

CREATE INDEX IF NOT EXISTS idx_predictions_model ON predictions(run_id, model);

CREATE TABLE IF NOT EXISTS reports (
	run_id  TEXT PRIMARY KEY,
	payload TEXT NOT NULL
);
`
