package postgres

const schemaSQL = `
CREATE TABLE IF NOT EXISTS settings_overlay (
	id SMALLINT PRIMARY KEY,
	version INT NOT NULL,
	document JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),

	CONSTRAINT single_row CHECK (id = 1),
	CONSTRAINT version_positive CHECK (version >= 1)
);
`
