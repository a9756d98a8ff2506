package storage

const schema = `
-- The 'notes' table holds one row per note. AUTOINCREMENT keeps ids from
-- being reused after a delete.
CREATE TABLE IF NOT EXISTS notes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    body TEXT NOT NULL DEFAULT ''
);

-- Secondary lookups, non-unique.
CREATE INDEX IF NOT EXISTS noteTitle ON notes (title);
CREATE INDEX IF NOT EXISTS noteBody ON notes (body);
`

// uniqueTitleIndex turns the table into the title-keyed variant. Creating it
// fails when the table already holds duplicate titles.
const uniqueTitleIndex = `CREATE UNIQUE INDEX IF NOT EXISTS noteTitleUnique ON notes (title);`

// dropUniqueTitleIndex returns the table to the id-keyed variant.
const dropUniqueTitleIndex = `DROP INDEX IF EXISTS noteTitleUnique;`
