package domain

import "context"

// Database is a PostgreSQL server hosting Odoo databases. Lookup methods
// that find no matching row return an empty string and a nil error, so
// callers can tell "absent" apart from "unreachable".
type Database interface {
	Ping(ctx context.Context) error
	ListDatabases(ctx context.Context) ([]string, error)
	ConfigParam(ctx context.Context, database, key string) (string, error)
	AttachmentReference(ctx context.Context, database string) (string, error)
	Dump(ctx context.Context, database, outputPath string) error
	Close() error
}
