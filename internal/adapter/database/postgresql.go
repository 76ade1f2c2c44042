package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/exec"

	_ "github.com/lib/pq"

	"github.com/semmidev/obx/internal/config"
)

type PostgreSQLDatabase struct {
	config *config.Config
	admin  *sql.DB

	// open is swapped by tests to inject per database connections.
	open func(database string) (*sql.DB, error)
}

func NewPostgreSQL(cfg *config.Config) *PostgreSQLDatabase {
	p := &PostgreSQLDatabase{config: cfg}
	p.open = p.openDatabase
	return p
}

func (p *PostgreSQLDatabase) dsn(database string) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		p.config.Host, p.config.Port, p.config.User, p.config.Password, database)
}

func (p *PostgreSQLDatabase) openDatabase(database string) (*sql.DB, error) {
	db, err := sql.Open("postgres", p.dsn(database))
	if err != nil {
		return nil, fmt.Errorf("failed to open connection to %s: %w", database, err)
	}
	return db, nil
}

// Connect opens the administrative connection used for listing databases
// and filestore lookups. pg_dump authenticates on its own later.
func (p *PostgreSQLDatabase) Connect(ctx context.Context) error {
	db, err := p.open("postgres")
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to connect to postgresql at %s:%d: %w", p.config.Host, p.config.Port, err)
	}
	p.admin = db
	return nil
}

func (p *PostgreSQLDatabase) Ping(ctx context.Context) error {
	if p.admin == nil {
		return errors.New("not connected")
	}
	return p.admin.PingContext(ctx)
}

// ListDatabases returns every non-template database in server order.
func (p *PostgreSQLDatabase) ListDatabases(ctx context.Context) ([]string, error) {
	if p.admin == nil {
		return nil, errors.New("not connected")
	}

	rows, err := p.admin.QueryContext(ctx, "SELECT datname FROM pg_database WHERE datistemplate = false")
	if err != nil {
		return nil, fmt.Errorf("failed to list databases: %w", err)
	}
	defer rows.Close()

	var databases []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan database name: %w", err)
		}
		databases = append(databases, name)
	}
	return databases, rows.Err()
}

// ConfigParam reads one ir_config_parameter value from the named database.
// A missing key returns an empty string and a nil error.
func (p *PostgreSQLDatabase) ConfigParam(ctx context.Context, database, key string) (string, error) {
	db, err := p.open(database)
	if err != nil {
		return "", err
	}
	defer db.Close()

	var value string
	err = db.QueryRowContext(ctx, "SELECT value FROM ir_config_parameter WHERE key = $1", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read config parameter %s: %w", key, err)
	}
	return value, nil
}

// AttachmentReference returns one stored attachment file reference, or an
// empty string when the database has none on disk.
func (p *PostgreSQLDatabase) AttachmentReference(ctx context.Context, database string) (string, error) {
	db, err := p.open(database)
	if err != nil {
		return "", err
	}
	defer db.Close()

	var reference string
	err = db.QueryRowContext(ctx,
		"SELECT store_fname FROM ir_attachment WHERE store_fname IS NOT NULL AND store_fname != '' LIMIT 1").
		Scan(&reference)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read attachment reference: %w", err)
	}
	return reference, nil
}

// Dump writes a plain format SQL dump of the named database to outputPath.
func (p *PostgreSQLDatabase) Dump(ctx context.Context, database, outputPath string) error {
	cmd := exec.CommandContext(ctx, "pg_dump", p.dumpArgs(database, outputPath)...)

	cmd.Env = os.Environ()
	if p.config.Password != "" {
		cmd.Env = append(cmd.Env, fmt.Sprintf("PGPASSWORD=%s", p.config.Password))
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("pg_dump not found, install the PostgreSQL client tools: %w", err)
		}
		return fmt.Errorf("pg_dump failed: %w, output: %s", err, string(output))
	}

	return nil
}

func (p *PostgreSQLDatabase) dumpArgs(database, outputPath string) []string {
	return []string{
		fmt.Sprintf("--host=%s", p.config.Host),
		fmt.Sprintf("--port=%d", p.config.Port),
		fmt.Sprintf("--username=%s", p.config.User),
		"--no-password",
		fmt.Sprintf("--file=%s", outputPath),
		database,
	}
}

func (p *PostgreSQLDatabase) Close() error {
	if p.admin == nil {
		return nil
	}
	return p.admin.Close()
}
