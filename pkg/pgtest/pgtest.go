// Package pgtest boots one shared postgres testcontainer per test binary
// and hands each test its own goose-migrated schema sandbox, so tests stay
// isolated without paying the container cost per test.
package pgtest

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/zoravur/scorecast/db"
)

var (
	once       sync.Once
	booted     bool
	bootErr    error
	container  *postgres.PostgresContainer
	connString string
	shutdownMu sync.Mutex
)

// BootOnce starts the shared container. Call it from TestMain before m.Run.
func BootOnce() error {
	once.Do(func() {
		booted = true
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		c, err := postgres.Run(ctx,
			"docker.io/postgres:16-alpine",
			postgres.WithDatabase("scorecast"),
			postgres.WithUsername("postgres"),
			postgres.WithPassword("pass"),
			postgres.BasicWaitStrategies(),
		)
		if err != nil {
			bootErr = err
			return
		}
		container = c

		host, _ := c.Host(ctx)
		port, _ := c.MappedPort(ctx, "5432/tcp")
		connString = fmt.Sprintf(
			"postgres://postgres:pass@%s:%s/scorecast?sslmode=disable",
			host, port.Port(),
		)
	})
	return bootErr
}

// Shutdown terminates the shared container. Optional; the ryuk reaper cleans
// up either way.
func Shutdown() error {
	shutdownMu.Lock()
	defer shutdownMu.Unlock()
	if container == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return container.Terminate(ctx)
}

// Sandbox is one test's private schema with the scorecast migrations applied.
type Sandbox struct {
	DB     *sql.DB
	Schema string
}

// NewSandbox creates a uniquely named schema, migrates it, and registers
// cleanup on t.
func NewSandbox(t *testing.T) *Sandbox {
	t.Helper()
	if !booted {
		t.Fatalf("pgtest not booted; call pgtest.BootOnce in TestMain first")
	}

	admin, err := sql.Open("pgx", connString)
	if err != nil {
		t.Fatalf("open admin: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	schema := fmt.Sprintf("t_%x", time.Now().UnixNano())
	if _, err := admin.ExecContext(ctx, `CREATE SCHEMA "`+schema+`"`); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	// Every pooled connection carries the sandbox search_path.
	conn, err := sql.Open("pgx", withSearchPath(connString, schema))
	if err != nil {
		t.Fatalf("open sandbox: %v", err)
	}

	goose.SetBaseFS(db.Migrations())
	if err := goose.SetDialect("postgres"); err != nil {
		t.Fatalf("goose dialect: %v", err)
	}
	if err := goose.Up(conn, "."); err != nil {
		t.Fatalf("goose up: %v", err)
	}

	sbx := &Sandbox{DB: conn, Schema: schema}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, _ = admin.ExecContext(ctx, `DROP SCHEMA IF EXISTS "`+schema+`" CASCADE`)
		_ = conn.Close()
		_ = admin.Close()
	})
	return sbx
}

func withSearchPath(base, schema string) string {
	u, _ := url.Parse(base)
	q := u.Query()
	q.Set("options", fmt.Sprintf("-csearch_path=%s,public", schema))
	u.RawQuery = q.Encode()
	return u.String()
}
