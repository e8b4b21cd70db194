package handler

import (
	"database/sql"
	"io"
	"log/slog"
	"testing"

	"github.com/smartpantry/smartpantry/internal/database"
	ws "github.com/smartpantry/smartpantry/internal/websocket"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testHub() *ws.Hub {
	return ws.NewHub(testLogger())
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
