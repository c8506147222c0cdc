//go:build integration

package testhelpers

import (
	"context"
	"testing"
)

func TestEngineDB_MigrationsApplied(t *testing.T) {
	engineDB := GetEngineDB(t)

	var exists bool
	err := engineDB.DB.QueryRow(context.Background(), `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = 'engine_landscapes'
		)`).Scan(&exists)
	if err != nil {
		t.Fatalf("failed to query information_schema: %v", err)
	}
	if !exists {
		t.Error("expected engine_landscapes table to exist after migrations")
	}
}
