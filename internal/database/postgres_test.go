package database_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/suite"

	"mongo-catalog/internal/database"
)

// TestPostgresSuite is skipped unless CATALOG_TEST_POSTGRES_DSN is set.
func TestPostgresSuite(t *testing.T) {
	dsn := os.Getenv("CATALOG_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CATALOG_TEST_POSTGRES_DSN not set")
	}
	db := &database.PostgresDriver{}
	if err := db.Connect(dsn); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer db.Close()
	suite.Run(t, &RelationalSuite{db: db})
}
