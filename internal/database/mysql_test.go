package database_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/suite"

	"mongo-catalog/internal/database"
)

// TestMySQLSuite is skipped unless CATALOG_TEST_MYSQL_DSN is set.
func TestMySQLSuite(t *testing.T) {
	dsn := os.Getenv("CATALOG_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("CATALOG_TEST_MYSQL_DSN not set")
	}
	db := &database.MySQLDriver{}
	if err := db.Connect(dsn); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer db.Close()
	suite.Run(t, &RelationalSuite{db: db})
}
