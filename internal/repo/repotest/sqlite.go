// Package repotest opens sqlite databases carrying the application schema for
// repository tests.
package repotest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const schema = `
CREATE TABLE users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  email_verified INTEGER NOT NULL DEFAULT 0,
  photo_url TEXT,
  metadata TEXT NOT NULL DEFAULT '{}',
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE teams (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  account_id TEXT,
  conversion_event TEXT,
  facebook_token TEXT,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE team_memberships (
  id TEXT PRIMARY KEY,
  team_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  role TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME,
  CONSTRAINT team_memberships_user_team_key UNIQUE (user_id, team_id)
);
CREATE INDEX team_memberships_team_id_idx ON team_memberships (team_id);
CREATE INDEX team_memberships_user_id_idx ON team_memberships (user_id);
`

// Open returns an isolated in-memory database with the users, teams and
// team_memberships tables. Rows must be given IDs before insert.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.Exec(schema).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return conn
}
