package logger

import (
	"context"
	"testing"

	"gorm.io/gorm"
)

func TestTableFromSQL(t *testing.T) {
	cases := []struct {
		sql  string
		want string
	}{
		{sql: `SELECT * FROM "acl_rules" WHERE acl_id IN (?)`, want: "acl_rules"},
		{sql: "INSERT INTO acl_assignments (id) VALUES (?)", want: "acl_assignments"},
		{sql: "UPDATE `access_control_lists` SET name = ?", want: "access_control_lists"},
		{sql: "DELETE FROM team_members WHERE team_id = ?", want: "team_members"},
		{sql: "PRAGMA foreign_keys", want: "unknown"},
	}
	for _, tc := range cases {
		if got := tableFromSQL(tc.sql); got != tc.want {
			t.Fatalf("tableFromSQL(%q) = %q, want %q", tc.sql, got, tc.want)
		}
	}
}

func TestGormLoggerFiltersParams(t *testing.T) {
	var filter gorm.ParamsFilter = NewGormLogger(0, 0)
	sql, params := filter.ParamsFilter(context.Background(), "SELECT * FROM organization_members WHERE user_id = ?", 42)
	if sql != "SELECT * FROM organization_members WHERE user_id = ?" {
		t.Fatalf("sql rewritten: %q", sql)
	}
	if params != nil {
		t.Fatalf("params leaked: %v", params)
	}
}
