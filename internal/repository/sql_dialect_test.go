package repository

import "testing"

func TestBuildKeywordLikeConditionSQLite(t *testing.T) {
	condition, argCount := buildKeywordLikeConditionByDialect("sqlite", []string{"name", "brand"})
	if condition != "name LIKE ? OR brand LIKE ?" {
		t.Fatalf("unexpected condition: %s", condition)
	}
	if argCount != 2 {
		t.Fatalf("expected 2 args, got %d", argCount)
	}
}

func TestBuildKeywordLikeConditionPostgres(t *testing.T) {
	condition, argCount := buildKeywordLikeConditionByDialect("postgres", []string{"name"})
	if condition != "name ILIKE ?" {
		t.Fatalf("unexpected condition: %s", condition)
	}
	if argCount != 1 {
		t.Fatalf("expected 1 arg, got %d", argCount)
	}
}

func TestBuildKeywordLikeConditionSkipsEmptyColumns(t *testing.T) {
	condition, argCount := buildKeywordLikeConditionByDialect("sqlite", []string{"", " ", "name"})
	if condition != "name LIKE ?" {
		t.Fatalf("unexpected condition: %s", condition)
	}
	if argCount != 1 {
		t.Fatalf("expected 1 arg, got %d", argCount)
	}
}
