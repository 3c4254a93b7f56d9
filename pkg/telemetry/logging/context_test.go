package logging

import (
	"context"
	"testing"
)

func TestContextKeys(t *testing.T) {
	ctx := context.Background()

	ctx = WithRunID(ctx, "run-123")
	if got := GetRunID(ctx); got != "run-123" {
		t.Errorf("GetRunID() = %q, want %q", got, "run-123")
	}

	ctx = WithRules(ctx, "perfume-supplier-a", "9f2c1e")
	name, version := GetRules(ctx)
	if name != "perfume-supplier-a" || version != "9f2c1e" {
		t.Errorf("GetRules() = (%q, %q)", name, version)
	}

	ctx = WithSource(ctx, "supplier.xlsx")
	if got := GetSource(ctx); got != "supplier.xlsx" {
		t.Errorf("GetSource() = %q, want %q", got, "supplier.xlsx")
	}
}

func TestContextKeys_Empty(t *testing.T) {
	ctx := context.Background()

	if got := GetRunID(ctx); got != "" {
		t.Errorf("GetRunID() = %q, want empty", got)
	}
	if name, version := GetRules(ctx); name != "" || version != "" {
		t.Errorf("GetRules() = (%q, %q), want empty", name, version)
	}
	if got := GetSource(ctx); got != "" {
		t.Errorf("GetSource() = %q, want empty", got)
	}
	if fields := extractContextFields(ctx); len(fields) != 0 {
		t.Errorf("extractContextFields() = %v, want none", fields)
	}
}

func TestContextKeys_Overwrite(t *testing.T) {
	parent := WithRunID(context.Background(), "run-1")
	child := WithSource(WithRunID(parent, "run-2"), "b.csv")

	if GetRunID(parent) != "run-1" {
		t.Error("deriving a context changed its parent")
	}
	if GetRunID(child) != "run-2" || GetSource(child) != "b.csv" {
		t.Errorf("child = (%q, %q)", GetRunID(child), GetSource(child))
	}
}

func TestExtractContextFields(t *testing.T) {
	ctx := WithRunID(context.Background(), "run-1")
	ctx = WithRules(ctx, "rules-a", "")

	fields := extractContextFields(ctx)
	want := []any{"run_id", "run-1", "rules", "rules-a"}
	if len(fields) != len(want) {
		t.Fatalf("extractContextFields() = %v, want %v", fields, want)
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Errorf("fields[%d] = %v, want %v", i, fields[i], want[i])
		}
	}
}
