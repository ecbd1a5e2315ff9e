package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func runAdmin(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestNextDate(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "month end clamps and carries",
			args: []string{"next-date", "--date", "2025-01-31", "--frequency", "monthly", "--count", "3"},
			want: []string{"2025-02-28", "2025-03-28", "2025-04-28"},
		},
		{
			name: "leap day yearly",
			args: []string{"next-date", "--date", "2024-02-29", "--frequency", "yearly"},
			want: []string{"2025-02-28"},
		},
		{
			name: "weekly",
			args: []string{"next-date", "--date", "2025-12-29", "--frequency", "weekly", "--count", "2"},
			want: []string{"2026-01-05", "2026-01-12"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runAdmin(t, tt.args...)
			if err != nil {
				t.Fatalf("next-date failed: %v (output: %s)", err, out)
			}
			got := strings.Fields(out)
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextDate_InvalidInput(t *testing.T) {
	if _, err := runAdmin(t, "next-date", "--date", "2025-01-31", "--frequency", "hourly"); err == nil {
		t.Error("expected error for unknown frequency")
	}
	if _, err := runAdmin(t, "next-date", "--date", "31/01/2025"); err == nil {
		t.Error("expected error for malformed date")
	}
	if _, err := runAdmin(t, "next-date", "--date", "2025-01-31", "--count", "0"); err == nil {
		t.Error("expected error for zero count")
	}
}

func TestProcessDue_RequiresTarget(t *testing.T) {
	_, err := runAdmin(t, "--sqlite", filepath.Join(t.TempDir(), "t.db"), "process-due")
	if err == nil || !strings.Contains(err.Error(), "--user-id or --all") {
		t.Errorf("expected target error, got %v", err)
	}
}

func TestSQLiteWorkflow(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "trackify.db")

	out, err := runAdmin(t, "--sqlite", dbPath, "category", "add",
		"--id", "cat-rent", "--user-id", "1", "--name", "Rent", "--type", "expense")
	if err != nil {
		t.Fatalf("category add failed: %v (output: %s)", err, out)
	}

	out, err = runAdmin(t, "--sqlite", dbPath, "create",
		"--user-id", "1", "--category", "cat-rent", "--amount", "1200",
		"--frequency", "monthly", "--start", "2025-01-31", "--end", "2025-03-31")
	if err != nil {
		t.Fatalf("create failed: %v (output: %s)", err, out)
	}
	if !strings.Contains(out, "next due 2025-01-31") {
		t.Errorf("create output = %q, want next due at start date", out)
	}

	out, err = runAdmin(t, "--sqlite", dbPath, "due", "--user-id", "1", "--as-of", "2025-01-30")
	if err != nil {
		t.Fatalf("due failed: %v", err)
	}
	if !strings.Contains(out, "No templates") {
		t.Errorf("nothing should be due before the start date, got %q", out)
	}

	// Each run materializes one occurrence per due template.
	wantNext := []string{"2025-02-28", "2025-03-28", "2025-04-28"}
	for i, next := range wantNext {
		out, err = runAdmin(t, "--sqlite", dbPath, "process-due", "--all", "--as-of", "2025-06-01")
		if err != nil {
			t.Fatalf("process-due run %d failed: %v (output: %s)", i+1, err, out)
		}
		if !strings.Contains(out, "Processed: 1/1") {
			t.Errorf("run %d output = %q, want one processed", i+1, out)
		}

		out, err = runAdmin(t, "--sqlite", dbPath, "list", "--user-id", "1")
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if !strings.Contains(out, next) {
			t.Errorf("after run %d list = %q, want next due %s", i+1, out, next)
		}
	}

	// 2025-04-28 is past the end date, so the template ended.
	out, err = runAdmin(t, "--sqlite", dbPath, "list", "--user-id", "1", "--active")
	if err != nil {
		t.Fatalf("list --active failed: %v", err)
	}
	if !strings.Contains(out, "No templates") {
		t.Errorf("expected no active templates, got %q", out)
	}

	out, err = runAdmin(t, "--sqlite", dbPath, "process-due", "--all", "--as-of", "2025-06-01")
	if err != nil {
		t.Fatalf("final process-due failed: %v", err)
	}
	if !strings.Contains(out, "No users with due templates") {
		t.Errorf("ended template should not be processed again, got %q", out)
	}
}

func TestSQLiteEstimate(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "trackify.db")

	steps := [][]string{
		{"category", "add", "--id", "salary", "--user-id", "2", "--name", "Salary", "--type", "income"},
		{"category", "add", "--id", "gym", "--user-id", "2", "--name", "Gym"},
		{"create", "--user-id", "2", "--category", "salary", "--type", "income", "--amount", "5000", "--start", "2025-01-01"},
		{"create", "--user-id", "2", "--category", "gym", "--amount", "10", "--frequency", "weekly", "--start", "2025-01-01"},
	}
	for _, args := range steps {
		if out, err := runAdmin(t, append([]string{"--sqlite", dbPath}, args...)...); err != nil {
			t.Fatalf("%v failed: %v (output: %s)", args, err, out)
		}
	}

	out, err := runAdmin(t, "--sqlite", dbPath, "estimate", "--user-id", "2")
	if err != nil {
		t.Fatalf("estimate failed: %v", err)
	}
	for _, want := range []string{"Monthly income:  5000.00", "Monthly expense: 43.48", "Monthly net:     4956.52"} {
		if !strings.Contains(out, want) {
			t.Errorf("estimate output %q missing %q", out, want)
		}
	}

	out, err = runAdmin(t, "--sqlite", dbPath, "upcoming", "--user-id", "2", "--from", "2024-12-30", "--days", "2")
	if err != nil {
		t.Fatalf("upcoming failed: %v", err)
	}
	if !strings.Contains(out, "Recurring: Salary") || !strings.Contains(out, "Recurring: Gym") {
		t.Errorf("upcoming output %q should list both templates", out)
	}
}
