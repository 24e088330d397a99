package migrations

import (
	"strings"
	"testing"
)

func readMigration(t *testing.T, name string) string {
	t.Helper()
	data, err := FS.ReadFile(name)
	if err != nil {
		t.Fatalf("failed to read %s: %v", name, err)
	}
	return string(data)
}

func TestBookingSlotUniquenessIsPartial(t *testing.T) {
	sql := readMigration(t, "00003_create_call_bookings.sql")

	if !strings.Contains(sql, "CREATE UNIQUE INDEX call_bookings_slot_unique") {
		t.Fatal("missing slot uniqueness index")
	}
	if !strings.Contains(sql, "WHERE status = 'scheduled'") {
		t.Fatal("slot uniqueness must only apply to scheduled bookings")
	}
}

func TestSessionGuardIndexIsPartial(t *testing.T) {
	sql := readMigration(t, "00005_create_user_sessions.sql")

	if !strings.Contains(sql, "CREATE UNIQUE INDEX user_sessions_single_active") {
		t.Fatal("missing single active session index")
	}
	if !strings.Contains(sql, "WHERE is_active") {
		t.Fatal("session uniqueness must only apply to active sessions")
	}
}

func TestCustomerConversionBackstopIndex(t *testing.T) {
	sql := readMigration(t, "00004_create_customers.sql")

	if !strings.Contains(sql, "customers_converted_from_lead_unique") {
		t.Fatal("missing converted_from_lead_id unique index")
	}
}

func TestEveryMigrationHasDown(t *testing.T) {
	entries, err := FS.ReadDir(".")
	if err != nil {
		t.Fatalf("failed to list migrations: %v", err)
	}

	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		sql := readMigration(t, e.Name())
		if !strings.Contains(sql, "-- +goose Up") || !strings.Contains(sql, "-- +goose Down") {
			t.Fatalf("%s missing goose up/down markers", e.Name())
		}
	}
}
