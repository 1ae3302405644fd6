package config

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestNewSettingsHolderDefaultsWithoutFile(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	holder, err := NewSettingsHolder(zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := holder.Get()
	if got != DefaultSettings() {
		t.Fatalf("expected defaults, got %+v", got)
	}
}

func TestNewSettingsHolderReadsFile(t *testing.T) {
	dir := t.TempDir()
	content := "settings:\n  ticketPrefix: HD\n  auditListCap: 50\n"
	if err := os.WriteFile(filepath.Join(dir, "settings.yml"), []byte(content), 0o600); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	holder, err := NewSettingsHolder(zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := holder.Get()
	if got.TicketPrefix != "HD" {
		t.Fatalf("expected prefix HD, got %q", got.TicketPrefix)
	}
	if got.AuditListCap != 50 {
		t.Fatalf("expected audit cap 50, got %d", got.AuditListCap)
	}
	if got.LoginRateLimit != DefaultSettings().LoginRateLimit {
		t.Fatalf("expected default login limit, got %d", got.LoginRateLimit)
	}
}

func TestValidateSettingsRejectsEmptyPrefix(t *testing.T) {
	s := DefaultSettings()
	s.TicketPrefix = " "
	if err := validateSettings(s); err == nil {
		t.Fatal("expected error for empty prefix")
	}
}

func TestNilHolderReturnsDefaults(t *testing.T) {
	var holder *SettingsHolder
	if holder.Get() != DefaultSettings() {
		t.Fatal("expected defaults from nil holder")
	}
}
