package backend

import (
	"context"
	"path/filepath"
	"testing"

	"chitieu/internal/config"
	"chitieu/internal/core"
)

func TestFromAppConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.Config
		want    Config
		wantErr bool
	}{
		{"nil config", nil, Config{}, true},
		{"memory", &config.Config{DataBackend: "memory"}, Config{Type: MemoryBackend}, false},
		{
			"sqlite",
			&config.Config{DataBackend: "sqlite", SQLiteDBPath: "/tmp/x.db"},
			Config{Type: SQLiteBackend, SQLiteDBPath: "/tmp/x.db"},
			false,
		},
		{"sheets", &config.Config{DataBackend: "sheets"}, Config{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromAppConfig(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FromAppConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("FromAppConfig() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := (Config{Type: SQLiteBackend}).Validate(); err == nil {
		t.Error("Validate() expected error for sqlite without path")
	}
	if err := (Config{Type: "postgres"}).Validate(); err == nil {
		t.Error("Validate() expected error for unknown backend")
	}
	if err := (Config{Type: MemoryBackend}).Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestCreateBackend(t *testing.T) {
	tests := []struct {
		name string
		cfg  func(t *testing.T) Config
	}{
		{"memory", func(*testing.T) Config { return Config{Type: MemoryBackend} }},
		{"sqlite", func(t *testing.T) Config {
			return Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "chitieu.db")}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			result, err := NewFactory(nil).CreateBackend(ctx, tt.cfg(t))
			if err != nil {
				t.Fatalf("CreateBackend() error = %v", err)
			}
			defer result.Cleanup()

			if err := result.Ping(ctx); err != nil {
				t.Errorf("Ping() error = %v", err)
			}
			if err := result.Ledger.AddUser(ctx, "u1", "c1"); err != nil {
				t.Fatalf("AddUser() error = %v", err)
			}
			users, err := result.Ledger.ListUsers(ctx)
			if err != nil {
				t.Fatalf("ListUsers() error = %v", err)
			}
			if len(users) != 1 || users[0] != (core.User{UserID: "u1", ChatID: "c1"}) {
				t.Errorf("ListUsers() = %v", users)
			}
		})
	}
}
