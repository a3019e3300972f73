package config

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults",
			mutate: func(*Config) {},
		},
		{
			name:    "unknown registry",
			mutate:  func(c *Config) { c.Registry.Type = "oracle" },
			wantErr: "Registry.Type",
		},
		{
			name:    "postgres without dsn",
			mutate:  func(c *Config) { c.Registry.Type = "postgres" },
			wantErr: "dsn is required",
		},
		{
			name:    "mysql without dsn",
			mutate:  func(c *Config) { c.Registry.Type = "mysql" },
			wantErr: "dsn is required",
		},
		{
			name: "mysql with dsn",
			mutate: func(c *Config) {
				c.Registry.Type = "mysql"
				c.Registry.MySQL = map[string]any{"dsn": "user:pw@tcp(db:3306)/registry"}
			},
		},
		{
			name:    "unknown artifacts",
			mutate:  func(c *Config) { c.Datastore.Artifacts.Type = "ftp" },
			wantErr: "Artifacts.Type",
		},
		{
			name:    "s3 without bucket",
			mutate:  func(c *Config) { c.Datastore.Artifacts.Type = "s3" },
			wantErr: "bucket is required",
		},
		{
			name:    "memory records over filesystem artifacts",
			mutate:  func(c *Config) { c.Datastore.Records.Type = "memory" },
			wantErr: "memory records require memory artifacts",
		},
		{
			name:    "negative workers",
			mutate:  func(c *Config) { c.Checksums.Workers = -1 },
			wantErr: "Workers",
		},
		{
			name:    "metrics without textfile",
			mutate:  func(c *Config) { c.Metrics.Enabled = true },
			wantErr: "Textfile",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "Format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Expected valid config, got: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}
