package config

import (
	"os"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestInitConfig_Success(t *testing.T) {
	tmpDir := t.TempDir()

	configPath, err := InitConfig(tmpDir, false)
	if err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("Failed to read config file: %v", err)
	}

	contentStr := string(content)
	expectedSections := []string{
		"# catalog-admin repository configuration",
		"logging:",
		"registry:",
		"datastore:",
		"checksums:",
		"metrics:",
	}
	for _, section := range expectedSections {
		if !strings.Contains(contentStr, section) {
			t.Errorf("Config file missing section: %s", section)
		}
	}

	var raw map[string]any
	if err := yaml.Unmarshal(content, &raw); err != nil {
		t.Fatalf("Generated config is not valid YAML: %v", err)
	}

	// The written file must load back to the defaults.
	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Generated config does not load: %v", err)
	}
	if cfg.Registry.Type != "sqlite" || cfg.Datastore.Records.Type != "badger" {
		t.Errorf("Unexpected loaded config: %+v", cfg)
	}
}

func TestInitConfig_AlreadyExists(t *testing.T) {
	tmpDir := t.TempDir()

	if _, err := InitConfig(tmpDir, false); err != nil {
		t.Fatalf("First InitConfig failed: %v", err)
	}

	_, err := InitConfig(tmpDir, false)
	if err == nil {
		t.Fatal("Expected error when config already exists")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("Expected 'already exists' error, got: %v", err)
	}

	if _, err := InitConfig(tmpDir, true); err != nil {
		t.Errorf("InitConfig with force failed: %v", err)
	}
}
