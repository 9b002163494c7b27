package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hederakit.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv(EnvNetwork, "")
	t.Setenv(EnvAccountID, "")
	t.Setenv(EnvPrivateKey, "")
	path := writeConfig(t, `{"network":{"networks_file":"networks.yaml"}}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != ":8080" || cfg.Network.Name != "testnet" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Query.DefaultWait() != 5*time.Second || cfg.Query.DefaultLimit != 10 || cfg.Query.MaxPages != 100 {
		t.Fatalf("unexpected query defaults: %+v", cfg.Query)
	}
	if cfg.Network.NetworksFile != filepath.Join(filepath.Dir(path), "networks.yaml") {
		t.Fatalf("networks file not resolved: %s", cfg.Network.NetworksFile)
	}
	if cfg.Storage.DataDir != filepath.Join(filepath.Dir(path), "data") {
		t.Fatalf("unexpected data dir: %s", cfg.Storage.DataDir)
	}
	if !cfg.Storage.Journal.IsMemory() || cfg.Queue.Driver != "memory" || cfg.Queue.MaxRetries != 1 {
		t.Fatalf("unexpected storage defaults: %+v %+v", cfg.Storage, cfg.Queue)
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, `{"network":{"name":"testnet","account_id":"0.0.1","private_key":"file-key"}}`)
	t.Setenv(EnvNetwork, "MAINNET")
	t.Setenv(EnvAccountID, "0.0.42")
	t.Setenv(EnvPrivateKey, "env-key")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Network.Name != "mainnet" || cfg.Network.AccountID != "0.0.42" || cfg.Network.PrivateKey != "env-key" {
		t.Fatalf("env overrides not applied: %+v", cfg.Network)
	}
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	cases := []string{
		`{"relay":{"balance_source":"oracle"}}`,
		`{"storage":{"jobs":{"driver":"mysql"}}}`,
		`{"storage":{"journal":{"driver":"postgres","dsn":"x"}}}`,
		`{"queue":{"driver":"redis"}}`,
		`{"queue":{"driver":"kafka"}}`,
		`{"server":`,
	}
	for _, content := range cases {
		if _, err := Load(writeConfig(t, content)); err == nil {
			t.Fatalf("expected error for %s", content)
		}
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for explicit missing file")
	}
}

func TestResolvePath(t *testing.T) {
	t.Setenv(PathEnv, "")
	if got := ResolvePath(""); got != DefaultPath {
		t.Fatalf("expected default path, got %s", got)
	}
	t.Setenv(PathEnv, "/etc/hederakit.json")
	if got := ResolvePath(""); got != "/etc/hederakit.json" {
		t.Fatalf("expected env path, got %s", got)
	}
	if got := ResolvePath("local.json"); got != "local.json" {
		t.Fatalf("expected flag path, got %s", got)
	}
}

func TestConversions(t *testing.T) {
	q := QueueConfig{Redis: RedisConfig{Address: "localhost:6379", BlockWaitSeconds: 2}, RabbitMQ: RabbitMQConfig{URL: "amqp://x", Prefetch: 4}}
	if r := q.RedisQueue(); r.Address != "localhost:6379" || r.BlockWait != 2*time.Second {
		t.Fatalf("unexpected redis config: %+v", r)
	}
	if r := q.RabbitMQQueue(); r.URL != "amqp://x" || r.Prefetch != 4 {
		t.Fatalf("unexpected rabbitmq config: %+v", r)
	}
	db := DatabaseConfig{Driver: "sqlite", DSN: "x.db", ConnMaxLifetimeSeconds: 60}
	if s := db.SQL(); s.ConnMaxLifetime != time.Minute || s.Driver != "sqlite" {
		t.Fatalf("unexpected sql config: %+v", s)
	}
}

func TestSampleConfigLoads(t *testing.T) {
	t.Setenv(EnvNetwork, "")
	t.Setenv(EnvAccountID, "")
	t.Setenv(EnvPrivateKey, "")

	cfg, err := Load(filepath.Join("..", "..", "configs", "hederakit.json"))
	if err != nil {
		t.Fatalf("load sample: %v", err)
	}
	if cfg.Storage.Jobs.SQL().Driver != "sqlite" || cfg.Storage.Jobs.IsMemory() {
		t.Fatalf("unexpected jobs store %+v", cfg.Storage.Jobs)
	}
	if _, err := os.Stat(cfg.Network.NetworksFile); err != nil {
		t.Fatalf("networks file missing: %v", err)
	}
	if cfg.Telemetry.Alerts.TimeoutMS != 5000 || cfg.Queue.RabbitMQQueue().Queue != "hederakit.jobs" {
		t.Fatalf("unexpected telemetry or queue settings: %+v %+v", cfg.Telemetry, cfg.Queue)
	}
}
