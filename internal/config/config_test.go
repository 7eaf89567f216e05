package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("STORE_TIMEOUT", "not-a-duration")
	t.Setenv("MONGO_TRANSACTIONS", "true")

	cfg := FromEnv()
	if cfg.StoreTimeout != 5*time.Second {
		t.Errorf("StoreTimeout = %v, want default", cfg.StoreTimeout)
	}
	if !cfg.MongoTransactions {
		t.Error("MONGO_TRANSACTIONS=true not honoured")
	}
}

func TestValidate(t *testing.T) {
	ok := &Config{StoreDriver: StoreMemory, Env: "development", StoreTimeout: time.Second}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	bad := *ok
	bad.StoreDriver = "postgres"
	if err := bad.Validate(); err == nil {
		t.Error("unknown driver accepted")
	}

	prod := *ok
	prod.Env = "production"
	if err := prod.Validate(); err == nil {
		t.Error("production without JWT_SECRET accepted")
	}
}
