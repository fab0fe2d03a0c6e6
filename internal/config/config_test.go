package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != "8080" {
		t.Fatalf("port=%s want=8080", cfg.Server.Port)
	}
	if cfg.Storage.Driver != DriverMongo {
		t.Fatalf("driver=%s want=%s", cfg.Storage.Driver, DriverMongo)
	}
	if cfg.Ledger.MaxTxnAttempts != 4 {
		t.Fatalf("attempts=%d want=4", cfg.Ledger.MaxTxnAttempts)
	}
	if cfg.SheetsEnabled() {
		t.Fatal("sheets mirror should be off by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", DriverMemory)
	t.Setenv("APP_PORT", "9090")
	t.Setenv("LEDGER_MAX_TXN_ATTEMPTS", "7")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Storage.Driver != DriverMemory || cfg.Server.Port != "9090" || cfg.Ledger.MaxTxnAttempts != 7 {
		t.Fatalf("cfg=%+v", cfg)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("STORAGE_DRIVER", "cassandra")
		if _, err := Load(""); err == nil {
			t.Fatal("want error for unknown driver")
		}
	})

	t.Run("partial sheets config", func(t *testing.T) {
		t.Setenv("GOOGLE_SHEET_AUDIT_ID", "sheet-id")
		if _, err := Load(""); err == nil {
			t.Fatal("want error for half-configured sheets mirror")
		}
	})

	t.Run("malformed retry budget", func(t *testing.T) {
		t.Setenv("LEDGER_MAX_TXN_ATTEMPTS", "four")
		if _, err := Load(""); err == nil {
			t.Fatal("want error for non-integer LEDGER_MAX_TXN_ATTEMPTS")
		}
	})

	t.Run("non-positive retry budget", func(t *testing.T) {
		t.Setenv("LEDGER_MAX_TXN_ATTEMPTS", "0")
		if _, err := Load(""); err == nil {
			t.Fatal("want error for zero LEDGER_MAX_TXN_ATTEMPTS")
		}
	})
}
