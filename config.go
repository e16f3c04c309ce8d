package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the CLI configuration, loaded from a YAML file. Backend selects
// which store is authoritative for new lend/return actions.
type Config struct {
	Backend        string `yaml:"backend"` // "local" or "ledger"
	StoragePath    string `yaml:"storage_path"`
	KeystorePath   string `yaml:"keystore_path"`
	ModuleAddress  string `yaml:"module_address"`
	LibraryAddress string `yaml:"library_address"`
	Network        string `yaml:"network"`
}

const defaultConfigFile = "book-vault.yaml"

func defaultConfig() Config {
	return Config{
		Backend:       "local",
		StoragePath:   "library.db",
		KeystorePath:  "wallet.json",
		ModuleAddress: "0x1",
		Network:       "simnet",
	}
}

// loadConfig reads the YAML config at path, falling back to defaults when the
// file does not exist. Unset fields keep their defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	switch cfg.Backend {
	case "", "local", "ledger":
	default:
		return cfg, fmt.Errorf("config %s: unknown backend %q (want local or ledger)", path, cfg.Backend)
	}
	return cfg, nil
}
