package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// ServerURL is the websocket endpoint of the group server.
	ServerURL string
	// ListenAddr is the local control API address.
	ListenAddr string
	// DBPath is the preference database location.
	DBPath string
	// GroupID, when set, overrides the remembered group id on startup.
	GroupID string

	ReconnectMin time.Duration
	ReconnectMax time.Duration
}

func Default() Config {
	return Config{
		ServerURL:    "ws://localhost:8000/ws/user",
		ListenAddr:   "127.0.0.1:8090",
		DBPath:       defaultDBPath(),
		ReconnectMin: 500 * time.Millisecond,
		ReconnectMax: 10 * time.Second,
	}
}

// Load reads .env (if present) and environment overrides on top of the
// defaults.
func Load() Config {
	_ = godotenv.Load()

	cfg := Default()
	if v := os.Getenv("DVC_SERVER_URL"); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv("DVC_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("DVC_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("DVC_GROUP_ID"); v != "" {
		cfg.GroupID = v
	}
	return cfg
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "dvc.db"
	}
	return filepath.Join(home, ".local", "state", "dvc", "prefs.db")
}
