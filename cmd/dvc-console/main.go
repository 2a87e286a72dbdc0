package main

import (
	"context"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/lukasstorck/dynamic-virtual-controller/internal/config"
	"github.com/lukasstorck/dynamic-virtual-controller/internal/console"
	"github.com/lukasstorck/dynamic-virtual-controller/internal/prefs"
	"github.com/lukasstorck/dynamic-virtual-controller/internal/session"
)

func main() {
	cfg := config.Load()

	// The terminal belongs to the UI; logs go to a file when requested and
	// nowhere otherwise.
	logger := zap.NewNop()
	if path := os.Getenv("DVC_LOG_FILE"); path != "" {
		zapCfg := zap.NewProductionConfig()
		zapCfg.OutputPaths = []string{path}
		built, err := zapCfg.Build()
		if err != nil {
			log.Fatal(err)
		}
		logger = built
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := prefs.Open(ctx, cfg.DBPath, logger)
	defer store.Close()

	supervisor := session.New(ctx, session.Options{
		URL:          cfg.ServerURL,
		Store:        store,
		Log:          logger,
		ReconnectMin: cfg.ReconnectMin,
		ReconnectMax: cfg.ReconnectMax,
	})

	if cfg.GroupID != "" {
		supervisor.Inbox() <- session.JoinGroup{GroupID: cfg.GroupID}
	}

	program := tea.NewProgram(console.NewModel(supervisor), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		log.Fatal(err)
	}
}
