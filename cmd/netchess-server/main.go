// netchess-server runs the multiplayer chess server.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/netchess/netchess/internal/auth"
	"github.com/netchess/netchess/internal/config"
	"github.com/netchess/netchess/internal/room"
	"github.com/netchess/netchess/internal/server"
	"github.com/netchess/netchess/internal/storage"
)

func main() {
	configPath := flag.String("config", "netchess.yaml", "path to the configuration file")
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("loading configuration")
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.WithError(err).Fatal("invalid log level")
	}
	logrus.SetLevel(level)

	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir, err = storage.DefaultDataDir()
		if err != nil {
			logrus.WithError(err).Fatal("resolving data directory")
		}
	}

	store, err := storage.Open(dataDir)
	if err != nil {
		logrus.WithError(err).WithField("dataDir", dataDir).Fatal("opening player store")
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rooms := room.NewService(store)
	srv := server.New(cfg.ListenAddr, cfg.LoginDeadline.Std(), cfg.MatchmakingInterval.Std(), auth.NewService(store), rooms)

	if err := srv.Run(ctx); err != nil {
		logrus.WithError(err).Fatal("server terminated")
	}
	logrus.Info("server stopped")
}
