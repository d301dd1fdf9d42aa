package main

import (
	"context"
	"net/http"
	"os"

	log "github.com/inconshreveable/log15"
	"golang.ngrok.com/ngrok"
	ngrokconfig "golang.ngrok.com/ngrok/config"

	"PulseBot/access"
	"PulseBot/api"
	"PulseBot/config"
	"PulseBot/db"
	"PulseBot/scheduler"
	"PulseBot/stats"
	"PulseBot/utils"
)

var logger = log.New("module", "main")

func main() {
	config.LoadEnv()

	if err := utils.InitCrypto(); err != nil {
		fatal("crypto init failed", err)
	}
	if err := db.Init(); err != nil {
		fatal("database init failed", err)
	}

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}
	if err := db.ImportLegacyData(dataDir, os.Getenv("CONFIG_JSON_PATH")); err != nil {
		fatal("legacy import failed", err)
	}

	states, err := utils.NewStateStore()
	if err != nil {
		fatal("redis init failed", err)
	}

	cfg, err := db.LoadAppConfig()
	if err != nil {
		fatal("no configuration found; seed a config.json or the config table", err)
	}

	messenger := api.NewMessenger()
	engine := &stats.Engine{Responses: stats.DBResponses{}}

	sched := scheduler.New(messenger, engine)
	if err := sched.Start(cfg); err != nil {
		fatal("scheduler start failed", err)
	}
	defer sched.Stop()

	if err := messenger.EnsureScorecardChannel(cfg); err != nil {
		logger.Warn("scorecard channel not ready", "err", err)
	}

	handler := &api.Handler{
		Messenger: messenger,
		Engine:    engine,
		Policy:    &access.Policy{Roles: access.DBRoles{}},
		Scheduler: sched,
		States:    states,
	}
	router := SetupRouter(handler)

	// Local development tunnels through ngrok so Slack can reach us.
	if os.Getenv("NGROK_AUTHTOKEN") != "" {
		listener, err := ngrok.Listen(context.Background(),
			ngrokconfig.HTTPEndpoint(),
			ngrok.WithAuthtokenFromEnv(),
		)
		if err != nil {
			fatal("ngrok listener failed", err)
		}
		logger.Info("serving over ngrok", "url", listener.URL())
		if err := http.Serve(listener, router); err != nil {
			fatal("server stopped", err)
		}
		return
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	logger.Info("server listening", "port", port)
	if err := http.ListenAndServe(":"+port, router); err != nil {
		fatal("server stopped", err)
	}
}

func fatal(msg string, err error) {
	logger.Crit(msg, "err", err)
	os.Exit(1)
}
