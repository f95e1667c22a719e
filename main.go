package main

import (
	"embed"
	"fmt"
	"os"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"go.uber.org/zap"

	"wordcast/internal/config"
	"wordcast/internal/logging"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	// Full config errors surface in the UI once the app starts; here only the
	// log settings matter.
	logCfg := config.Default().Log
	if cfg, err := config.Load(); err == nil {
		logCfg = cfg.Log
	}
	log, err := logging.New(logging.Options{
		Verbose: logCfg.Verbose,
		JSON:    logCfg.JSON,
		Host:    logging.HostDesktop,
		NoColor: true,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	app := NewApp(log)
	err = wails.Run(&options.App{
		Title:  "wordcast",
		Width:  520,
		Height: 640,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		OnStartup:  app.startup,
		OnShutdown: app.shutdown,
		Bind:       []interface{}{app},
	})
	if err != nil {
		log.Error("wails run failed", zap.Error(err))
		os.Exit(1)
	}
}
