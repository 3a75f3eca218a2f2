package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/hanzoai/oauth-proxy/internal"
	"github.com/hanzoai/oauth-proxy/internal/config"
	"github.com/hanzoai/oauth-proxy/internal/log"
	"github.com/hanzoai/oauth-proxy/internal/provider"
)

var BuildVersion = "dev"

func main() {
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()
	if *version {
		fmt.Println(BuildVersion)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.LogError("Failed to load config: %v", err)
		os.Exit(1)
	}

	log.LogInfoWithFields("main", "Starting oauth-proxy", map[string]any{
		"version":   BuildVersion,
		"addr":      cfg.Addr(),
		"callback":  cfg.CallbackBaseURL,
		"providers": provider.Names(),
	})

	app := internal.NewOAuthProxy(cfg)
	if err := app.Run(); err != nil {
		log.LogError("Server error: %v", err)
		os.Exit(1)
	}
}
