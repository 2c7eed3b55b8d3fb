package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tsaubergine/acomms/internal/acommsd"
)

func main() {
	cfg := acommsd.DefaultServiceConfig()
	flag.StringVar(&cfg.ConfigPath, "config", cfg.ConfigPath, "path to acommsd TOML config")
	flag.StringVar(&cfg.HTTPListenAddr, "http", cfg.HTTPListenAddr, "HTTP introspection listen address")
	flag.StringVar(&cfg.AdminListenAddr, "admin", cfg.AdminListenAddr, "admin control listen address")
	flag.Parse()

	svc := acommsd.NewService(cfg)
	if err := svc.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "acommsd: %v\n", err)
		os.Exit(1)
	}
}
