// labchat - session-scoped LLM client with four page operations over HTTP.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jeranaias/labchat/internal/config"
	"github.com/jeranaias/labchat/internal/openai"
	"github.com/jeranaias/labchat/internal/pages"
	"github.com/jeranaias/labchat/internal/rules"
	"github.com/jeranaias/labchat/internal/server"
	"github.com/jeranaias/labchat/internal/session"
	"github.com/jeranaias/labchat/internal/storage"
	"github.com/jeranaias/labchat/internal/vectorstore"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config.toml (default ~/.labchat/config.toml)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("labchat %s (%s, %s)\n", Version, GitCommit, BuildDate)
		return
	}

	if err := run(*configPath); err != nil {
		log.Fatalf("FATAL | %v", err)
	}
}

func run(configPath string) error {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromPath(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Remote client. The credential is per-session; the client carries
	// only endpoint settings.
	client := openai.NewClient().
		WithBaseURL(cfg.OpenAI.BaseURL).
		WithModel(cfg.OpenAI.Model).
		WithTimeout(time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second)

	// Rulebook, with hot-reload when a file is configured.
	rulesSrc := rules.NewSource(cfg.Rules.Path)
	if cfg.Rules.Path != "" {
		if err := rulesSrc.Load(); err != nil {
			return err
		}
		watcher, err := rules.NewWatcher(rulesSrc, time.Duration(cfg.Rules.ReloadDebounceMs)*time.Millisecond)
		if err != nil {
			return err
		}
		if err := watcher.Watch(); err != nil {
			return err
		}
		defer watcher.Close()
	}

	// Transcript store.
	storagePath := cfg.Storage.Path
	if storagePath == "" {
		storagePath, err = config.DefaultStoragePath()
		if err != nil {
			return err
		}
	}
	store, err := storage.Open(storagePath)
	if err != nil {
		return err
	}
	defer store.Close()

	// Sessions and pages.
	registry := session.NewRegistry(
		vectorstore.NewOpenAIRemote(client),
		cfg.Cache.MaxEntries,
		time.Duration(cfg.Session.IdleTimeoutSecs)*time.Second,
	)
	registry.StartSweeper(ctx, time.Duration(cfg.Session.SweepIntervalSecs)*time.Second)

	chat := pages.NewChatPage(client)
	docqa := pages.NewDocQAPage()
	router := pages.NewRouter(pages.NewQAPage(client), chat, pages.NewRulesPage(client, rulesSrc), docqa)

	srv := server.New(registry, router, chat, docqa, store, server.Config{
		RateLimitPerSec: cfg.Server.RateLimitPerSec,
		RateLimitBurst:  cfg.Server.RateLimitBurst,
		MaxBodyBytes:    cfg.Server.MaxBodyBytes,
		MaxUploadBytes:  cfg.Server.MaxUploadBytes,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	return srv.ListenAndServe(ctx, addr)
}
