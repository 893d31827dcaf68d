// Copyright 2025 The BookServe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the catalog search server and CLI [DBG] application.

Note: This is a BETA release. APIs and functionality may rapidly change.

BookServe keeps a local snapshot of a library catalog and serves type-ahead
suggestions over it: titles, authors and ISBNs containing what was typed,
starts-with matches first. On top of that it runs paginated searches over an
in-memory index and checks and records reservations.

# Usage

Start the server with the catalog found in the default locations:

	bookserve

Use a specific catalog, reload it when it changes, and enable debug mode:

	bookserve -catalog /path/to/catalog.yaml -watch -d

Run in CLI mode to try the search box interactively:

	bookserve -c -patron alice

Catalog files may be JSON, YAML, TOML or msgpack. Without -catalog the
working directory, the executable directory, its data/ directory and the
config directory are searched for catalog.json, catalog.yaml, catalog.toml
and catalog.msgpack.

# Configuration

Runtime configuration is read from a TOML file, created with defaults when
missing:

	[suggest]
	min_query = 2
	limit = 8
	debounce_ms = 300

	[search]
	page_size = 10
	max_query = 200
	page_window = 5

	[catalog]
	path = ""
	cache_path = ""
	watch = false

	[reserve]
	max_active = 5

	[server]
	reload_every = 200

Server mode reloads the suggest section every reload_every requests.

# IPC Protocol

The server communicates via MessagePack over stdin/stdout, see package server
for the message shapes:

	{"id": "req1", "q": "dun"}
	{"id": "req1", "s": [{"k": "TITLE", "t": "Dune", "e": "b1", "r": 1}], "c": 1, "t": 38}

# Command Line Flags

	-catalog string
	    Catalog file (json, yaml, toml or msgpack)
	-config string
	    Path to config.toml
	-cache string
	    Snapshot cache file, used when the catalog cannot be read at start
	-d  Enable debug mode with detailed logging
	-c  Run in CLI mode instead of server mode
	-watch
	    Reload the catalog when the file changes
	-patron string
	    Patron id used for reservations in CLI mode
	-rebuild-config
	    Overwrite the default config.toml with defaults and exit
	-version
	    Show current version
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/bastiangx/bookserve/internal/cli"
	"github.com/bastiangx/bookserve/internal/logger"
	"github.com/bastiangx/bookserve/internal/utils"
	"github.com/bastiangx/bookserve/pkg/catalog"
	"github.com/bastiangx/bookserve/pkg/config"
	"github.com/bastiangx/bookserve/pkg/reserve"
	"github.com/bastiangx/bookserve/pkg/search"
	"github.com/bastiangx/bookserve/pkg/server"
	"github.com/bastiangx/bookserve/pkg/session"
	"github.com/bastiangx/bookserve/pkg/suggest"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

const (
	Version = "0.3.0-beta"
	AppName = "bookserve"
	gh      = "https://github.com/bastiangx/bookserve"
)

// sigHandler cancels the root context on SIGINT/SIGTERM and exits.
func sigHandler(cancel context.CancelFunc) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		cancel()
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		os.Exit(0)
	}()
}

// main wires the packages together and picks server or CLI mode.
// It does not implement logic for them and only manages the flow.
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigHandler(cancel)

	showVersion := flag.Bool("version", false, "Show current version")
	catalogPath := flag.String("catalog", "", "Catalog file (json, yaml, toml or msgpack)")
	configPath := flag.String("config", "", "Path to config.toml")
	cachePath := flag.String("cache", "", "Snapshot cache file, used when the catalog cannot be read at start")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	cliMode := flag.Bool("c", false, "Run CLI -- useful for testing and debugging")
	watch := flag.Bool("watch", false, "Reload the catalog when the file changes")
	patronID := flag.String("patron", "local", "Patron id used for reservations in CLI mode")
	rebuildConfig := flag.Bool("rebuild-config", false, "Overwrite the default config.toml with defaults and exit")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	logger.Setup(*debugMode)

	if *rebuildConfig {
		if err := config.RebuildConfigFile(); err != nil {
			log.Fatalf("Failed to rebuild config: %v", err)
		}
		log.Print("Config file rebuilt with defaults")
		os.Exit(0)
	}

	cfg, activeConfig, err := config.LoadConfigWithPriority(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Debugf("Using config file: (%s)", config.GetActiveConfigPath(activeConfig))

	configDir := ""
	if activeConfig != "" {
		configDir = filepath.Dir(activeConfig)
	}
	resolver := utils.NewPathResolver(configDir)

	userCatalog := *catalogPath
	if userCatalog == "" {
		userCatalog = cfg.Catalog.Path
	}
	cache := *cachePath
	if cache == "" {
		cache = cfg.Catalog.CachePath
	}
	if cache == "" {
		cache = resolver.DefaultCachePath()
	}

	var store *catalog.Store
	resolvedCatalog, err := resolver.ResolveCatalog(userCatalog)
	switch {
	case err == nil:
		log.Debugf("Using catalog at: %s", resolvedCatalog)
		store = catalog.NewStore(catalog.NewFileSource(resolvedCatalog), catalog.WithCache(cache))
	case utils.FileExists(cache):
		log.Warnf("No catalog file found (%s), using the cached snapshot at %s", describeRequest(userCatalog), cache)
		store = catalog.NewStore(catalog.NewFileSource(cache))
	default:
		log.Warnf("No catalog file found (%s), running with an empty catalog...", describeRequest(userCatalog))
		store = catalog.NewStore(&catalog.StaticSource{Name: "empty"})
	}
	if err := store.Refresh(ctx); err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}

	engine := suggest.NewEngine(suggest.Options{MinQueryLen: cfg.Suggest.MinQuery, Limit: cfg.Suggest.Limit})

	index, err := search.NewIndex(store.Current(), cfg.Search.MaxQuery)
	if err != nil {
		log.Fatalf("Failed to build search index: %v", err)
	}
	defer index.Close()
	store.OnRefresh(func(snap *catalog.Snapshot) {
		if err := index.Rebuild(snap); err != nil {
			log.Errorf("Search index rebuild failed, results may be stale: %v", err)
		}
	})

	ledger := reserve.NewLedger(store, reserve.Policy{MaxActive: cfg.Reserve.MaxActive})

	if (*watch || cfg.Catalog.Watch) && resolvedCatalog != "" {
		watcher := catalog.NewWatcher(store, resolvedCatalog)
		if err := watcher.Start(ctx); err != nil {
			log.Warnf("Catalog watcher disabled: %v", err)
		} else {
			defer watcher.Stop()
		}
	}

	// CLI would be mainly used for testing and dbg purposes.
	if *cliMode {
		log.Debug("Input info:",
			"minQuery", cfg.Suggest.MinQuery,
			"limit", cfg.Suggest.Limit,
			"debounce", cfg.Suggest.Debounce(),
			"patron", *patronID)

		handler := cli.NewInputHandler(cli.Config{
			Engine:   engine,
			Store:    store,
			Searcher: index,
			Reserver: ledger,
			Patron:   reserve.Patron{ID: *patronID},
			Session: session.Options{
				Delay:       cfg.Suggest.Debounce(),
				MinQueryLen: cfg.Suggest.MinQuery,
				PageSize:    cfg.Search.PageSize,
			},
			PageWindow: cfg.Search.PageWindow,
		})
		if err := handler.Start(ctx); err != nil {
			log.Fatalf("CLI error: %v", err)
		}
		return
	}

	log.Debug("spawning IPC")
	srv := server.NewServer(engine, store, index, ledger, cfg, activeConfig)

	showStartupInfo(store.Stats())

	if err := srv.Start(ctx); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}

func describeRequest(path string) string {
	if path == "" {
		return "searched default locations"
	}
	return path
}

func printVersion() {
	l := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
		Prefix:          "",
	})

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"}).
		Background(lipgloss.AdaptiveColor{Light: "#f2e9e1", Dark: "#26233a"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	l.SetStyles(styles)

	l.Print("")
	l.Print("[ BookServe ] Library catalog suggestions and search")
	l.Print("", "version", Version)
	l.Print("")
	l.Print("use -h or --help to see available options")
	l.Print("Github Repo", "gh", gh)
}

// showStartupInfo displays some basic info about the init process on stderr.
func showStartupInfo(stats catalog.StoreStats) {
	l := logger.New(AppName)
	l.SetLevel(log.InfoLevel)

	l.Print("=============")
	l.Print(" BookServe ")
	l.Print("=============")
	l.Infof("Version: %s", Version)
	l.Infof("Process ID: [ %d ]", os.Getpid())
	l.Infof("catalog: ( %s, %d entries )", stats.Source, stats.Entries)
	l.Info("status: ready")
	l.Print("Press Ctrl+C to exit")
}
