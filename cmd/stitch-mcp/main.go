package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"github.com/claude/stitch/internal/apiclient"
	"github.com/claude/stitch/internal/localstore"
	"github.com/claude/stitch/internal/logging"
	"github.com/claude/stitch/internal/mcp"
	"github.com/claude/stitch/internal/metrics"
	"github.com/claude/stitch/internal/sessions"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "Stitch server URL (e.g. https://stitch.tail1234.ts.net); default is the local store")
	dbPath := flag.String("db", "", "local store path (default ~/.stitch/stitch.db)")
	logFile := flag.String("log-file", "", "write logs to this file (stdout carries the MCP protocol)")
	logLevel := flag.String("log-level", "info", "log level")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("stitch-mcp", Version)
		return
	}

	log := logging.NewWithWriter(os.Stderr, *logLevel, false)
	if *logFile != "" {
		var closer io.Closer
		log, closer = logging.New(logging.Params{Level: *logLevel, File: *logFile})
		defer closer.Close()
	}

	var ds mcp.DataSource
	if url := strings.TrimRight(*serverURL, "/"); url != "" {
		ds = apiclient.New(url, os.Getenv("STITCH_API_KEY"))
		log.Info("using remote server", "url", url)
	} else {
		path := *dbPath
		if path == "" {
			path = localstore.DefaultPath()
		}
		store, err := localstore.Open(path)
		if err != nil {
			log.Error("failed to open local store", "path", path, "error", err)
			os.Exit(1)
		}
		defer store.Close()
		ds = store
		log.Info("using local store", "path", store.Path())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mgr := sessions.NewManager(sessions.Options{}, metrics.NewManager("stitch", "mcp", nil), log)
	go mgr.Run(ctx)
	defer mgr.CloseAll()

	if err := server.ServeStdio(mcp.New(ds, mgr, Version, log)); err != nil {
		log.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
