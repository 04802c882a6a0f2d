package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/claude/stitch/internal/apiclient"
	"github.com/claude/stitch/internal/localstore"
	"github.com/claude/stitch/internal/logging"
	"github.com/claude/stitch/internal/models"
)

// source is the read side shared by the local store and a remote server.
type source interface {
	ListRoutines(ctx context.Context) ([]models.Routine, error)
	GetRoutine(ctx context.Context, id int64) (*models.Routine, error)
	ListExercises(ctx context.Context) ([]models.Exercise, error)
}

var (
	_ source = (*localstore.Store)(nil)
	_ source = (*apiclient.Client)(nil)
)

type commandContext struct {
	dbPath    string
	serverURL string
	apiKey    string
	logFile   string
	logLevel  string

	log       *slog.Logger
	logCloser io.Closer
}

// logger writes to --log-file when given and is silent otherwise, since the
// player owns the terminal.
func (c *commandContext) logger() *slog.Logger {
	if c.log != nil {
		return c.log
	}
	if c.logFile == "" {
		c.log = logging.NewWithWriter(io.Discard, c.logLevel, false)
		return c.log
	}
	c.log, c.logCloser = logging.New(logging.Params{Level: c.logLevel, File: c.logFile})
	return c.log
}

func (c *commandContext) close() {
	if c.logCloser != nil {
		_ = c.logCloser.Close()
	}
}

func (c *commandContext) remote() bool {
	return strings.TrimSpace(c.serverURL) != ""
}

func (c *commandContext) client() *apiclient.Client {
	key := c.apiKey
	if key == "" {
		key = os.Getenv("STITCH_API_KEY")
	}
	return apiclient.New(c.serverURL, key)
}

func (c *commandContext) openLocal() (*localstore.Store, error) {
	path := c.dbPath
	if path == "" {
		path = localstore.DefaultPath()
	}
	store, err := localstore.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open local store %s: %w", path, err)
	}
	return store, nil
}

// withSource runs fn against the remote server or the local store.
func (c *commandContext) withSource(fn func(source) error) error {
	if c.remote() {
		return fn(c.client())
	}
	store, err := c.openLocal()
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func parseRoutineID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid routine id %q", arg)
	}
	return id, nil
}
