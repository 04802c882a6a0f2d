package mcp

import (
	"context"

	"github.com/claude/stitch/internal/apiclient"
	"github.com/claude/stitch/internal/localstore"
	"github.com/claude/stitch/internal/models"
	"github.com/claude/stitch/internal/storage"
)

// DataSource abstracts the catalog for MCP tools. *storage.DB and
// *localstore.Store serve it directly, *apiclient.Client through the REST API.
type DataSource interface {
	ListRoutines(ctx context.Context) ([]models.Routine, error)
	GetRoutine(ctx context.Context, id int64) (*models.Routine, error)
	ListExercises(ctx context.Context) ([]models.Exercise, error)
	GetExercise(ctx context.Context, id int64) (*models.Exercise, error)
}

// Compile-time checks: every backend satisfies DataSource.
var (
	_ DataSource = (*storage.DB)(nil)
	_ DataSource = (*localstore.Store)(nil)
	_ DataSource = (*apiclient.Client)(nil)
)
