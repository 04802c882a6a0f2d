// Package mcp exposes routines and live workout sessions as MCP tools.
package mcp

import (
	"log/slog"

	"github.com/claude/stitch/internal/sessions"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
// Sessions started through the tools live in mgr.
func New(ds DataSource, mgr *sessions.Manager, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("Stitch", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("Stitch workout server. Browse routines and exercises, preview a routine's set order, and run a workout: start it, advance through sets and rests, record weight and reps, then end it."),
	)

	h := &handlers{ds: ds, sessions: mgr, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolListRoutines, Handler: h.listRoutines},
		server.ServerTool{Tool: toolGetRoutinePlan, Handler: h.getRoutinePlan},
		server.ServerTool{Tool: toolListExercises, Handler: h.listExercises},
		server.ServerTool{Tool: toolStartWorkout, Handler: h.startWorkout},
		server.ServerTool{Tool: toolGetWorkout, Handler: h.getWorkout},
		server.ServerTool{Tool: toolAdvanceWorkout, Handler: h.advanceWorkout},
		server.ServerTool{Tool: toolSetWorkoutActuals, Handler: h.setWorkoutActuals},
		server.ServerTool{Tool: toolEndWorkout, Handler: h.endWorkout},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resRoutines, Handler: h.routines},
		server.ServerResource{Resource: resExercises, Handler: h.exercises},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds       DataSource
	sessions *sessions.Manager
	log      *slog.Logger
}

// --- Resource definitions ---

var resRoutines = mcp.NewResource(
	"stitch://routines",
	"Routines",
	mcp.WithResourceDescription("Every stored routine with its series, exercises and planned sets"),
	mcp.WithMIMEType("application/json"),
)

var resExercises = mcp.NewResource(
	"stitch://exercises",
	"Exercise Library",
	mcp.WithResourceDescription("The exercise library: titles, muscle groups and default logging type"),
	mcp.WithMIMEType("application/json"),
)
