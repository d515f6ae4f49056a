// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/simchange/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the simchange MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.CacheManager) *server.MCPServer {
	s := server.NewMCPServer(
		"Simultaneous Changepoint Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
	}

	// --- 1. Tool: detect_changes ---
	s.AddTool(mcp.NewTool("detect_changes",
		withDetectionOptions(
			mcp.WithDescription("Detect changepoints shared across the series of a CSV or Parquet matrix."),
			mcp.WithNumber("lam", mcp.Description("Penalty scale for a change. Larger values report fewer changes.")),
		)...,
	), h.handleDetectChanges)

	// --- 2. Tool: sweep_changes ---
	s.AddTool(mcp.NewTool("sweep_changes",
		withDetectionOptions(
			mcp.WithDescription("Run one detection per penalty scale and optionally select the scale closest to a target."),
			mcp.WithString("lams", mcp.Description("Comma-separated penalty scales, e.g. '4,8,16,32'."), mcp.Required()),
			mcp.WithNumber("target_times", mcp.Description("Select the scale whose number of change times is closest to this.")),
			mcp.WithNumber("target_changes", mcp.Description("Select the scale whose total number of changes is closest to this.")),
		)...,
	), h.handleSweepChanges)

	return s
}

// withDetectionOptions appends the options every detection tool accepts.
func withDetectionOptions(opts ...mcp.ToolOption) []mcp.ToolOption {
	return append(opts,
		mcp.WithString("data_path", mcp.Description("Path to the CSV or Parquet data file."), mcp.Required()),
		mcp.WithString("layout", mcp.Description("CSV layout: one series per row or one frame per row. Defaults to 'series'."), mcp.Enum("series", "frames")),
		mcp.WithNumber("alpha", mcp.Description("Cross-group discount exponent in (0, 1].")),
		mcp.WithNumber("beta", mcp.Description("Within-group discount exponent in (0, 1].")),
		mcp.WithNumber("lam_min", mcp.Description("Floor for the initial per-series penalties.")),
		mcp.WithString("groups", mcp.Description("Series groups, e.g. '0-4;5,7;8-9'.")),
		mcp.WithString("seeds", mcp.Description("Comma-separated per-series seeds.")),
		mcp.WithString("labels", mcp.Description("Comma-separated series labels to keep in the result.")),
	)
}

// StartMCPServer starts the simchange MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.CacheManager) error {
	s := NewMCPServer(baseCfg, mgr)
	return server.ServeStdio(s)
}
