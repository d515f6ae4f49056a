package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/huangsam/simchange/core"
	"github.com/huangsam/simchange/internal/contract"
	"github.com/huangsam/simchange/internal/dataset"
	"github.com/huangsam/simchange/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.CacheManager
}

// detectionView is the JSON shape of one detection returned to clients.
type detectionView struct {
	Lam          float64                `json:"lam"`
	Status       schema.RunStatus       `json:"status"`
	Iterations   int                    `json:"iterations"`
	NumSeries    int                    `json:"num_series"`
	NumFrames    int                    `json:"num_frames"`
	ChangeTimes  int                    `json:"change_times"`
	TotalChanges int                    `json:"total_changes"`
	Changes      []schema.LabeledChange `json:"changes"`
}

type sweepView struct {
	Entries  []detectionView `json:"entries"`
	Selected int             `json:"selected"`
}

func newDetectionView(result *schema.DetectionResult, labels []string) detectionView {
	return detectionView{
		Lam:          result.Params.Lam,
		Status:       result.Status,
		Iterations:   result.Iterations,
		NumSeries:    result.NumSeries,
		NumFrames:    result.NumFrames,
		ChangeTimes:  len(result.Changes),
		TotalChanges: result.Changes.NumChanges(),
		Changes:      core.TranslateChanges(result.Changes, labels),
	}
}

// requestConfig applies the tool arguments on top of the server's base config.
func (h *toolHandler) requestConfig(request mcp.CallToolRequest) (*contract.Config, error) {
	cfg := h.baseCfg.Clone()
	cfg.DataPath = request.GetString("data_path", "")
	if l := request.GetString("layout", ""); l != "" {
		cfg.Layout = schema.DataLayout(l)
	}
	cfg.Lam = request.GetFloat("lam", cfg.Lam)
	cfg.Alpha = request.GetFloat("alpha", cfg.Alpha)
	cfg.Beta = request.GetFloat("beta", cfg.Beta)
	cfg.LamMin = request.GetFloat("lam_min", cfg.LamMin)

	if g := request.GetString("groups", ""); g != "" {
		groups, err := contract.ParseGroups(g)
		if err != nil {
			return nil, fmt.Errorf("invalid groups: %w", err)
		}
		cfg.Groups = groups
	}
	if s := request.GetString("seeds", ""); s != "" {
		seeds, err := contract.ParseSeeds(s)
		if err != nil {
			return nil, fmt.Errorf("invalid seeds: %w", err)
		}
		cfg.Seeds = seeds
	}
	if l := request.GetString("labels", ""); l != "" {
		cfg.Labels = contract.ParseLabels(l)
	}
	if l := request.GetString("lams", ""); l != "" {
		lams, err := contract.ParseFloatList(l)
		if err != nil {
			return nil, fmt.Errorf("invalid lams: %w", err)
		}
		cfg.Lams = lams
	}
	cfg.TargetTimes = request.GetInt("target_times", cfg.TargetTimes)
	cfg.TargetChanges = request.GetInt("target_changes", cfg.TargetChanges)

	if err := contract.RevalidateDetect(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (h *toolHandler) handleDetectChanges(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.requestConfig(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid detection parameters: %v", err)), nil
	}

	src, err := dataset.Open(cfg.DataPath, cfg.Layout)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cannot load data: %v", err)), nil
	}
	defer func() { _ = src.Close() }()

	result, err := core.DetectChanges(core.WithSuppressHeader(ctx), cfg, src, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("detection failed: %v", err)), nil
	}
	filtered, err := core.FilterChanges(result, src.Labels(), cfg.Labels)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	jsonData, _ := json.MarshalIndent(newDetectionView(filtered, src.Labels()), "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleSweepChanges(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.requestConfig(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid sweep parameters: %v", err)), nil
	}
	if len(cfg.Lams) == 0 {
		return mcp.NewToolResultError("invalid sweep parameters: lams is required"), nil
	}

	src, err := dataset.Open(cfg.DataPath, cfg.Layout)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cannot load data: %v", err)), nil
	}
	defer func() { _ = src.Close() }()

	sweep, err := core.SweepChanges(core.WithSuppressHeader(ctx), cfg, src, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("sweep failed: %v", err)), nil
	}

	view := sweepView{Selected: sweep.Selected}
	for _, entry := range sweep.Entries {
		filtered, err := core.FilterChanges(entry.Result, src.Labels(), cfg.Labels)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		view.Entries = append(view.Entries, newDetectionView(filtered, src.Labels()))
	}

	jsonData, _ := json.MarshalIndent(view, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}
