package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/forest6511/hygienectl/internal/cli"
	"github.com/forest6511/hygienectl/pkg/advisor"
	"github.com/forest6511/hygienectl/pkg/hygiene"
	"github.com/forest6511/hygienectl/pkg/security"
	"github.com/forest6511/hygienectl/pkg/timeline"
	"github.com/forest6511/hygienectl/pkg/vault"
)

// maxAnalyzeLength caps candidate passwords sent to password_analyze.
const maxAnalyzeLength = vault.MaxPasswordSize

// VaultListInput represents input for vault_list tool.
type VaultListInput struct {
	Filter    []string `json:"filter,omitempty"`     // title/site patterns
	OlderThan string   `json:"older_than,omitempty"` // e.g. "90d", "6m"
	WeakOnly  bool     `json:"weak_only,omitempty"`
}

// VaultListOutput represents output for vault_list tool.
type VaultListOutput struct {
	Items []ItemInfo `json:"items"`
}

// ItemInfo is the metadata of one item (no password).
type ItemInfo struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Site           string `json:"site,omitempty"`
	MaskedUsername string `json:"masked_username,omitempty"`
	Entropy        int    `json:"entropy"`
	Strength       string `json:"strength"`
	Weak           bool   `json:"weak"`
	ReusedBy       int    `json:"reused_by,omitempty"`
	AgeDays        int    `json:"age_days"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at,omitempty"`
}

// PasswordAnalyzeInput represents input for password_analyze tool.
type PasswordAnalyzeInput struct {
	Password string `json:"password,omitempty"`
	ID       string `json:"id,omitempty"`
}

// PasswordAnalyzeOutput represents output for password_analyze tool.
type PasswordAnalyzeOutput struct {
	ID               string              `json:"id,omitempty"`
	Length           int                 `json:"length"`
	Entropy          int                 `json:"entropy"`
	EffectiveEntropy int                 `json:"effective_entropy"`
	Strength         string              `json:"strength"`
	Complexity       string              `json:"complexity"`
	CrackTime        string              `json:"crack_time"`
	Weaknesses       []security.Weakness `json:"weaknesses"`
	ReusedBy         int                 `json:"reused_by,omitempty"`
}

// HygieneScoreInput represents input for hygiene_score tool.
type HygieneScoreInput struct{}

// HygieneScoreOutput represents output for hygiene_score tool.
type HygieneScoreOutput struct {
	Health     int                  `json:"health"`
	ItemCount  int                  `json:"item_count"`
	WeakCount  int                  `json:"weak_count"`
	ReuseCount int                  `json:"reuse_count"`
	Radar      hygiene.RadarMetrics `json:"radar"`
	Stats      hygiene.Stats        `json:"stats"`
}

// HygieneTipsInput represents input for hygiene_tips tool.
type HygieneTipsInput struct{}

// HygieneTipsOutput represents output for hygiene_tips tool.
type HygieneTipsOutput struct {
	Tips []advisor.Tip `json:"tips"`
}

// HygieneReportInput represents input for hygiene_report tool.
type HygieneReportInput struct{}

// HygieneReportOutput represents output for hygiene_report tool.
type HygieneReportOutput struct {
	Report advisor.Report `json:"report"`
}

// HygieneTimelineInput represents input for hygiene_timeline tool.
type HygieneTimelineInput struct {
	Window int `json:"window,omitempty"` // trailing snapshots, default 30
}

// HygieneTimelineOutput represents output for hygiene_timeline tool.
type HygieneTimelineOutput struct {
	Snapshots []SnapshotInfo `json:"snapshots"`
	Trend     int            `json:"trend"`
}

// SnapshotInfo is one day of the timeline.
type SnapshotInfo struct {
	Date        string `json:"date"`
	HealthScore int    `json:"health_score"`
	WeakCount   int    `json:"weak_count"`
	ReuseCount  int    `json:"reuse_count"`
}

// handleVaultList handles the vault_list tool call.
func (s *Server) handleVaultList(_ context.Context, _ *mcp.CallToolRequest, input VaultListInput) (*mcp.CallToolResult, VaultListOutput, error) {
	view, err := s.vault.Analytics()
	if err != nil {
		return nil, VaultListOutput{}, fmt.Errorf("failed to read vault: %w", err)
	}

	items, err := cli.FilterItems(input.Filter, view.Items)
	if err != nil {
		return nil, VaultListOutput{}, err
	}

	var olderThan time.Duration
	if input.OlderThan != "" {
		olderThan, err = parseDuration(input.OlderThan)
		if err != nil {
			return nil, VaultListOutput{}, fmt.Errorf("invalid older_than format: %w", err)
		}
	}

	output := VaultListOutput{Items: make([]ItemInfo, 0, len(items))}
	for _, item := range items {
		age := item.Age(view.GeneratedAt)
		if olderThan > 0 && age <= olderThan {
			continue
		}
		bits := security.CalculateEntropy(item.Password)
		weak := bits < hygiene.ListWeakEntropyBits
		if input.WeakOnly && !weak {
			continue
		}

		info := ItemInfo{
			ID:             item.ID,
			Title:          item.Title,
			Site:           item.Site,
			MaskedUsername: maskValue(item.Username),
			Entropy:        bits,
			Strength:       security.StrengthLevel(item.Password).String(),
			Weak:           weak,
			ReusedBy:       view.Reuse[item.ID],
			AgeDays:        int(age.Hours() / 24),
			CreatedAt:      item.CreatedAt.Format(time.RFC3339),
		}
		if !item.UpdatedAt.IsZero() {
			info.UpdatedAt = item.UpdatedAt.Format(time.RFC3339)
		}
		output.Items = append(output.Items, info)
	}

	return nil, output, nil
}

// handlePasswordAnalyze handles the password_analyze tool call.
func (s *Server) handlePasswordAnalyze(_ context.Context, _ *mcp.CallToolRequest, input PasswordAnalyzeInput) (*mcp.CallToolResult, PasswordAnalyzeOutput, error) {
	switch {
	case input.Password == "" && input.ID == "":
		return nil, PasswordAnalyzeOutput{}, errors.New("password or id is required")
	case input.Password != "" && input.ID != "":
		return nil, PasswordAnalyzeOutput{}, errors.New("password and id are mutually exclusive")
	case len(input.Password) > maxAnalyzeLength:
		return nil, PasswordAnalyzeOutput{}, fmt.Errorf("password too long (max %d)", maxAnalyzeLength)
	}

	if input.Password != "" {
		return nil, analyzePassword(input.Password), nil
	}

	view, err := s.vault.Analytics()
	if err != nil {
		return nil, PasswordAnalyzeOutput{}, fmt.Errorf("failed to read vault: %w", err)
	}
	item, err := s.vault.Item(input.ID)
	if err != nil {
		return nil, PasswordAnalyzeOutput{}, fmt.Errorf("failed to get item: %w", err)
	}
	output := analyzePassword(item.Password)
	output.ID = item.ID
	output.ReusedBy = view.Reuse[item.ID]
	return nil, output, nil
}

func analyzePassword(p string) PasswordAnalyzeOutput {
	raw := security.CalculateEntropy(p)
	effective := security.CalculateEffectiveEntropy(p)
	return PasswordAnalyzeOutput{
		Length:           utf8.RuneCountInString(p),
		Entropy:          raw,
		EffectiveEntropy: effective,
		Strength:         security.LevelForBits(effective).String(),
		Complexity:       security.Complexity(raw),
		CrackTime:        security.EstimateCrackTime(effective).Label(),
		Weaknesses:       security.ExplainWeakness(p),
	}
}

// handleHygieneScore handles the hygiene_score tool call.
func (s *Server) handleHygieneScore(_ context.Context, _ *mcp.CallToolRequest, _ HygieneScoreInput) (*mcp.CallToolResult, HygieneScoreOutput, error) {
	view, err := s.vault.Analytics()
	if err != nil {
		return nil, HygieneScoreOutput{}, fmt.Errorf("failed to read vault: %w", err)
	}
	return nil, HygieneScoreOutput{
		Health:     view.Health,
		ItemCount:  len(view.Items),
		WeakCount:  view.WeakCount,
		ReuseCount: len(view.Reuse),
		Radar:      view.Radar,
		Stats:      view.Stats,
	}, nil
}

// handleHygieneTips handles the hygiene_tips tool call.
func (s *Server) handleHygieneTips(_ context.Context, _ *mcp.CallToolRequest, _ HygieneTipsInput) (*mcp.CallToolResult, HygieneTipsOutput, error) {
	view, err := s.vault.Analytics()
	if err != nil {
		return nil, HygieneTipsOutput{}, fmt.Errorf("failed to read vault: %w", err)
	}
	return nil, HygieneTipsOutput{Tips: view.Tips}, nil
}

// handleHygieneReport handles the hygiene_report tool call.
func (s *Server) handleHygieneReport(_ context.Context, _ *mcp.CallToolRequest, _ HygieneReportInput) (*mcp.CallToolResult, HygieneReportOutput, error) {
	view, err := s.vault.Analytics()
	if err != nil {
		return nil, HygieneReportOutput{}, fmt.Errorf("failed to read vault: %w", err)
	}
	return nil, HygieneReportOutput{Report: view.Report}, nil
}

// handleHygieneTimeline handles the hygiene_timeline tool call.
func (s *Server) handleHygieneTimeline(ctx context.Context, _ *mcp.CallToolRequest, input HygieneTimelineInput) (*mcp.CallToolResult, HygieneTimelineOutput, error) {
	if input.Window < 0 {
		return nil, HygieneTimelineOutput{}, errors.New("window must not be negative")
	}
	snaps, err := s.vault.Timeline(ctx)
	if err != nil {
		return nil, HygieneTimelineOutput{}, fmt.Errorf("failed to read timeline: %w", err)
	}

	window := input.Window
	if window == 0 {
		window = timeline.DefaultTrendWindow
	}
	if len(snaps) > window {
		snaps = snaps[len(snaps)-window:]
	}

	output := HygieneTimelineOutput{
		Snapshots: make([]SnapshotInfo, 0, len(snaps)),
		Trend:     timeline.Trend(snaps, window),
	}
	for _, snap := range snaps {
		output.Snapshots = append(output.Snapshots, SnapshotInfo{
			Date:        snap.Time().Format(time.DateOnly),
			HealthScore: snap.HealthScore,
			WeakCount:   snap.WeakCount,
			ReuseCount:  snap.ReuseCount,
		})
	}
	return nil, output, nil
}

// maskValue masks a username for display
// | Length  | Format          | Example   |
// |---------|-----------------|-----------|
// | 1-4     | All *           | ****      |
// | 5-8     | Show first 2    | al******  |
// | 9+      | Show first 3    | ali****** |
func maskValue(value string) string {
	runes := []rune(value)
	length := len(runes)
	if length == 0 {
		return ""
	}

	switch {
	case length <= 4:
		return strings.Repeat("*", length)
	case length <= 8:
		return string(runes[:2]) + strings.Repeat("*", length-2)
	default:
		return string(runes[:3]) + strings.Repeat("*", length-3)
	}
}

// parseDuration parses durations with day-based units:
// h (hours), d (days), w (weeks), m (30-day months), y (365-day years).
// Anything else falls through to time.ParseDuration.
func parseDuration(s string) (time.Duration, error) {
	if len(s) < 2 {
		return 0, fmt.Errorf("duration too short: %s", s)
	}

	unit := s[len(s)-1]
	valueStr := s[:len(s)-1]

	var value int
	if _, err := fmt.Sscanf(valueStr, "%d", &value); err != nil {
		return 0, fmt.Errorf("invalid duration value: %s", valueStr)
	}
	if value < 0 {
		return 0, fmt.Errorf("negative duration: %s", s)
	}

	switch unit {
	case 'h':
		return time.Duration(value) * time.Hour, nil
	case 'd':
		return time.Duration(value) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(value) * 7 * 24 * time.Hour, nil
	case 'm':
		return time.Duration(value) * 30 * 24 * time.Hour, nil
	case 'y':
		return time.Duration(value) * 365 * 24 * time.Hour, nil
	default:
		return time.ParseDuration(s)
	}
}
