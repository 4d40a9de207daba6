package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/leonardcser/college-api/internal/catalog"
)

// CollegeCompareHandler returns the MCP tool handler for the "college-compare" tool.
func CollegeCompareHandler(svc *catalog.Service) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if ctx.Err() != nil {
			return mcp.NewToolResultError(ctx.Err().Error()), nil
		}
		raw, err := req.RequireString("ids")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		var ids []string
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		cmp, err := svc.Compare(ctx, ids)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(formatComparison(cmp)), nil
	}
}

func formatComparison(cmp catalog.Comparison) string {
	var sb strings.Builder
	sb.WriteString("# Comparison\n\n")
	for _, c := range cmp.Colleges {
		sb.WriteString(fmt.Sprintf("- %s (%s): %s, rank %s, fees %s, rating %s\n",
			c.Name, c.ID, joinNonEmpty(", ", c.Type, c.City), num(c.Rank), num(c.Fees), num(c.Rating)))
	}
	s := cmp.Summary
	sb.WriteString("\n## Summary\n")
	sb.WriteString(fmt.Sprintf("- colleges: %d\n", s.TotalColleges))
	sb.WriteString(fmt.Sprintf("- average fees: %s (range %s to %s)\n", num(s.AverageFees), num(s.FeeRange.Min), num(s.FeeRange.Max)))
	sb.WriteString(fmt.Sprintf("- average rank: %s (range %s to %s)\n", num(s.AverageRank), num(s.RankRange.Min), num(s.RankRange.Max)))
	sb.WriteString(fmt.Sprintf("- average rating: %s", num(s.AverageRating)))
	return sb.String()
}
