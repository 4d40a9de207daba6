package tools

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/leonardcser/college-api/internal/catalog"
)

// searchParams are the string arguments forwarded to the list query parser.
var searchParams = []string{"query", "city", "state", "type", "course", "minRank", "maxRank", "minFees", "maxFees", "sortBy", "sortOrder"}

// CollegeSearchHandler returns the MCP tool handler for the "college-search" tool.
func CollegeSearchHandler(svc *catalog.Service) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		v := url.Values{}
		for _, name := range searchParams {
			if s := req.GetString(name, ""); s != "" {
				v.Set(name, s)
			}
		}
		if n := req.GetInt("limit", 0); n != 0 {
			v.Set("limit", strconv.Itoa(n))
		}
		if n := req.GetInt("page", 0); n != 0 {
			v.Set("page", strconv.Itoa(n))
		}
		q, err := catalog.ParseListRequest(v)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		page, err := svc.Search(ctx, q)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(formatSearchResults(page)), nil
	}
}

// formatSearchResults renders an ordered list followed by the page position.
func formatSearchResults(p catalog.Page[catalog.College]) string {
	if len(p.Items) == 0 || p.Page <= 0 || p.Page-1 >= p.TotalPages {
		return fmt.Sprintf("No colleges found (%d total).", p.TotalCount)
	}
	var sb strings.Builder
	// In range here, so offset is below TotalCount.
	offset := (p.Page - 1) * p.PageSize
	for i, c := range p.Items {
		sb.WriteString(fmt.Sprintf("%d. %s (%s)", offset+i+1, c.Name, c.ID))
		if loc := joinNonEmpty(", ", c.City, c.State); loc != "" {
			sb.WriteString("\n   ")
			sb.WriteString(loc)
		}
		sb.WriteString(fmt.Sprintf("\n   rank %s, fees %s, rating %s", num(c.Rank), num(c.Fees), num(c.Rating)))
		if len(c.Courses) > 0 {
			sb.WriteString("\n   courses: ")
			sb.WriteString(strings.Join(c.Courses, ", "))
		}
		sb.WriteString("\n\n")
	}
	sb.WriteString(fmt.Sprintf("Page %d of %d, %d colleges.", p.Page, p.TotalPages, p.TotalCount))
	return sb.String()
}

func num(f float64) string {
	if f == 0 {
		return "n/a"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

// multiline joins lines with newlines for tool descriptions.
func multiline(lines ...string) string { return strings.Join(lines, "\n") }
