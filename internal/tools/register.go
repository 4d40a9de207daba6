package tools

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/leonardcser/college-api/internal/catalog"
	"github.com/leonardcser/college-api/internal/logger"
)

// Register adds the catalog tools to s.
func Register(s *server.MCPServer, svc *catalog.Service) {
	toolSearch := mcp.NewTool("college-search",
		mcp.WithDescription(multiline(
			"Searches the college catalog and returns one page of matching colleges",
			"\nFunctionality:",
			"- Free-text query matches college name, city, type and course names, ignoring case",
			"- Optional exact filters on city, state, type and course",
			"- Optional rank and fee bounds",
			"- Sorted by rank unless sortBy is one of fees, rating, name",
			"\nUsage notes:",
			"- Numeric bounds must be numbers",
			"- Results are paginated; pass page to read further",
		)),
		mcp.WithString("query", mcp.Description("Free-text search")),
		mcp.WithString("city", mcp.Description("Exact city")),
		mcp.WithString("state", mcp.Description("Exact state")),
		mcp.WithString("type", mcp.Description("Exact college type, e.g. Engineering")),
		mcp.WithString("course", mcp.Description("Course the college must offer")),
		mcp.WithString("minRank", mcp.Description("Lowest rank to include")),
		mcp.WithString("maxRank", mcp.Description("Highest rank to include")),
		mcp.WithString("minFees", mcp.Description("Lowest annual fee to include")),
		mcp.WithString("maxFees", mcp.Description("Highest annual fee to include")),
		mcp.WithString("sortBy", mcp.Description("rank, fees, rating or name")),
		mcp.WithString("sortOrder", mcp.Description("asc or desc")),
		mcp.WithNumber("page", mcp.Description("1-based page number")),
		mcp.WithNumber("limit", mcp.Description("Page size, default 20")),
	)
	s.AddTool(toolSearch, CollegeSearchHandler(svc))
	logger.Infof("Registered college-search tool")

	toolCompare := mcp.NewTool("college-compare",
		mcp.WithDescription(multiline(
			"Compares two to four colleges side by side",
			"\nFunctionality:",
			"- Takes a comma-separated list of college ids",
			"- Unknown ids are skipped; at least two must exist",
			"- Returns fees, rank and rating with averages and ranges",
		)),
		mcp.WithString("ids", mcp.Required(), mcp.Description("Comma-separated college ids, e.g. iitb,iitd")),
	)
	s.AddTool(toolCompare, CollegeCompareHandler(svc))
	logger.Infof("Registered college-compare tool")
}
