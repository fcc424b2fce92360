package platform

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// analyzePromptName is the code-registered spatial analysis prompt.
const analyzePromptName = "analyze_spatial_data"

// registerPlatformPrompts registers operator-defined prompts from config.
func (p *Platform) registerPlatformPrompts() {
	for _, promptCfg := range p.config.Server.Prompts {
		p.registerPrompt(promptCfg)
	}
}

// registerPrompt registers a single prompt with the MCP server.
func (p *Platform) registerPrompt(cfg PromptConfig) {
	// Capture cfg in closure to avoid loop variable issues
	promptContent := cfg.Content

	p.mcpServer.AddPrompt(&mcp.Prompt{
		Name:        cfg.Name,
		Description: cfg.Description,
	}, func(_ context.Context, _ *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		return buildPromptResult(promptContent), nil
	})
}

// registerAnalyzePrompt registers the built-in spatial analysis prompt.
// An operator prompt with the same name takes precedence.
func (p *Platform) registerAnalyzePrompt() {
	for _, promptCfg := range p.config.Server.Prompts {
		if promptCfg.Name == analyzePromptName {
			return
		}
	}

	p.mcpServer.AddPrompt(&mcp.Prompt{
		Name:        analyzePromptName,
		Title:       p.config.Server.Name,
		Description: "Workflow for exploring and analyzing spatial data through this server",
	}, func(_ context.Context, _ *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		return buildPromptResult(p.analyzePromptContent()), nil
	})
}

// analyzePromptContent renders the spatial analysis workflow guidance.
func (p *Platform) analyzePromptContent() string {
	intro := fmt.Sprintf("You are analyzing spatial data through %s.", p.config.Server.Name)
	if p.config.Server.Description != "" {
		intro += " " + p.config.Server.Description
	}

	return intro + `

Recommended workflow:

1. Call platform_info to see which toolkits and tools are available.
2. Discover the data: postgis_database_info summarizes the database and
   its PostGIS install; postgis_list_tables lists spatial tables.
3. Inspect the target table with postgis_table_info (columns, geometry
   type, SRID) and postgis_spatial_extent (bounding box). Coordinates in
   queries must match the table's SRID.
4. Translate questions with nl2sql_translate, or write SELECT statements
   and submit them with postgis_execute_sql. Both return a session_id and
   the SQL to review; nothing has executed yet.
5. Review the generated SQL, then call postgis_confirm_execution with the
   session_id to run it, or postgis_cancel_execution to discard it.
   Sessions expire, so confirm promptly.
6. When a translation works well, capture it with
   training_submit_sql_example so future phrasing guidance improves.

Only SELECT statements are accepted; data-modifying SQL is rejected
before a session is ever created.`
}

// buildPromptResult wraps prompt content in a single-user-message result.
func buildPromptResult(content string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Messages: []*mcp.PromptMessage{
			{
				Role: "user",
				Content: &mcp.TextContent{
					Text: content,
				},
			},
		},
	}
}
