package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Info contains information about the server deployment.
type Info struct {
	Name              string        `json:"name"`
	Version           string        `json:"version"`
	Description       string        `json:"description,omitempty"`
	Tags              []string      `json:"tags,omitempty"`
	AgentInstructions string        `json:"agent_instructions,omitempty"`
	Toolkits          []ToolkitInfo `json:"toolkits"`
	Features          Features      `json:"features"`
}

// ToolkitInfo summarizes one registered toolkit instance.
type ToolkitInfo struct {
	Kind       string   `json:"kind"`
	Name       string   `json:"name"`
	Connection string   `json:"connection,omitempty"`
	Tools      []string `json:"tools"`
}

// Features describes enabled server features.
type Features struct {
	QueryTranslation   bool `json:"query_translation"`
	SpatialQueries     bool `json:"spatial_queries"`
	TrainingCapture    bool `json:"training_capture"`
	AuditLogging       bool `json:"audit_logging"`
	DatabaseConfigured bool `json:"database_configured"`
}

// platformInfoInput is empty since this tool has no parameters.
type platformInfoInput struct{}

// registerInfoTool registers the platform_info tool with the MCP server.
func (p *Platform) registerInfoTool() {
	mcp.AddTool(p.mcpServer, &mcp.Tool{
		Name:        "platform_info",
		Description: p.buildInfoToolDescription(),
	}, func(ctx context.Context, req *mcp.CallToolRequest, _ platformInfoInput) (*mcp.CallToolResult, any, error) {
		return p.handleInfo(ctx, req)
	})
}

// buildInfoToolDescription builds a dynamic tool description based on configuration.
func (p *Platform) buildInfoToolDescription() string {
	base := "Get information about this PostGIS MCP server"
	if p.config.Server.Name != "" && p.config.Server.Name != "mcp-postgis" {
		base = fmt.Sprintf("Get information about %s", p.config.Server.Name)
	}
	if len(p.config.Server.Tags) > 0 {
		base += fmt.Sprintf(" (%s)", strings.Join(p.config.Server.Tags, ", "))
	}
	return base + ", including its toolkits, tools, and enabled features. " +
		"Call this first to understand what data and capabilities are available."
}

// handleInfo handles the platform_info tool call.
func (p *Platform) handleInfo(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, any, error) {
	toolkits := make([]ToolkitInfo, 0)
	kinds := make(map[string]bool)
	for _, tk := range p.toolkitRegistry.All() {
		kinds[tk.Kind()] = true
		toolkits = append(toolkits, ToolkitInfo{
			Kind:       tk.Kind(),
			Name:       tk.Name(),
			Connection: tk.Connection(),
			Tools:      tk.Tools(),
		})
	}
	// Registry order is map order; sort for stable output.
	sort.Slice(toolkits, func(i, j int) bool {
		if toolkits[i].Kind != toolkits[j].Kind {
			return toolkits[i].Kind < toolkits[j].Kind
		}
		return toolkits[i].Name < toolkits[j].Name
	})

	info := Info{
		Name:              p.config.Server.Name,
		Version:           p.config.Server.Version,
		Description:       p.config.Server.Description,
		Tags:              p.config.Server.Tags,
		AgentInstructions: p.config.Server.AgentInstructions,
		Toolkits:          toolkits,
		Features: Features{
			QueryTranslation:   kinds["nl2sql"],
			SpatialQueries:     kinds["postgis"],
			TrainingCapture:    kinds["training"],
			AuditLogging:       p.config.Audit.Enabled,
			DatabaseConfigured: p.config.Database.DSN != "",
		},
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return &mcp.CallToolResult{ //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError, not as Go errors
			Content: []mcp.Content{
				&mcp.TextContent{Text: "Error: " + err.Error()},
			},
			IsError: true,
		}, nil, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}, nil, nil
}
