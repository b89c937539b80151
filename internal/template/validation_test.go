package template

import (
	"testing"

	"github.com/Mieluoxxx/AITools-Switch/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		tmpl     models.McpTemplate
		valid    bool
		errors   int
		warnings int
	}{
		{
			name: "claude json",
			tmpl: models.McpTemplate{
				Name: "fs", Version: "1.0.0", AIType: models.CategoryClaude, PlatformType: models.PlatformUnix,
				ConfigContent: `{"mcpServers":{"fs":{"command":"npx"}}}`,
			},
			valid: true,
		},
		{
			name: "claude json without servers",
			tmpl: models.McpTemplate{
				Name: "fs", Version: "1.0.0", AIType: models.CategoryClaude, PlatformType: models.PlatformUnix,
				ConfigContent: `{"other":1}`,
			},
			valid:    true,
			warnings: 1,
		},
		{
			name: "claude with toml body",
			tmpl: models.McpTemplate{
				Name: "fs", Version: "1.0.0", AIType: models.CategoryClaude, PlatformType: models.PlatformUnix,
				ConfigContent: "[mcp_servers.fs]\ncommand = \"npx\"\n",
			},
			valid:  false,
			errors: 1,
		},
		{
			name: "codex toml",
			tmpl: models.McpTemplate{
				Name: "fetch", Version: "2.1.0", AIType: models.CategoryCodex, PlatformType: models.PlatformWindows,
				ConfigContent: "[mcp_servers.fetch]\ncommand = \"uvx\"\nargs = [\"mcp-server-fetch\"]\n",
			},
			valid: true,
		},
		{
			name: "codex with broken toml",
			tmpl: models.McpTemplate{
				Name: "fetch", Version: "1.0.0", AIType: models.CategoryCodex, PlatformType: models.PlatformUnix,
				ConfigContent: "[mcp_servers.fetch\ncommand = ",
			},
			valid:  false,
			errors: 1,
		},
		{
			name: "bad version",
			tmpl: models.McpTemplate{
				Name: "fs", Version: "v1", AIType: models.CategoryClaude, PlatformType: models.PlatformUnix,
				ConfigContent: `{"mcpServers":{}}`,
			},
			valid:  false,
			errors: 1,
		},
		{
			name:   "everything missing",
			tmpl:   models.McpTemplate{Version: "1.0.0"},
			valid:  false,
			errors: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := tt.tmpl
			result := Validate(&tmpl)
			assert.Equal(t, tt.valid, result.Valid, result.Errors)
			assert.Len(t, result.Errors, tt.errors)
			assert.Len(t, result.Warnings, tt.warnings)
		})
	}
}
