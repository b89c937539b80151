package template

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/Mieluoxxx/AITools-Switch/internal/models"
	"github.com/pelletier/go-toml/v2"
)

// ValidationResult 模板校验结果
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) warn(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Validate 校验模板字段和配置内容格式
// claude 模板为 JSON，codex 模板为 TOML
func Validate(t *models.McpTemplate) *ValidationResult {
	result := &ValidationResult{Valid: true, Errors: []string{}, Warnings: []string{}}

	if strings.TrimSpace(t.Name) == "" {
		result.fail("模板名称不能为空")
	}
	if strings.TrimSpace(t.ConfigContent) == "" {
		result.fail("配置内容不能为空")
	}
	if !t.AIType.Valid() {
		result.fail("AI类型必须是 'claude' 或 'codex'")
	}
	if !t.PlatformType.Valid() {
		result.fail("平台类型必须是 'unix' 或 'windows'")
	}
	if _, err := semver.StrictNewVersion(t.Version); err != nil {
		result.fail("版本号必须符合语义化版本格式: %s", t.Version)
	}

	if strings.TrimSpace(t.ConfigContent) == "" {
		return result
	}

	switch t.AIType {
	case models.CategoryClaude:
		var doc map[string]interface{}
		if err := json.Unmarshal([]byte(t.ConfigContent), &doc); err != nil {
			result.fail("Claude模板配置必须是有效的JSON格式")
			break
		}
		if _, ok := doc["mcpServers"]; !ok {
			result.warn("配置中没有 mcpServers 字段")
		}
	case models.CategoryCodex:
		var doc map[string]interface{}
		if err := toml.Unmarshal([]byte(t.ConfigContent), &doc); err != nil {
			result.fail("Codex模板配置必须是有效的TOML格式")
			break
		}
		if _, ok := doc["mcp_servers"]; !ok {
			result.warn("配置中没有 mcp_servers 表")
		}
	}

	return result
}
