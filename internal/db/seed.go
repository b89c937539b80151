package db

import (
	"errors"
	"fmt"

	"github.com/Mieluoxxx/AITools-Switch/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AppVersion 写入 app_state 的应用版本
const AppVersion = "0.1.0"

// builtinTemplates 内置 MCP 模板
var builtinTemplates = []models.McpTemplate{
	{
		Name:         "filesystem",
		Version:      "1.0.0",
		AIType:       models.CategoryClaude,
		PlatformType: models.PlatformUnix,
		ConfigContent: `{
  "mcpServers": {
    "filesystem": {
      "command": "npx",
      "args": ["-y", "@modelcontextprotocol/server-filesystem", "~"]
    }
  }
}`,
		Description: "本地文件系统访问",
		Category:    "filesystem",
		Tags:        datatypes.JSONSlice[string]{"files", "local"},
	},
	{
		Name:         "filesystem",
		Version:      "1.0.0",
		AIType:       models.CategoryClaude,
		PlatformType: models.PlatformWindows,
		ConfigContent: `{
  "mcpServers": {
    "filesystem": {
      "command": "cmd",
      "args": ["/c", "npx", "-y", "@modelcontextprotocol/server-filesystem", "%USERPROFILE%"]
    }
  }
}`,
		Description: "本地文件系统访问（Windows）",
		Category:    "filesystem",
		Tags:        datatypes.JSONSlice[string]{"files", "local", "windows"},
	},
	{
		Name:         "fetch",
		Version:      "1.0.0",
		AIType:       models.CategoryCodex,
		PlatformType: models.PlatformUnix,
		ConfigContent: `[mcp_servers.fetch]
command = "uvx"
args = ["mcp-server-fetch"]
`,
		Description: "网页抓取",
		Category:    "web",
		Tags:        datatypes.JSONSlice[string]{"http", "web"},
	},
}

// Seed 写入初始数据，重复执行不会覆盖已有记录
func Seed(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, c := range models.AllCategories {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(models.DefaultFailoverConfig(c)).Error; err != nil {
				return fmt.Errorf("写入默认故障转移配置失败: %w", err)
			}
		}

		for _, mode := range []models.ModeName{models.ModeClaudeOnly, models.ModeCodexOnly, models.ModeClaudeCodex} {
			wm := &models.WorkModeConfig{ModeName: mode, McpTemplateIDs: datatypes.JSONSlice[uint]{}}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(wm).Error; err != nil {
				return fmt.Errorf("写入默认工作模式失败: %w", err)
			}
		}

		states := []models.AppState{
			{Key: models.AppStateCurrentWorkMode, Value: string(models.ModeClaudeOnly)},
			{Key: "app_version", Value: AppVersion},
			{Key: "database_version", Value: "1.0"},
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&states).Error; err != nil {
			return fmt.Errorf("写入应用状态失败: %w", err)
		}

		for i := range builtinTemplates {
			t := builtinTemplates[i]
			var existing models.McpTemplate
			err := tx.Where("name = ? AND version = ? AND platform_type = ? AND ai_type = ?",
				t.Name, t.Version, t.PlatformType, t.AIType).First(&existing).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("查询内置模板失败: %w", err)
			}
			t.IsBuiltin = true
			if err := tx.Create(&t).Error; err != nil {
				return fmt.Errorf("写入内置模板失败: %w", err)
			}
			logrus.WithField("template", t.Name).Debug("📦 写入内置模板")
		}
		return nil
	})
}
