package template

import "github.com/Mieluoxxx/AITools-Switch/internal/models"

// defaultVersion 未指定版本时使用
const defaultVersion = "1.0.0"

// CreateTemplateRequest 创建模板请求
type CreateTemplateRequest struct {
	Name          string   `json:"name" binding:"required"`
	Version       string   `json:"version"`
	AIType        string   `json:"ai_type" binding:"required"`
	PlatformType  string   `json:"platform_type" binding:"required"`
	ConfigContent string   `json:"config_content" binding:"required"`
	Description   string   `json:"description"`
	Category      string   `json:"category"`
	Tags          []string `json:"tags"`
}

// UpdateTemplateRequest 更新模板请求，nil 表示不修改
type UpdateTemplateRequest struct {
	Name          *string  `json:"name"`
	Version       *string  `json:"version"`
	ConfigContent *string  `json:"config_content"`
	Description   *string  `json:"description"`
	Category      *string  `json:"category"`
	Tags          []string `json:"tags"`
}

// CloneTemplateRequest 克隆模板请求
type CloneTemplateRequest struct {
	NewName string `json:"new_name" binding:"required"`
}

// Stats 模板统计
type Stats struct {
	Total   int64 `json:"total"`
	Builtin int64 `json:"builtin"`
	Custom  int64 `json:"custom"`
	Claude  int64 `json:"claude"`
	Codex   int64 `json:"codex"`
	Unix    int64 `json:"unix"`
	Windows int64 `json:"windows"`
}

// toModel 构造待校验的模板
func (r CreateTemplateRequest) toModel() *models.McpTemplate {
	version := r.Version
	if version == "" {
		version = defaultVersion
	}
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return &models.McpTemplate{
		Name:          r.Name,
		Version:       version,
		AIType:        models.Category(r.AIType),
		PlatformType:  models.PlatformType(r.PlatformType),
		ConfigContent: r.ConfigContent,
		Description:   r.Description,
		Category:      r.Category,
		Tags:          tags,
	}
}
