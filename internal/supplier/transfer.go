package supplier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Mieluoxxx/AITools-Switch/internal/models"
	"gopkg.in/yaml.v3"
)

// 导出格式
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// exportVersion 导出文档版本
const exportVersion = 1

// ExportDocument 供应商导出文档
type ExportDocument struct {
	Version    int                     `json:"version" yaml:"version"`
	ExportedAt time.Time               `json:"exported_at" yaml:"exported_at"`
	Suppliers  []CreateSupplierRequest `json:"suppliers" yaml:"suppliers"`
}

// ParseFormat 解析导出格式，支持 yml 别名
func ParseFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatYAML, "yml":
		return FormatYAML, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: unsupported format %q", ErrInvalidInput, format)
}

// Export 导出全部供应商（令牌为明文，便于迁移到另一台机器）
func (s *Service) Export(ctx context.Context, format string) ([]byte, error) {
	format, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}

	suppliers, err := s.ListSuppliers(ctx, "")
	if err != nil {
		return nil, err
	}

	doc := ExportDocument{
		Version:    exportVersion,
		ExportedAt: time.Now().UTC().Truncate(time.Second),
		Suppliers:  make([]CreateSupplierRequest, 0, len(suppliers)),
	}
	for i := range suppliers {
		doc.Suppliers = append(doc.Suppliers, toRequest(&suppliers[i]))
	}

	if format == FormatJSON {
		return json.MarshalIndent(doc, "", "  ")
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("序列化 YAML 失败: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Import 导入供应商
// 先校验全部条目，任一条目不合法则不写入任何数据
func (s *Service) Import(ctx context.Context, data []byte, format string) ([]*models.Supplier, error) {
	format, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}

	requests, err := decodeImport(data, format)
	if err != nil {
		return nil, err
	}
	if len(requests) == 0 {
		return nil, fmt.Errorf("%w: no suppliers to import", ErrInvalidInput)
	}

	var problems []string
	seen := make(map[string]bool)
	suppliers := make([]*models.Supplier, 0, len(requests))
	for i, req := range requests {
		supplier, err := s.buildSupplier(req)
		if err != nil {
			problems = append(problems, fmt.Sprintf("第 %d 项 '%s' 验证失败: %v", i+1, req.Name, err))
			continue
		}
		if seen[supplier.Name] {
			problems = append(problems, fmt.Sprintf("第 %d 项 '%s' 名称重复", i+1, supplier.Name))
			continue
		}
		seen[supplier.Name] = true

		exists, err := s.repo.CheckNameExists(ctx, supplier.Name, 0)
		if err != nil {
			return nil, err
		}
		if exists {
			problems = append(problems, fmt.Sprintf("第 %d 项 '%s' 已存在", i+1, supplier.Name))
			continue
		}
		suppliers = append(suppliers, supplier)
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: 导入过程中发生错误: %s", ErrInvalidInput, strings.Join(problems, "; "))
	}

	next := make(map[models.Category]int)
	for _, c := range models.AllCategories {
		count, err := s.repo.CountByCategory(ctx, c)
		if err != nil {
			return nil, err
		}
		next[c] = int(count)
	}

	plainTokens := make([]string, len(suppliers))
	for i, supplier := range suppliers {
		supplier.SortOrder = next[supplier.Category]
		next[supplier.Category]++

		plainTokens[i] = supplier.AuthToken
		if supplier.AuthToken, err = s.sealer.Seal(supplier.AuthToken); err != nil {
			return nil, fmt.Errorf("failed to encrypt auth token: %w", err)
		}
	}

	if err := s.repo.CreateBatch(ctx, suppliers); err != nil {
		return nil, err
	}
	for i, supplier := range suppliers {
		supplier.AuthToken = plainTokens[i]
	}

	if s.events != nil {
		_ = s.events.LogInfo(ctx, models.EventTypeSupplierAdded,
			fmt.Sprintf("导入 %d 个供应商", len(suppliers)), map[string]interface{}{"count": len(suppliers)})
	}
	return suppliers, nil
}

// decodeImport 解析导入文档，也接受不带外层结构的供应商数组
func decodeImport(data []byte, format string) ([]CreateSupplierRequest, error) {
	var doc ExportDocument
	var list []CreateSupplierRequest

	switch format {
	case FormatJSON:
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			if err := json.Unmarshal(trimmed, &list); err != nil {
				return nil, fmt.Errorf("%w: 解析 JSON 失败: %v", ErrInvalidInput, err)
			}
			return list, nil
		}
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("%w: 解析 JSON 失败: %v", ErrInvalidInput, err)
		}
	default:
		var node yaml.Node
		if err := yaml.Unmarshal(data, &node); err != nil {
			return nil, fmt.Errorf("%w: 解析 YAML 失败: %v", ErrInvalidInput, err)
		}
		if len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
			if err := node.Content[0].Decode(&list); err != nil {
				return nil, fmt.Errorf("%w: 解析 YAML 失败: %v", ErrInvalidInput, err)
			}
			return list, nil
		}
		if err := node.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: 解析 YAML 失败: %v", ErrInvalidInput, err)
		}
	}

	if doc.Version > exportVersion {
		return nil, fmt.Errorf("%w: unsupported export version %d", ErrInvalidInput, doc.Version)
	}
	return doc.Suppliers, nil
}

func toRequest(s *models.Supplier) CreateSupplierRequest {
	req := CreateSupplierRequest{
		Type:      string(s.Category),
		Name:      s.Name,
		BaseURL:   s.BaseURL,
		AuthToken: s.AuthToken,
	}
	timeout := s.TimeoutMs
	autoUpdate := s.AutoUpdate
	req.TimeoutMs = &timeout
	req.AutoUpdate = &autoUpdate
	if s.OpusModel != "" {
		req.OpusModel = &s.OpusModel
	}
	if s.SonnetModel != "" {
		req.SonnetModel = &s.SonnetModel
	}
	if s.HaikuModel != "" {
		req.HaikuModel = &s.HaikuModel
	}
	return req
}
