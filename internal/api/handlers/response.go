package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Mieluoxxx/AITools-Switch/internal/failover"
	"github.com/Mieluoxxx/AITools-Switch/internal/history"
	"github.com/Mieluoxxx/AITools-Switch/internal/supplier"
	"github.com/Mieluoxxx/AITools-Switch/internal/template"
	"github.com/Mieluoxxx/AITools-Switch/internal/workmode"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ResultKey 记录本次响应是否成功，供请求计数中间件读取
const ResultKey = "envelope_success"

// Response 统一响应结构
// 业务失败同样返回 HTTP 200，由 success 区分
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Message string      `json:"message,omitempty"`
}

func respond(c *gin.Context, success bool, data interface{}, message string) {
	c.Set(ResultKey, success)
	c.JSON(http.StatusOK, Response{Success: success, Data: data, Message: message})
}

func ok(c *gin.Context, data interface{}) {
	respond(c, true, data, "")
}

func okMessage(c *gin.Context, data interface{}, message string) {
	respond(c, true, data, message)
}

func failMessage(c *gin.Context, message string) {
	respond(c, false, nil, message)
}

// fail 已知业务错误直接返回错误文本，未知错误记录日志并返回通用提示
func fail(c *gin.Context, err error) {
	if isDomainError(err) {
		respond(c, false, nil, err.Error())
		return
	}
	logrus.WithError(err).WithField("path", c.FullPath()).Error("请求处理失败")
	respond(c, false, nil, "服务内部错误: "+err.Error())
}

var domainErrors = []error{
	supplier.ErrSupplierNotFound,
	supplier.ErrSupplierNameExists,
	supplier.ErrNoActiveSupplier,
	supplier.ErrInvalidInput,
	supplier.ErrInvalidURL,
	supplier.ErrInvalidCategory,
	failover.ErrFailoverConfigNotFound,
	failover.ErrInvalidConfig,
	history.ErrBackupNotFound,
	history.ErrInvalidBackup,
	history.ErrInvalidInput,
	template.ErrTemplateNotFound,
	template.ErrBuiltinTemplate,
	template.ErrInvalidTemplate,
	template.ErrTemplateExists,
	workmode.ErrInvalidMode,
	workmode.ErrSupplierMismatch,
	workmode.ErrModeNotFound,
}

func isDomainError(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// parseID 解析路径中的 ID，失败时已写入响应
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		failMessage(c, "无效的ID: "+c.Param(name))
		return 0, false
	}
	return uint(id), true
}

// bindJSON 绑定请求体，失败时已写入响应
func bindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		failMessage(c, "请求参数无效: "+err.Error())
		return false
	}
	return true
}

// queryInt 读取整数查询参数，缺失或非法时返回默认值
func queryInt(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return def
	}
	return v
}
