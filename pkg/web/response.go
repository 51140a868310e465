package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Fail 错误响应，统一为 {"error": "..."} 结构
func Fail(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, gin.H{"error": message})
}

// FailWithDetails 带详情的结构化失败响应
// 部分失败不使用单独的 HTTP 状态码，失败语义编码在 JSON 体中
func FailWithDetails(c *gin.Context, httpStatus int, message string, details any) {
	c.JSON(httpStatus, gin.H{
		"success": false,
		"error":   message,
		"details": details,
	})
}

// BadRequest 缺失参数等校验错误
func BadRequest(c *gin.Context, message string) {
	Fail(c, http.StatusBadRequest, message)
}

// NotFound 领域对象不存在
func NotFound(c *gin.Context, message string) {
	Fail(c, http.StatusNotFound, message)
}

// InternalError 未预期的服务端错误
func InternalError(c *gin.Context, message string) {
	Fail(c, http.StatusInternalServerError, message)
}

// BindAndValidate 绑定请求参数并进行校验
func BindAndValidate(c *gin.Context, obj any) bool {
	if err := c.ShouldBind(obj); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			BadRequest(c, errs.Error())
			return false
		}
		BadRequest(c, "invalid request parameters: "+err.Error())
		return false
	}
	return true
}

// GetQuery 获取查询参数，带默认值
func GetQuery(c *gin.Context, key, defaultValue string) string {
	val := c.Query(key)
	if val == "" {
		return defaultValue
	}
	return val
}
