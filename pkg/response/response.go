// Package response 统一 HTTP 响应格式，错误体为 {"detail": "..."}
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorBody 错误响应体
type ErrorBody struct {
	Detail string `json:"detail"`
}

// Success 200 返回数据
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Created 201 返回新建资源
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// NoContent 204
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// ErrorWithStatus 以指定状态码返回错误并中止后续 handler
func ErrorWithStatus(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, ErrorBody{Detail: detail})
}
