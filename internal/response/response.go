package response

import (
	"github.com/gofiber/fiber/v2"
)

// Response 统一响应结构
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// PageData 分页数据结构
type PageData struct {
	List     any   `json:"list"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
}

// 响应码定义
const (
	CodeSuccess      = 0
	CodeError        = -1
	CodeUnauthorized = 401
	CodeNotFound     = 404
	CodeConflict     = 409
	CodeServerError  = 500
)

// Success 成功响应
func Success(c *fiber.Ctx, data any) error {
	return c.JSON(Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// SuccessPage 分页成功响应
func SuccessPage(c *fiber.Ctx, list any, total int64, page, pageSize int) error {
	return Success(c, PageData{
		List:     list,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// Error 错误响应
func Error(c *fiber.Ctx, message string) error {
	return c.JSON(Response{
		Code:    CodeError,
		Message: message,
	})
}

// Unauthorized 未授权响应
func Unauthorized(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "unauthorized"
	}
	return c.Status(fiber.StatusUnauthorized).JSON(Response{
		Code:    CodeUnauthorized,
		Message: message,
	})
}

// NotFound 未找到响应
func NotFound(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "not found"
	}
	return c.Status(fiber.StatusNotFound).JSON(Response{
		Code:    CodeNotFound,
		Message: message,
	})
}

// Conflict 并发冲突响应，data 携带服务端当前状态
func Conflict(c *fiber.Ctx, message string, data any) error {
	if message == "" {
		message = "conflict"
	}
	return c.Status(fiber.StatusConflict).JSON(Response{
		Code:    CodeConflict,
		Message: message,
		Data:    data,
	})
}

// ServerError 服务器错误响应
func ServerError(c *fiber.Ctx, message string) error {
	if message == "" {
		message = "server error"
	}
	return c.Status(fiber.StatusInternalServerError).JSON(Response{
		Code:    CodeServerError,
		Message: message,
	})
}
