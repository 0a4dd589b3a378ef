// Package http 价差服务 HTTP 接口
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/spreadhub/internal/spread/application"
	"github.com/wyfcoding/spreadhub/internal/spread/domain"
	"github.com/wyfcoding/spreadhub/pkg/logger"
	"github.com/wyfcoding/spreadhub/pkg/middleware"
	"github.com/wyfcoding/spreadhub/pkg/ratelimit"
	"github.com/wyfcoding/spreadhub/pkg/response"
)

const notFoundDetail = "Spread not found"

// RouteLimits 各路由的限流规则；为空的路由使用 Default
type RouteLimits struct {
	Default      []ratelimit.Limit
	ListSpreads  []ratelimit.Limit
	GetSpread    []ratelimit.Limit
	CreateSpread []ratelimit.Limit
	UpdateSpread []ratelimit.Limit
	DeleteSpread []ratelimit.Limit
}

// Options 路由注册参数
type Options struct {
	Limiter  ratelimit.RateLimiter
	Limits   RouteLimits
	BotToken string
}

type Handler struct {
	service *application.SpreadService
}

func NewHandler(service *application.SpreadService) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes 写接口先校验 bot token 再计入限流
func (h *Handler) RegisterRoutes(r gin.IRouter, opts Options) {
	limit := func(scope string, rules []ratelimit.Limit) gin.HandlerFunc {
		if len(rules) == 0 {
			rules = opts.Limits.Default
		}
		return middleware.RateLimitMiddleware(opts.Limiter, scope, rules...)
	}
	auth := middleware.BotToken(opts.BotToken)

	r.GET("/exchanges", limit("get_exchanges", nil), h.ListExchanges)

	g := r.Group("/spreads")
	{
		g.GET("", limit("get_spreads", opts.Limits.ListSpreads), h.ListSpreads)
		g.GET("/:id", limit("get_spread", opts.Limits.GetSpread), h.GetSpread)
		g.POST("", auth, limit("create_spread", opts.Limits.CreateSpread), h.CreateSpread)
		g.PUT("/:id", auth, limit("update_spread", opts.Limits.UpdateSpread), h.UpdateSpread)
		g.DELETE("/:id", auth, limit("delete_spread", opts.Limits.DeleteSpread), h.DeleteSpread)
	}
}

func (h *Handler) ListExchanges(c *gin.Context) {
	names, err := h.service.ListExchanges(c.Request.Context())
	if err != nil {
		h.fail(c, "ListExchanges", err)
		return
	}
	response.Success(c, names)
}

func (h *Handler) ListSpreads(c *gin.Context) {
	var q application.ListSpreadsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.service.ListSpreads(c.Request.Context(), q)
	if err != nil {
		h.fail(c, "ListSpreads", err)
		return
	}
	response.Success(c, page)
}

func (h *Handler) GetSpread(c *gin.Context) {
	s, err := h.service.GetSpread(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "GetSpread", err)
		return
	}
	if s == nil {
		response.ErrorWithStatus(c, http.StatusNotFound, notFoundDetail)
		return
	}
	response.Success(c, s)
}

func (h *Handler) CreateSpread(c *gin.Context) {
	var in application.SpreadInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}

	s, err := h.service.CreateSpread(c.Request.Context(), &in)
	if err != nil {
		h.fail(c, "CreateSpread", err)
		return
	}
	response.Created(c, s)
}

func (h *Handler) UpdateSpread(c *gin.Context) {
	var in application.SpreadInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}

	s, err := h.service.UpdateSpread(c.Request.Context(), c.Param("id"), &in)
	if err != nil {
		h.fail(c, "UpdateSpread", err)
		return
	}
	if s == nil {
		response.ErrorWithStatus(c, http.StatusNotFound, notFoundDetail)
		return
	}
	response.Success(c, s)
}

func (h *Handler) DeleteSpread(c *gin.Context) {
	found, err := h.service.DeleteSpread(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "DeleteSpread", err)
		return
	}
	if !found {
		response.ErrorWithStatus(c, http.StatusNotFound, notFoundDetail)
		return
	}
	response.NoContent(c)
}

// fail 校验错误 400，其余 500 且不向客户端暴露细节
func (h *Handler) fail(c *gin.Context, op string, err error) {
	if errors.Is(err, domain.ErrValidation) {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}
	logger.Error(c.Request.Context(), "spread_handler."+op+" failed", "error", err)
	response.ErrorWithStatus(c, http.StatusInternalServerError, "Internal server error")
}
