package handlers

import (
	"net/http"

	"pickup-service/internal/dto"
	"pickup-service/internal/models"
	"pickup-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AllowanceHandler struct {
	allowances *service.AllowanceService
	log        *zap.Logger
}

func NewAllowanceHandler(allowances *service.AllowanceService, log *zap.Logger) *AllowanceHandler {
	return &AllowanceHandler{allowances: allowances, log: log}
}

func (h *AllowanceHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	v, err := h.allowances.GetAllowance(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *AllowanceHandler) RequestExtra(c *gin.Context) {
	req, err := h.allowances.RequestExtraAllowance(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToExtraRequest(req))
}

func (h *AllowanceHandler) Review(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var body dto.ReviewRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body", "approve")
		return
	}
	req, err := h.allowances.ReviewExtraAllowance(c.Request.Context(), id, body.Approve)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToExtraRequest(req))
}

func (h *AllowanceHandler) ListRequests(c *gin.Context) {
	var q service.ExtraRequestQuery
	q.Limit, q.Offset = pageParams(c)
	if s := c.Query("status"); s != "" {
		st := models.RequestStatus(s)
		q.Status = &st
	}
	list, total, err := h.allowances.ListExtraAllowanceRequests(c.Request.Context(), q)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.ListResponse[dto.ExtraRequestResponse]{Items: dto.MapList(list, dto.ToExtraRequest), Total: total})
}
