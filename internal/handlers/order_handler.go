package handlers

import (
	"net/http"
	"time"

	"pickup-service/internal/dto"
	"pickup-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type OrderHandler struct {
	settlement *service.SettlementService
	log        *zap.Logger
}

func NewOrderHandler(settlement *service.SettlementService, log *zap.Logger) *OrderHandler {
	return &OrderHandler{settlement: settlement, log: log}
}

func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	o, err := h.settlement.GetOrder(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToOrder(o))
}

func (h *OrderHandler) List(c *gin.Context) {
	var q service.OrderQuery
	q.Limit, q.Offset = pageParams(c)
	if s := c.Query("dealer_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			badRequest(c, "invalid dealer_id", "dealer_id")
			return
		}
		q.DealerID = &id
	}
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"from", &q.From}, {"to", &q.To}} {
		if s := c.Query(p.name); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				badRequest(c, p.name+" must be RFC3339", p.name)
				return
			}
			*p.dst = &t
		}
	}

	list, total, err := h.settlement.ListOrders(c.Request.Context(), q)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.ListResponse[dto.OrderResponse]{Items: dto.MapList(list, dto.ToOrder), Total: total})
}
