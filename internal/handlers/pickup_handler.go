package handlers

import (
	"context"
	"net/http"
	"time"

	"pickup-service/internal/dto"
	"pickup-service/internal/models"
	"pickup-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PickupHandler struct {
	pickups    *service.PickupService
	settlement *service.SettlementService
	log        *zap.Logger
}

func NewPickupHandler(pickups *service.PickupService, settlement *service.SettlementService, log *zap.Logger) *PickupHandler {
	return &PickupHandler{pickups: pickups, settlement: settlement, log: log}
}

func (h *PickupHandler) Create(c *gin.Context) {
	var req dto.CreatePickupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid create pickup request", zap.Error(err))
		badRequest(c, "invalid request body", "")
		return
	}

	p, err := h.pickups.CreatePickup(c.Request.Context(), service.CreatePickupInput{
		DealerID:  uuid.MustParse(req.DealerID),
		ProductID: uuid.MustParse(req.ProductID),
		Quantity:  req.Quantity,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToPickup(p))
}

func (h *PickupHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	p, err := h.pickups.GetPickup(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToPickup(p))
}

func (h *PickupHandler) List(c *gin.Context) {
	var q service.PickupQuery
	q.Limit, q.Offset = pageParams(c)
	if s := c.Query("status"); s != "" {
		st := models.PickupStatus(s)
		q.Status = &st
	}
	if s := c.Query("product_id"); s != "" {
		pid, err := uuid.Parse(s)
		if err != nil {
			badRequest(c, "invalid product_id", "product_id")
			return
		}
		q.ProductID = &pid
	}

	list, total, err := h.pickups.ListPickups(c.Request.Context(), q)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.ListResponse[dto.PickupResponse]{Items: dto.MapList(list, dto.ToPickup), Total: total})
}

func (h *PickupHandler) RequestTransfer(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", "target_marketer_id")
		return
	}
	p, err := h.pickups.RequestTransfer(c.Request.Context(), id, uuid.MustParse(req.TargetMarketerID))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToPickup(p))
}

func (h *PickupHandler) AcceptTransfer(c *gin.Context) {
	h.transition(c, h.pickups.AcceptTransfer)
}

func (h *PickupHandler) DeclineTransfer(c *gin.Context) {
	h.transition(c, h.pickups.DeclineTransfer)
}

func (h *PickupHandler) RequestReturn(c *gin.Context) {
	h.transition(c, h.pickups.RequestReturn)
}

func (h *PickupHandler) ConfirmReturn(c *gin.Context) {
	h.transition(c, h.pickups.ConfirmReturn)
}

func (h *PickupHandler) RejectReturn(c *gin.Context) {
	h.transition(c, h.pickups.RejectReturn)
}

func (h *PickupHandler) transition(c *gin.Context, fn func(ctx context.Context, id uuid.UUID) (*models.Pickup, error)) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	p, err := fn(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToPickup(p))
}

// Sell оформляет продажу по выдаче: заказ и удержанная комиссия.
func (h *PickupHandler) Sell(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", "sold_amount_cents")
		return
	}
	in := service.PlaceOrderInput{PickupID: id, SoldAmountCents: req.SoldAmountCents}
	if req.SaleDate != "" {
		t, err := time.Parse(time.RFC3339, req.SaleDate)
		if err != nil {
			badRequest(c, "sale_date must be RFC3339", "sale_date")
			return
		}
		in.SaleDate = &t
	}

	res, err := h.settlement.PlaceOrder(c.Request.Context(), in)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, dto.SettlementResponse{
		Order:   dto.ToOrder(res.Order),
		Credits: dto.MapList(res.Credits, dto.ToCredit),
	})
}
