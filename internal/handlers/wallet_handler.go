package handlers

import (
	"net/http"

	"pickup-service/internal/dto"
	"pickup-service/internal/models"
	"pickup-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type WalletHandler struct {
	wallets *service.WalletService
	log     *zap.Logger
}

func NewWalletHandler(wallets *service.WalletService, log *zap.Logger) *WalletHandler {
	return &WalletHandler{wallets: wallets, log: log}
}

func (h *WalletHandler) Summary(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	sum, err := h.wallets.GetWalletSummary(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *WalletHandler) Ledger(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	limit, offset := pageParams(c)
	list, total, err := h.wallets.ListLedger(c.Request.Context(), id, limit, offset)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.ListResponse[dto.LedgerEntryResponse]{Items: dto.MapList(list, dto.ToLedgerEntry), Total: total})
}

func (h *WalletHandler) RequestWithdrawal(c *gin.Context) {
	var req dto.WithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body", "amount_cents")
		return
	}
	w, err := h.wallets.RequestWithdrawal(c.Request.Context(), req.AmountCents, req.Note)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToWithdrawal(w))
}

func (h *WalletHandler) ReviewWithdrawal(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var body dto.ReviewRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body", "approve")
		return
	}
	w, err := h.wallets.ReviewWithdrawal(c.Request.Context(), id, body.Approve, body.Note)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToWithdrawal(w))
}

func (h *WalletHandler) ListWithdrawals(c *gin.Context) {
	var q service.WithdrawalQuery
	q.Limit, q.Offset = pageParams(c)
	if s := c.Query("status"); s != "" {
		st := models.RequestStatus(s)
		q.Status = &st
	}
	list, total, err := h.wallets.ListWithdrawals(c.Request.Context(), q)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.ListResponse[dto.WithdrawalResponse]{Items: dto.MapList(list, dto.ToWithdrawal), Total: total})
}
