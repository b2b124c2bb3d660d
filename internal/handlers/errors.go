package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"pickup-service/internal/dto"
	"pickup-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// toHTTPError: единственное место отображения видов ошибок сервиса на HTTP.
func toHTTPError(err error) (int, dto.BaseError) {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, dto.NewValidationError(err.Error(), nil)
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, dto.NewUnauthorizedError(err.Error())
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, dto.NewError(dto.CodeForbidden, err.Error())
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, dto.NewError(dto.CodeNotFound, err.Error())
	case errors.Is(err, service.ErrAllowanceExceeded):
		return http.StatusConflict, dto.NewError(dto.CodeAllowanceExceeded, err.Error())
	case errors.Is(err, service.ErrInsufficientStock):
		return http.StatusConflict, dto.NewError(dto.CodeInsufficientStock, err.Error())
	case errors.Is(err, service.ErrState):
		return http.StatusConflict, dto.NewError(dto.CodeInvalidState, err.Error())
	case errors.Is(err, service.ErrConcurrencyConflict):
		return http.StatusConflict, dto.NewError(dto.CodeConcurrencyConflict, err.Error())
	default:
		return http.StatusInternalServerError, dto.NewInternalError("")
	}
}

func writeError(c *gin.Context, log *zap.Logger, err error) {
	status, body := toHTTPError(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	} else {
		log.Debug("request rejected", zap.String("path", c.FullPath()), zap.Int("status", status), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, msg string, field string) {
	var fields []dto.FieldError
	if field != "" {
		fields = []dto.FieldError{{Field: field, Message: msg}}
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewValidationError(msg, fields))
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid id", name)
		return uuid.Nil, false
	}
	return id, true
}

func pageParams(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.Query("limit"))
	offset, _ = strconv.Atoi(c.Query("offset"))
	return limit, offset
}
