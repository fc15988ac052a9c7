package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/MikeRez0/artisanmart/internal/core/domain"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/govalues/decimal"
	"go.uber.org/zap"
)

type errorStatus struct {
	err    error
	status int
}

// errorStatusMap is matched top down with errors.Is, so wrapped errors hit
// the first listed sentinel they carry.
var errorStatusMap = []errorStatus{
	{domain.ErrReviewRecordingFailure, http.StatusInternalServerError},
	{domain.ErrInternal, http.StatusInternalServerError},

	{domain.ErrEmptyAuthorizationHeader, http.StatusUnauthorized},
	{domain.ErrInvalidAuthorizationHeader, http.StatusUnauthorized},
	{domain.ErrInvalidAuthorizationType, http.StatusUnauthorized},
	{domain.ErrInvalidToken, http.StatusUnauthorized},
	{domain.ErrExpiredToken, http.StatusUnauthorized},
	{domain.ErrUnauthorized, http.StatusUnauthorized},
	{domain.ErrForbidden, http.StatusForbidden},

	{domain.ErrUpstream, http.StatusBadGateway},

	{domain.ErrSignatureVerification, http.StatusBadRequest},
	{domain.ErrMissingOrderReference, http.StatusBadRequest},
	{domain.ErrValidation, http.StatusBadRequest},
	{domain.ErrBadRequest, http.StatusBadRequest},
	{domain.ErrNoUpdatedData, http.StatusBadRequest},

	{domain.ErrDataNotFound, http.StatusNotFound},
	{domain.ErrConflictingData, http.StatusConflict},
	{domain.ErrShippingTransition, http.StatusConflict},
	{domain.ErrOrderAlreadySettled, http.StatusConflict},
}

func statusFor(err error) (int, bool) {
	for _, es := range errorStatusMap {
		if errors.Is(err, es.err) {
			return es.status, true
		}
	}
	return http.StatusInternalServerError, false
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// jsonDecimal renders money as a JSON string to keep its exact scale.
type jsonDecimal decimal.Decimal

func (j jsonDecimal) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(decimal.Decimal(j).String())), nil
}

func (j *jsonDecimal) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	d, err := decimal.Parse(s)
	if err != nil {
		return fmt.Errorf("%w: price %s", domain.ErrBadRequest, data)
	}
	*j = jsonDecimal(d)
	return nil
}

type Handler struct {
	logger   *zap.Logger
	validate *validator.Validate
}

func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{
		logger:   logger,
		validate: validator.New(),
	}
}

// bind decodes the JSON body into req and validates it.
func (h *Handler) bind(ctx *gin.Context, req any) bool {
	if err := ctx.ShouldBindJSON(req); err != nil {
		h.handleError(ctx, fmt.Errorf("%w: %w", domain.ErrBadRequest, err))
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		h.handleValidationError(ctx, err)
		return false
	}
	return true
}

func formatValidationError(err error) map[string]string {
	fields := make(map[string]string)

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fields
	}
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())

		switch fe.Tag() {
		case "required":
			fields[field] = fmt.Sprintf("%s is required", field)
		case "min":
			fields[field] = fmt.Sprintf("%s must contain at least %s entries", field, fe.Param())
		case "gte":
			fields[field] = fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
		case "uuid":
			fields[field] = fmt.Sprintf("%s must be a UUID", field)
		case "oneof":
			fields[field] = fmt.Sprintf("%s must be one of: %s", field, fe.Param())
		default:
			fields[field] = fmt.Sprintf("%s is invalid", field)
		}
	}
	return fields
}

// handleValidationError sends a 400 listing the offending request fields
func (h *Handler) handleValidationError(ctx *gin.Context, err error) {
	ctx.JSON(http.StatusBadRequest, errorResponse{
		Error:  domain.ErrValidation.Error(),
		Fields: formatValidationError(err),
	})
}

// handleAbort aborts the middleware chain with the status mapped from err
func handleAbort(ctx *gin.Context, err error) {
	statusCode, _ := statusFor(err)
	_ = ctx.Error(err)
	ctx.AbortWithStatusJSON(statusCode, errorResponse{Error: err.Error()})
}

func (h *Handler) handleError(ctx *gin.Context, err error) {
	statusCode, ok := statusFor(err)
	h.respondError(ctx, statusCode, ok, err)
}

func (h *Handler) respondError(ctx *gin.Context, statusCode int, known bool, err error) {
	_ = ctx.Error(err)
	if !known || statusCode >= http.StatusInternalServerError {
		h.logger.Error("error processing request",
			zap.String("path", ctx.FullPath()), zap.Int("status", statusCode), zap.Error(err))
	}
	msg := err.Error()
	if !known {
		msg = domain.ErrInternal.Error()
	}
	ctx.JSON(statusCode, errorResponse{Error: msg})
}

// handleSuccessWithStatus sends data with the given status, or the bare status when data is nil
func (h *Handler) handleSuccessWithStatus(ctx *gin.Context, data any, status int) {
	if data != nil {
		ctx.JSON(status, data)
	} else {
		ctx.Status(status)
	}
}

func (h *Handler) handleSuccess(ctx *gin.Context, data any) {
	h.handleSuccessWithStatus(ctx, data, http.StatusOK)
}
