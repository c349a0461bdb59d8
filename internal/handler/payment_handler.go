package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"pawhaven/internal/errors"
	"pawhaven/internal/model"
	"pawhaven/internal/service"
)

// PaymentHandler handles adoption payment endpoints.
type PaymentHandler struct {
	paymentService service.PaymentService
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// InitiatePaymentRequest starts an adoption payment for a pet.
type InitiatePaymentRequest struct {
	PetID string `json:"pet_id" validate:"required,uuid"`
}

// ChooseGatewayRequest selects the gateway for a pending payment.
type ChooseGatewayRequest struct {
	Method string `json:"method" validate:"required,oneof=KHALTI ESEWA"`
}

// Initiate godoc
// @Summary Create a pending adoption payment for an available pet
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body InitiatePaymentRequest true "Pet to adopt"
// @Success 201 {object} model.Payment
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /payments/initiate [post]
func (h *PaymentHandler) Initiate(c echo.Context) error {
	claims, ok := CurrentClaims(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{Error: "invalid token", Code: "UNAUTHORIZED"})
	}

	var req InitiatePaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{Error: "invalid request body", Code: "INVALID_REQUEST"})
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{Error: err.Error(), Code: "VALIDATION_ERROR"})
	}

	petID, err := uuid.Parse(req.PetID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{Error: "invalid pet_id", Code: "INVALID_UUID"})
	}

	payment, err := h.paymentService.Initiate(c.Request().Context(), petID, claims.UserID)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusCreated, payment)
}

// ChooseGateway godoc
// @Summary Route a pending payment through a gateway
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Payment ID"
// @Param request body ChooseGatewayRequest true "Gateway selection"
// @Success 200 {object} service.GatewayRedirect
// @Failure 400 {object} errors.ErrorResponse
// @Failure 502 {object} errors.ErrorResponse
// @Router /payments/{id}/gateway [post]
func (h *PaymentHandler) ChooseGateway(c echo.Context) error {
	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{Error: "invalid payment id", Code: "INVALID_UUID"})
	}

	var req ChooseGatewayRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{Error: "invalid request body", Code: "INVALID_REQUEST"})
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{Error: err.Error(), Code: "VALIDATION_ERROR"})
	}

	redirect, err := h.paymentService.ChooseGateway(c.Request().Context(), paymentID, model.PaymentMethod(req.Method))
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusOK, redirect)
}

// RegenerateReference godoc
// @Summary Assign a fresh transaction reference for a retry
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Payment ID"
// @Success 200 {object} model.Payment
// @Failure 409 {object} errors.ErrorResponse
// @Router /payments/{id}/regenerate [post]
func (h *PaymentHandler) RegenerateReference(c echo.Context) error {
	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{Error: "invalid payment id", Code: "INVALID_UUID"})
	}

	payment, err := h.paymentService.RegenerateReference(c.Request().Context(), paymentID)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusOK, payment)
}

// EsewaCallback godoc
// @Summary Bank-redirect gateway callback (new and legacy protocols)
// @Tags payments
// @Produce json
// @Param oid query string true "Transaction reference"
// @Param data query string false "Base64 JSON payload (new protocol)"
// @Param amt query string false "Amount (legacy protocol)"
// @Param refId query string false "Gateway reference (legacy protocol)"
// @Success 200 {object} service.Outcome
// @Failure 404 {object} errors.ErrorResponse
// @Router /payments/esewa/callback [get]
func (h *PaymentHandler) EsewaCallback(c echo.Context) error {
	cb := service.Callback{
		Method:         model.MethodEsewa,
		TransactionRef: c.QueryParam("oid"),
		Data:           c.QueryParam("data"),
		LegacyAmount:   c.QueryParam("amt"),
		LegacyRefID:    c.QueryParam("refId"),
	}
	if claims, ok := CurrentClaims(c); ok {
		cb.UserID = claims.UserID
	}

	outcome, err := h.paymentService.Reconcile(c.Request().Context(), cb)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusOK, outcome)
}

// KhaltiReturn godoc
// @Summary Wallet gateway return redirect; completion is gateway-verified
// @Tags payments
// @Produce json
// @Param purchase_order_id query string true "Transaction reference"
// @Param pidx query string false "Wallet payment id"
// @Success 200 {object} service.Outcome
// @Failure 404 {object} errors.ErrorResponse
// @Router /payments/khalti/return [get]
func (h *PaymentHandler) KhaltiReturn(c echo.Context) error {
	cb := service.Callback{
		Method:         model.MethodKhalti,
		TransactionRef: c.QueryParam("purchase_order_id"),
		Pidx:           c.QueryParam("pidx"),
	}
	if claims, ok := CurrentClaims(c); ok {
		cb.UserID = claims.UserID
	}

	outcome, err := h.paymentService.Reconcile(c.Request().Context(), cb)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusOK, outcome)
}

// Status godoc
// @Summary Read a payment by id or transaction reference
// @Tags payments
// @Produce json
// @Param payment_id query string false "Payment ID"
// @Param oid query string false "Transaction reference"
// @Success 200 {object} model.Payment
// @Failure 404 {object} errors.ErrorResponse
// @Router /payments/status [get]
func (h *PaymentHandler) Status(c echo.Context) error {
	ctx := c.Request().Context()

	if id := c.QueryParam("payment_id"); id != "" {
		paymentID, err := uuid.Parse(id)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{Error: "invalid payment_id", Code: "INVALID_UUID"})
		}
		payment, err := h.paymentService.Get(ctx, paymentID)
		if err != nil {
			httpErr := errors.MapErrorToHTTP(err)
			return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
		}
		return c.JSON(http.StatusOK, payment)
	}

	if ref := c.QueryParam("oid"); ref != "" {
		payment, err := h.paymentService.FindByReference(ctx, ref)
		if err != nil {
			httpErr := errors.MapErrorToHTTP(err)
			return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
		}
		return c.JSON(http.StatusOK, payment)
	}

	return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{Error: "payment_id or oid required", Code: "INVALID_REQUEST"})
}

// History godoc
// @Summary List the authenticated user's payments
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.Payment
// @Router /payments [get]
func (h *PaymentHandler) History(c echo.Context) error {
	claims, ok := CurrentClaims(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{Error: "invalid token", Code: "UNAUTHORIZED"})
	}

	payments, err := h.paymentService.ListForUser(c.Request().Context(), claims.UserID)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusOK, payments)
}

// AdminTransition godoc
// @Summary Apply an administrative terminal state (expire, cancel, refund)
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Payment ID"
// @Param action path string true "One of expire, cancel, refund"
// @Success 200 {object} model.Payment
// @Failure 409 {object} errors.ErrorResponse
// @Router /payments/{id}/{action} [post]
func (h *PaymentHandler) AdminTransition(c echo.Context) error {
	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{Error: "invalid payment id", Code: "INVALID_UUID"})
	}

	ctx := c.Request().Context()
	var payment *model.Payment
	switch c.Param("action") {
	case "expire":
		payment, err = h.paymentService.MarkExpired(ctx, paymentID)
	case "cancel":
		payment, err = h.paymentService.MarkCancelled(ctx, paymentID)
	case "refund":
		payment, err = h.paymentService.MarkRefunded(ctx, paymentID)
	default:
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{Error: "unknown action", Code: "INVALID_REQUEST"})
	}
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusOK, payment)
}
