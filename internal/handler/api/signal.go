package api

import (
	"errors"
	"net/http"
	"strings"

	"X402/internal/domain/models"
	xhttp "X402/pkg/http"
	applogger "X402/pkg/logger"

	"github.com/labstack/echo/v4"
)

const (
	paymentRequired    = "Payment Required"
	invalidTransaction = "Invalid Transaction"
)

// SignalHandler serves the pay-per-request GET /signal endpoint.
type SignalHandler struct {
	seller SignalSeller
	limit  echo.MiddlewareFunc
	log    *applogger.Logger
}

// NewSignalHandler wires the seller; limit may be nil.
func NewSignalHandler(seller SignalSeller, limit echo.MiddlewareFunc, l *applogger.Logger) *SignalHandler {
	return &SignalHandler{seller: seller, limit: limit, log: l.With("signal_handler")}
}

func (h *SignalHandler) RegisterRoutes(e *echo.Echo) {
	var mw []echo.MiddlewareFunc
	if h.limit != nil {
		mw = append(mw, h.limit)
	}
	e.GET("/signal", h.Signal, mw...)
}

// Signal answers 402 with the payment challenge when no proof is supplied,
// otherwise verifies the proof and returns the paid signal.
func (h *SignalHandler) Signal(c echo.Context) error {
	proof := ProofFromHeader(c.Request().Header.Get(echo.HeaderAuthorization))
	if proof == "" {
		return h.challenge(c)
	}

	resp, err := h.seller.Deliver(c.Request().Context(), proof)
	switch {
	case errors.Is(err, models.ErrPaymentRejected):
		return xhttp.DetailErrorResponse(c, http.StatusForbidden, invalidTransaction)
	case err != nil:
		h.log.Error("signal delivery failed", applogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *SignalHandler) challenge(c echo.Context) error {
	ch := h.seller.Challenge()
	price := ch.Price.String()
	hdr := c.Response().Header()
	hdr.Set(models.HeaderPrice, price)
	hdr.Set(models.HeaderAddress, ch.PayeeAddress.Hex())
	hdr.Set(models.HeaderToken, ch.TokenAddress.Hex())
	return c.JSON(http.StatusPaymentRequired, models.ChallengeResponse{
		Detail:       paymentRequired,
		Price:        price,
		PayeeAddress: ch.PayeeAddress.Hex(),
		TokenAddress: ch.TokenAddress.Hex(),
	})
}

// ProofFromHeader extracts the transaction reference from an Authorization
// value. A "Bearer " prefix is optional.
func ProofFromHeader(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
		v = strings.TrimSpace(v[7:])
	}
	return v
}
