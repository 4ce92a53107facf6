package sandbox

import (
	"errors"
	"net/http"
	"strconv"

	"boxoffice/internal/reservation"
	"boxoffice/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	service *Service
}

func NewController(service *Service) *Controller {
	return &Controller{service: service}
}

// respondError maps service errors onto the envelope
func respondError(ctx *gin.Context, fallback string, err error) {
	var reqErr *RequestError
	switch {
	case errors.As(err, &reqErr):
		response.Error(ctx, reqErr.Status, reqErr.Message, reqErr.Details)
	case errors.Is(err, ErrNotFound):
		response.Error(ctx, http.StatusNotFound, "Not found", err.Error())
	default:
		response.Error(ctx, http.StatusInternalServerError, fallback, err.Error())
	}
}

func performanceID(ctx *gin.Context, raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		response.Error(ctx, http.StatusBadRequest, "Invalid performance ID", "performance id must be a positive integer")
		return 0, false
	}
	return id, true
}

// CATALOGUE

// GetPerformance godoc
// @Summary      Get a performance
// @Tags         catalogue
// @Produce      json
// @Param        id   path      int  true  "Performance ID"
// @Success      200  {object}  response.StandardApiResponse{data=reservation.Performance}
// @Failure      400  {object}  response.StandardApiResponse
// @Failure      404  {object}  response.StandardApiResponse
// @Router       /performances/{id} [get]
func (c *Controller) GetPerformance(ctx *gin.Context) {
	id, ok := performanceID(ctx, ctx.Param("id"))
	if !ok {
		return
	}
	perf, err := c.service.GetPerformance(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, "Failed to get performance", err)
		return
	}
	response.Success(ctx, http.StatusOK, "Performance retrieved successfully", perf)
}

// GetSeatMap godoc
// @Summary      Seat map with live hold status
// @Tags         catalogue
// @Produce      json
// @Param        id   path      int  true  "Performance ID"
// @Success      200  {object}  response.StandardApiResponse{data=reservation.SeatMap}
// @Failure      404  {object}  response.StandardApiResponse
// @Router       /performances/{id}/seat-map [get]
func (c *Controller) GetSeatMap(ctx *gin.Context) {
	id, ok := performanceID(ctx, ctx.Param("id"))
	if !ok {
		return
	}
	seatMap, err := c.service.SeatMap(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, "Failed to get seat map", err)
		return
	}
	response.Success(ctx, http.StatusOK, "Seat map retrieved successfully", seatMap)
}

// SEAT HOLDING

// ReserveSeats godoc
// @Summary      Hold the full seat set for a session
// @Tags         seats
// @Accept       json
// @Produce      json
// @Param        request  body      reservation.ReserveRequest  true  "Seats to hold"
// @Success      200      {object}  response.StandardApiResponse{data=reservation.Reservation}
// @Failure      409      {object}  response.StandardApiResponse
// @Router       /seats/reserve [post]
func (c *Controller) ReserveSeats(ctx *gin.Context) {
	var req reservation.ReserveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid request data", err.Error())
		return
	}
	res, err := c.service.Reserve(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, "Failed to reserve seats", err)
		return
	}
	response.Success(ctx, http.StatusOK, "Seats reserved successfully", res)
}

// ReleaseSeats serves both the API call and teardown beacons, which may
// arrive without a JSON content type
// @Summary      Release held seats
// @Tags         seats
// @Accept       json
// @Produce      json
// @Param        request  body      reservation.ReleaseRequest  true  "Seats to release"
// @Success      200      {object}  response.StandardApiResponse{data=reservation.ReleaseResult}
// @Router       /seats/release [post]
func (c *Controller) ReleaseSeats(ctx *gin.Context) {
	var req reservation.ReleaseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid request data", err.Error())
		return
	}
	res, err := c.service.Release(ctx.Request.Context(), req, "api")
	if err != nil {
		respondError(ctx, "Failed to release seats", err)
		return
	}
	response.Success(ctx, http.StatusOK, "Seats released successfully", res)
}

// GetSessionHolds godoc
// @Summary      Seats a session still holds
// @Tags         seats
// @Produce      json
// @Param        session_id      query     string  true  "Session ID"
// @Param        performance_id  query     int     true  "Performance ID"
// @Success      200             {object}  response.StandardApiResponse{data=reservation.Reservation}
// @Router       /seats/session [get]
func (c *Controller) GetSessionHolds(ctx *gin.Context) {
	id, ok := performanceID(ctx, ctx.Query("performance_id"))
	if !ok {
		return
	}
	res, err := c.service.SessionHolds(ctx.Request.Context(), ctx.Query("session_id"), id)
	if err != nil {
		respondError(ctx, "Failed to get session holds", err)
		return
	}
	response.Success(ctx, http.StatusOK, "Session holds retrieved successfully", res)
}

// BOOKINGS

// PreviewBooking godoc
// @Summary      Price a discount code without booking
// @Tags         bookings
// @Accept       json
// @Produce      json
// @Param        request  body      reservation.BookingRequest  true  "Booking draft"
// @Success      200      {object}  response.StandardApiResponse{data=reservation.BookingPreview}
// @Failure      400      {object}  response.StandardApiResponse
// @Router       /bookings/preview [post]
func (c *Controller) PreviewBooking(ctx *gin.Context) {
	var req reservation.BookingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid request data", err.Error())
		return
	}
	preview, err := c.service.Preview(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, "Failed to validate discount", err)
		return
	}
	response.Success(ctx, http.StatusOK, "Discount applied successfully", preview)
}

// CreateBooking godoc
// @Summary      Turn held seats into a pending booking
// @Tags         bookings
// @Accept       json
// @Produce      json
// @Param        request  body      reservation.BookingRequest  true  "Booking"
// @Success      201      {object}  response.StandardApiResponse{data=reservation.Booking}
// @Failure      409      {object}  response.StandardApiResponse
// @Router       /bookings [post]
func (c *Controller) CreateBooking(ctx *gin.Context) {
	var req reservation.BookingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid request data", err.Error())
		return
	}
	b, err := c.service.CreateBooking(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, "Failed to create booking", err)
		return
	}
	response.Success(ctx, http.StatusCreated, "Booking created successfully", b)
}

// CancelBooking godoc
// @Summary      Cancel a pending booking
// @Tags         bookings
// @Produce      json
// @Param        code  path      string  true  "Booking code"
// @Success      200   {object}  response.StandardApiResponse{data=reservation.Booking}
// @Router       /bookings/{code}/cancel [post]
func (c *Controller) CancelBooking(ctx *gin.Context) {
	b, err := c.service.CancelBooking(ctx.Request.Context(), ctx.Param("code"))
	if err != nil {
		respondError(ctx, "Failed to cancel booking", err)
		return
	}
	response.Success(ctx, http.StatusOK, "Booking cancelled successfully", b)
}

// PAYMENTS

// CreatePayment godoc
// @Summary      Start a payment for a booking
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        code     path      string                      true  "Booking code"
// @Param        request  body      reservation.PaymentRequest  true  "Payment method"
// @Success      201      {object}  response.StandardApiResponse{data=reservation.Payment}
// @Router       /bookings/{code}/payment [post]
func (c *Controller) CreatePayment(ctx *gin.Context) {
	var req reservation.PaymentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid request data", err.Error())
		return
	}
	p, err := c.service.CreatePayment(ctx.Request.Context(), ctx.Param("code"), req.PaymentMethod)
	if err != nil {
		respondError(ctx, "Failed to create payment", err)
		return
	}
	response.Success(ctx, http.StatusCreated, "Payment created successfully", p)
}

// GetPaymentStatus godoc
// @Summary      Poll a payment
// @Tags         payments
// @Produce      json
// @Param        tx   path      string  true  "Transaction ID"
// @Success      200  {object}  response.StandardApiResponse{data=reservation.PaymentStatusResult}
// @Router       /payments/{tx}/status [get]
func (c *Controller) GetPaymentStatus(ctx *gin.Context) {
	st, err := c.service.PaymentStatus(ctx.Request.Context(), ctx.Param("tx"))
	if err != nil {
		respondError(ctx, "Failed to get payment status", err)
		return
	}
	response.Success(ctx, http.StatusOK, "Payment status retrieved successfully", st)
}

// PaymentPage is the mock gateway's landing page
func (c *Controller) PaymentPage(ctx *gin.Context) {
	tx := ctx.Query("tx")
	if tx == "" {
		response.Error(ctx, http.StatusBadRequest, "Transaction ID is required", "missing tx")
		return
	}
	response.Success(ctx, http.StatusOK, "Payment is processing", gin.H{"transaction_id": tx})
}

// DISCOUNTS

// GetAvailableDiscounts godoc
// @Summary      Public discount codes
// @Tags         discounts
// @Produce      json
// @Success      200  {object}  response.StandardApiResponse{data=[]reservation.Discount}
// @Router       /discounts/available [get]
func (c *Controller) GetAvailableDiscounts(ctx *gin.Context) {
	list, err := c.service.AvailableDiscounts(ctx.Request.Context())
	if err != nil {
		respondError(ctx, "Failed to get discounts", err)
		return
	}
	response.Success(ctx, http.StatusOK, "Discounts retrieved successfully", list)
}
