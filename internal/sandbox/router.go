package sandbox

import (
	"github.com/gin-gonic/gin"
)

func SetupRoutes(rg *gin.RouterGroup, controller *Controller) {

	// CATALOGUE

	performances := rg.Group("/performances")
	{
		performances.GET("/:id", controller.GetPerformance)      // GET /api/v1/performances/:id
		performances.GET("/:id/seat-map", controller.GetSeatMap) // GET /api/v1/performances/:id/seat-map
	}

	// SEAT HOLDING

	seats := rg.Group("/seats")
	{
		seats.POST("/reserve", controller.ReserveSeats)   // POST /api/v1/seats/reserve
		seats.POST("/release", controller.ReleaseSeats)   // POST /api/v1/seats/release
		seats.GET("/session", controller.GetSessionHolds) // GET /api/v1/seats/session?session_id=&performance_id=
	}

	// BOOKINGS

	bookings := rg.Group("/bookings")
	{
		bookings.POST("", controller.CreateBooking)               // POST /api/v1/bookings
		bookings.POST("/preview", controller.PreviewBooking)      // POST /api/v1/bookings/preview
		bookings.POST("/:code/cancel", controller.CancelBooking)  // POST /api/v1/bookings/:code/cancel
		bookings.POST("/:code/payment", controller.CreatePayment) // POST /api/v1/bookings/:code/payment
	}

	// PAYMENTS & DISCOUNTS

	rg.GET("/payments/:tx/status", controller.GetPaymentStatus)      // GET /api/v1/payments/:tx/status
	rg.GET("/discounts/available", controller.GetAvailableDiscounts) // GET /api/v1/discounts/available
}
