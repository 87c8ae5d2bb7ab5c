package api

import (
	"log"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"

	"travelbackend/internal/config"
	h "travelbackend/internal/http/handlers"
	"travelbackend/internal/http/middleware"
)

// NewRouter builds the gin engine. The webhook endpoint is deliberately
// outside the auth group: the gateway authenticates with a body signature,
// not a bearer token.
func NewRouter(cfg config.Config) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery(), middleware.CORS())

	if err := r.SetTrustedProxies(nil); err != nil {
		log.Printf("warning: failed to set trusted proxies: %v", err)
	}

	r.OPTIONS("/*path", func(c *gin.Context) { c.AbortWithStatus(stdhttp.StatusNoContent) })

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/db-check", h.DBCheck)

		// Auth
		authGroup := api.Group("/auth")
		authGroup.POST("/login", h.Login)
		authGroup.POST("/register", h.Register)

		// Public catalog
		api.GET("/trips", h.ListTrips)

		// Gateway webhook, signature-authenticated
		api.POST("/payments/webhook", h.PaymentWebhook)

		authed := api.Group("")
		authed.Use(middleware.Auth(cfg.Auth.JWTSecret))
		{
			// Trips
			trips := authed.Group("/trips")
			trips.GET("/all", h.ListAllTrips)
			trips.GET("/:id", h.GetTrip)
			trips.POST("", h.CreateTrip)
			trips.PUT("/:id", h.UpdateTrip)
			trips.POST("/:id/submit", h.SubmitTrip)
			trips.POST("/:id/approve", h.ApproveTrip)
			trips.POST("/:id/reject", h.RejectTrip)
			trips.POST("/:id/publish", h.PublishTrip)
			trips.POST("/:id/archive", h.ArchiveTrip)
			trips.POST("/:id/reconcile", h.ReconcileTrip)
			trips.GET("/:id/bookings", h.ListTripBookings)

			// Bookings
			bookings := authed.Group("/bookings")
			bookings.POST("", h.CreateBooking)
			bookings.GET("/me", h.ListMyBookings)
			bookings.GET("/:id", h.GetBooking)
			bookings.POST("/:id/approve", h.ApproveBooking)
			bookings.POST("/:id/reject", h.RejectBooking)
			bookings.POST("/:id/cancel", h.CancelBooking)
			bookings.POST("/:id/complete", h.CompleteBooking)
			bookings.POST("/:id/refund", h.RefundBooking)
			bookings.GET("/:id/payment", h.PaymentStatus)
			bookings.GET("/:id/invoice", h.DownloadInvoice)

			// Payments
			payments := authed.Group("/payments")
			payments.POST("/intent", h.CreatePaymentIntent)
			payments.POST("/verify", h.VerifyPayment)
			payments.POST("/manual", h.RecordManualPayment)
			payments.GET("", h.PaymentHistory)
		}
	}

	return r
}
