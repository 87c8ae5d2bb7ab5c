package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"travelbackend/internal/auth"
	"travelbackend/internal/domain/models"
	"travelbackend/internal/http/middleware"
	"travelbackend/internal/services"
)

func bookingService(c *gin.Context) services.BookingService {
	return services.BookingService{
		Relay:     relay,
		RequestID: middleware.GetRequestID(c),
	}
}

type bookingRequest struct {
	TripID    int64                `json:"tripId"`
	Guests    int                  `json:"guests"`
	StartDate string               `json:"startDate"`
	Travelers []models.GuestDetail `json:"travelers"`
}

// POST /api/bookings
func CreateBooking(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req bookingRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	if req.TripID <= 0 {
		respondError(c, http.StatusBadRequest, "validation_error", "tripId is required", nil)
		return
	}

	booking, err := bookingService(c).CreateBooking(actor, req.TripID, req.Guests, req.StartDate, req.Travelers)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"booking": booking})
}

// bookingAction adapts one admission operation to a handler.
func bookingAction(fn func(services.BookingService, int64, auth.Actor) (models.Booking, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorOrAbort(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		booking, err := fn(bookingService(c), id, actor)
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"booking": booking})
	}
}

var (
	ApproveBooking  = bookingAction(services.BookingService.Approve)
	RejectBooking   = bookingAction(services.BookingService.Reject)
	CancelBooking   = bookingAction(services.BookingService.Cancel)
	CompleteBooking = bookingAction(services.BookingService.Complete)
)

// GET /api/bookings/me
func ListMyBookings(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	bookings, err := bookingService(c).ListMine(actor)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// GET /api/trips/:id/bookings is the manager view.
func ListTripBookings(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	bookings, err := bookingService(c).ListForTrip(id, actor)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// GET /api/bookings/:id
func GetBooking(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	booking, err := bookingService(c).Get(id, actor)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// GET /api/bookings/:id/invoice downloads the PDF, paid bookings only.
func DownloadInvoice(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	svc := services.InvoiceService{RequestID: middleware.GetRequestID(c)}
	pdf, filename, err := svc.GenerateInvoice(id, actor)
	if err != nil {
		RespondDomainError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}
