package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"travelbackend/internal/auth"
	"travelbackend/internal/domain/models"
	"travelbackend/internal/http/middleware"
	"travelbackend/internal/services"
)

func tripService(c *gin.Context) services.TripService {
	return services.TripService{RequestID: middleware.GetRequestID(c)}
}

type tripRequest struct {
	Title      string `json:"title"`
	Capacity   int    `json:"capacity"`
	PriceMinor int64  `json:"priceMinor"`
	StartDate  string `json:"startDate"`
}

// POST /api/trips
func CreateTrip(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req tripRequest
	if !BindJSONOrError(c, &req) {
		return
	}

	trip, err := tripService(c).CreateTrip(actor, models.Trip{
		Title:      req.Title,
		Capacity:   req.Capacity,
		PriceMinor: req.PriceMinor,
		StartDate:  req.StartDate,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"trip": trip})
}

// PUT /api/trips/:id
func UpdateTrip(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req tripRequest
	if !BindJSONOrError(c, &req) {
		return
	}

	trip, err := tripService(c).UpdateTrip(actor, models.Trip{
		ID:         id,
		Title:      req.Title,
		Capacity:   req.Capacity,
		PriceMinor: req.PriceMinor,
		StartDate:  req.StartDate,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trip": trip})
}

// tripAction adapts one state-machine operation to a handler.
func tripAction(fn func(services.TripService, int64, auth.Actor) (models.Trip, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorOrAbort(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		trip, err := fn(tripService(c), id, actor)
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"trip": trip})
	}
}

var (
	SubmitTrip  = tripAction(services.TripService.Submit)
	ApproveTrip = tripAction(services.TripService.Approve)
	RejectTrip  = tripAction(services.TripService.Reject)
	PublishTrip = tripAction(services.TripService.Publish)
	ArchiveTrip = tripAction(services.TripService.Archive)
)

// GET /api/trips returns the public catalog, published only.
func ListTrips(c *gin.Context) {
	trips, err := tripService(c).ListPublic()
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trips": trips})
}

// GET /api/trips/all is the internal view across all states.
func ListAllTrips(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	trips, err := tripService(c).ListInternal(actor)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trips": trips})
}

// GET /api/trips/:id
func GetTrip(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	trip, err := tripService(c).GetVisible(id, actor)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trip": trip, "remainingCapacity": trip.RemainingCapacity()})
}

// POST /api/trips/:id/reconcile repairs drift in the confirmed counter.
func ReconcileTrip(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	trip, err := tripService(c).ReconcileCapacity(id, actor)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trip": trip})
}
