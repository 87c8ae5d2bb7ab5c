package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	intconfig "travelbackend/internal/config"
	"travelbackend/internal/db"
)

// Health is a liveness probe.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// DBCheck reports database reachability and whether the core tables exist.
func DBCheck(c *gin.Context) {
	if intconfig.DB == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"db": "not connected"})
		return
	}
	if err := intconfig.DB.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"db": "unreachable", "error": err.Error()})
		return
	}

	tables := gin.H{}
	for _, t := range []string{"users", "trips", "bookings", "payments"} {
		tables[t] = db.HasTable(intconfig.DB, t)
	}
	c.JSON(http.StatusOK, gin.H{"db": "ok", "tables": tables})
}
