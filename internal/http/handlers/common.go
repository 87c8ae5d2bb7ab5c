package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"travelbackend/internal/auth"
	"travelbackend/internal/config"
	"travelbackend/internal/gateway"
	"travelbackend/internal/http/middleware"
	"travelbackend/internal/notify"
)

var (
	cfg     config.Config
	gwPay   *gateway.Client
	relay   notify.Relay = notify.NopRelay{}
	appEnv  string
	jwtAuth []byte
)

// Configure wires the handler package once at startup.
func Configure(c config.Config, gw *gateway.Client, r notify.Relay) {
	cfg = c
	gwPay = gw
	if r != nil {
		relay = r
	}
	appEnv = c.App.Env
	jwtAuth = []byte(c.Auth.JWTSecret)
}

// BindJSONOrError ensures body is present and parsable.
func BindJSONOrError[T any](c *gin.Context, dst *T) bool {
	if c.Request.Body == nil {
		respondError(c, http.StatusBadRequest, "validation_error", "empty body", nil)
		return false
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "invalid payload", err.Error())
		return false
	}
	return true
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "validation_error", "invalid "+name, nil)
		return 0, false
	}
	return id, true
}

func actorOrAbort(c *gin.Context) (auth.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		return auth.Actor{}, false
	}
	return actor, true
}
