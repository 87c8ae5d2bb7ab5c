package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"travelbackend/internal/config"
	"travelbackend/internal/utils"
)

// EventType identifies a lifecycle event.
type EventType string

const (
	EventBookingConfirmed EventType = "booking_confirmed"
	EventPaymentCaptured  EventType = "payment_captured"
	EventPaymentRefunded  EventType = "payment_refunded"
)

// Event is the relay's inbound contract. Delivery is fire-and-forget from the
// engine's perspective.
type Event struct {
	Type        EventType `json:"type"`
	BookingID   int64     `json:"bookingId"`
	TripID      int64     `json:"tripId,omitempty"`
	UserID      int64     `json:"userId,omitempty"`
	AmountMinor int64     `json:"amountMinor,omitempty"`
	At          time.Time `json:"at"`
}

// Relay delivers lifecycle events out of band.
type Relay interface {
	Publish(ctx context.Context, ev Event)
}

// RedisRelay publishes events as JSON on a Redis channel.
type RedisRelay struct {
	client  *redis.Client
	channel string
}

// NewRedisRelay connects and verifies the transport.
func NewRedisRelay(ctx context.Context, cfg config.RedisConfig) (*RedisRelay, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &RedisRelay{client: client, channel: cfg.Channel}, nil
}

// Publish never fails the caller; a lost notification is logged, not fatal.
func (r *RedisRelay) Publish(ctx context.Context, ev Event) {
	if ev.At.IsZero() {
		ev.At = utils.NowUTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		utils.LogEvent("", "notify", "publish", "marshal failed: "+err.Error())
		return
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		utils.LogEvent("", "notify", "publish", "publish failed: "+err.Error())
	}
}

// Close releases the underlying client.
func (r *RedisRelay) Close() error {
	return r.client.Close()
}

// NopRelay logs events instead of delivering them. Installed when Redis is
// not configured.
type NopRelay struct{}

func (NopRelay) Publish(_ context.Context, ev Event) {
	utils.LogEvent("", "notify", string(ev.Type), "relay disabled, event dropped")
}
