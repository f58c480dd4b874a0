// Package httpapi exposes the gateway over a JSON REST API built on gin.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/gmail/v1"

	"github.com/hal9000y/gapi-gateway/internal/email"
	"github.com/hal9000y/gapi-gateway/internal/event"
	"github.com/hal9000y/gapi-gateway/internal/gateway"
)

type mailer interface {
	ListEmails(ctx context.Context, label string) (gateway.EmailList, error)
	Reply(ctx context.Context, req email.ReplyRequest) (*gmail.Message, error)
	Send(ctx context.Context, req email.SendRequest) (*gmail.Message, error)
}

type scheduler interface {
	ListToday(ctx context.Context) (gateway.EventList, error)
	Create(ctx context.Context, req event.CreateRequest) (event.Created, error)
	Update(ctx context.Context, eventID string, req event.UpdateRequest) (*calendar.Event, error)
}

type observer interface {
	ObserveHTTP(method, route string, status int, d time.Duration)
}

// Options tunes the router.
type Options struct {
	// CORSOrigins enables CORS for the listed origins; "*" allows any.
	CORSOrigins []string
	Now         func() time.Time
}

// NewRouter wires middleware and routes. obs may be nil.
func NewRouter(mail mailer, cal scheduler, obs observer, log *zap.Logger, opts Options) *gin.Engine {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(
		requestID(),
		accessLog(log),
		gin.CustomRecovery(func(c *gin.Context, rec any) {
			log.Error("panic recovered", zap.Any("panic", rec), zap.String("request_id", c.GetString(requestIDKey)))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "internal server error"})
		}),
	)
	if obs != nil {
		router.Use(observe(obs))
	}
	if len(opts.CORSOrigins) > 0 {
		router.Use(corsMiddleware(opts.CORSOrigins))
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not Found"})
	})
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"detail": "Method Not Allowed"})
	})

	h := &handler{mail: mail, cal: cal, log: log, now: now}

	router.GET("/health", h.health)

	emails := router.Group("/emails")
	{
		emails.GET("", h.listEmails)
		emails.POST("/reply", h.reply)
		emails.POST("/send", h.send)
	}

	events := router.Group("/calendar/events")
	{
		events.GET("", h.listEvents)
		events.POST("", h.createEvent)
		events.PUT("/:event_id", h.updateEvent)
	}

	return router
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
		ExposeHeaders: []string{"Content-Length", requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 1 && origins[0] == "*" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}

	return cors.New(cfg)
}
