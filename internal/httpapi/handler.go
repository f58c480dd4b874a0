package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"

	"github.com/hal9000y/gapi-gateway/internal/auth"
	"github.com/hal9000y/gapi-gateway/internal/email"
	"github.com/hal9000y/gapi-gateway/internal/event"
	"github.com/hal9000y/gapi-gateway/internal/gateway"
)

type handler struct {
	mail mailer
	cal  scheduler
	log  *zap.Logger
	now  func() time.Time
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": h.now().Format(time.RFC3339Nano),
	})
}

func (h *handler) listEmails(c *gin.Context) {
	res, err := h.mail.ListEmails(c.Request.Context(), c.Query("label"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) reply(c *gin.Context) {
	var req email.ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, &gateway.ValidationError{Err: err})
		return
	}

	res, err := h.mail.Reply(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) send(c *gin.Context) {
	var req email.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, &gateway.ValidationError{Err: err})
		return
	}

	res, err := h.mail.Send(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) listEvents(c *gin.Context) {
	res, err := h.cal.ListToday(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) createEvent(c *gin.Context) {
	var req event.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, &gateway.ValidationError{Err: err})
		return
	}

	res, err := h.cal.Create(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) updateEvent(c *gin.Context) {
	var req event.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, &gateway.ValidationError{Err: err})
		return
	}

	res, err := h.cal.Update(c.Request.Context(), c.Param("event_id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// fail maps err to a {"detail": ...} response: 422 for bad input, 500 otherwise.
func (h *handler) fail(c *gin.Context, err error) {
	_ = c.Error(err)

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		h.log.Warn("google api error",
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Int("upstream_code", gerr.Code),
			zap.String("upstream_message", gerr.Message),
		)
	}

	switch {
	case gateway.IsValidation(err):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
	case errors.Is(err, auth.ErrNoCredential):
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": credentialDetail(err)})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
	}
}

// credentialDetail trims the call-chain prefix so the message starts at the credential failure.
func credentialDetail(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, auth.ErrNoCredential.Error()); i >= 0 {
		return msg[i:]
	}
	return auth.ErrNoCredential.Error() + ": " + msg
}
