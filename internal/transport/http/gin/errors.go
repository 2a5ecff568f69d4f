package httpgin

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kirinyoku/resortbook/internal/domain"
)

const (
	retryAfterTransient = "2"

	msgDegraded = "Saved, but the activity log or availability calendar could not be updated yet. It will catch up automatically."
)

// respondErr writes the status and message for err. Each error kind gets
// its own wording.
func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var (
		verr        *domain.ValidationError
		unavailable *domain.SlotUnavailableError
		conflict    *domain.SlotConflictError
	)

	switch {
	case errors.As(err, &verr):
		badRequest(c, fmt.Sprintf("Please check the %s field: %s.", verr.Field, verr.Reason))
	case errors.As(err, &unavailable):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error: fmt.Sprintf("Sorry, the %s slot on %s is no longer available. Please choose another date or slot.",
				unavailable.Slot, unavailable.Date),
		})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error: fmt.Sprintf("The %s slot on %s already has a confirmed booking. Cancel that booking first or pick another slot.",
				conflict.Slot, conflict.Date),
		})
	case errors.Is(err, domain.ErrValidation):
		badRequest(c, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "The requested booking or holiday does not exist."})
	case errors.Is(err, domain.ErrTransientStore):
		_ = c.Error(err)
		c.Header("Retry-After", retryAfterTransient)
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "The booking system is temporarily unavailable. Please try again in a moment.",
		})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Something went wrong. Please try again later."})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

// warning returns the text shown next to a change that committed but whose
// follow-up failed.
func warning(out domain.Outcome) string {
	if out.IsDegraded() {
		return msgDegraded
	}
	return ""
}
