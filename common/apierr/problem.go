package apierr

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ProblemDetails is an RFC 7807 style error body.
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func statusFor(kind Kind) (int, string, string) {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound, "https://tresfinos.dev/problems/not-found", "Not Found"
	case KindInvalidInput:
		return http.StatusBadRequest, "https://tresfinos.dev/problems/invalid-input", "Invalid Input"
	case KindConflict:
		return http.StatusConflict, "https://tresfinos.dev/problems/conflict", "Conflict"
	default:
		return http.StatusInternalServerError, "https://tresfinos.dev/problems/internal", "Internal Server Error"
	}
}

// Respond writes an error as an application/problem+json response.
func Respond(c *gin.Context, err error) {
	status, typ, title := statusFor(KindOf(err))

	detail := err.Error()
	if status == http.StatusInternalServerError {
		// Internal details stay in the logs.
		detail = "unexpected server error"
	}

	c.Header("Content-Type", "application/problem+json")
	c.JSON(status, ProblemDetails{
		Type:     typ,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Request.URL.Path,
	})
}
