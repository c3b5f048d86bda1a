package review

import (
	"errors"
	"net/http"

	"github.com/reviewlink/reviewlink/places"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrResolutionFailed = errors.New("resolution failed")
	ErrNotFound         = errors.New("business not found")
	ErrUpstream         = errors.New("upstream failure")
)

const (
	MsgInvalidInput     = "Invalid input. Please provide a valid Google Maps link or Place ID."
	MsgResolutionFailed = "Could not extract business information from this link. Try a different link format or paste the Place ID directly."
	MsgNotFound         = "Business not found. The Place ID may be invalid."
	MsgUpstream         = "Failed to fetch business details. Please try again."
)

// Response is the body returned to callers of the resolve and look up
// operation. Error is only set when Success is false.
type Response struct {
	Success bool                 `json:"success"`
	Data    *places.BusinessInfo `json:"data,omitempty"`
	Error   string               `json:"error,omitempty"`
}

func Respond(info *places.BusinessInfo, err error) Response {
	if err != nil {
		return Response{Error: Message(err)}
	}

	if info == nil {
		return Response{Error: MsgNotFound}
	}

	return Response{Success: true, Data: info}
}

// Message returns the user facing text for err. Anything outside the
// taxonomy is reported as an upstream failure so that internal details never
// reach the client.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return MsgInvalidInput
	case errors.Is(err, ErrResolutionFailed):
		return MsgResolutionFailed
	case errors.Is(err, ErrNotFound):
		return MsgNotFound
	default:
		return MsgUpstream
	}
}

func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrResolutionFailed):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
