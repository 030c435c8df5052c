package controller

import (
	"errors"

	"github.com/erazemk/msds/internal/api"
	"github.com/erazemk/msds/internal/model"
)

// User-facing messages.
const (
	MsgMissingCredentials = "Please provide a Username and Password"
	MsgInvalidCredentials = "Invalid Credentials"
	MsgNotAuthenticated   = "Please log in first"
	MsgSessionEnded       = "Session Ended"
	MsgRequestSent        = "Request Sent Successfully"
	MsgRequestFailed      = "Error submitting request"
	MsgInvalidRequest     = "Please choose an item and a quantity"
	MsgNetworkError       = "Network error, please try again"
	MsgMalformedResponse  = "The server sent an unexpected response"
)

// Message returns the text a front end shows for err. It returns "" for nil.
func Message(err error) string {
	var apiErr *api.Error
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingCredentials):
		return MsgMissingCredentials
	case errors.Is(err, ErrInvalidCredentials):
		return MsgInvalidCredentials
	case errors.Is(err, ErrNotAuthenticated):
		return MsgNotAuthenticated
	case errors.Is(err, ErrSessionRevoked):
		return MsgSessionEnded
	case errors.Is(err, ErrInvalidRequest):
		return MsgInvalidRequest
	case errors.As(err, &apiErr) && apiErr.Kind == api.KindApplication && apiErr.Endpoint == model.EndpointNewRequest:
		return MsgRequestFailed
	case errors.Is(err, api.ErrDecode):
		return MsgMalformedResponse
	case errors.Is(err, api.ErrTransport):
		return MsgNetworkError
	default:
		return err.Error()
	}
}

// NeedsLogin reports whether err means the user must log in again.
func NeedsLogin(err error) bool {
	return errors.Is(err, ErrNotAuthenticated) || errors.Is(err, ErrSessionRevoked)
}
