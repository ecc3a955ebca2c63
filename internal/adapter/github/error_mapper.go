package github

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/sherpai/sherpai/internal/adapter/httpclient"
)

const serviceName = "github"

// MapHTTPError maps GitHub API HTTP status codes to typed httpclient errors,
// reusing the shared retry and error handling infrastructure.
func MapHTTPError(statusCode int, body []byte) *httpclient.Error {
	message := parseErrorMessage(statusCode, body)

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &httpclient.Error{
			Type:       httpclient.ErrTypeAuthentication,
			Message:    message,
			StatusCode: statusCode,
			Retryable:  false,
			Service:    serviceName,
		}

	case http.StatusTooManyRequests:
		return &httpclient.Error{
			Type:       httpclient.ErrTypeRateLimit,
			Message:    message,
			StatusCode: statusCode,
			Retryable:  true,
			Service:    serviceName,
		}

	case http.StatusNotFound, http.StatusUnprocessableEntity:
		// 422 covers invalid positions among other validation failures.
		return &httpclient.Error{
			Type:       httpclient.ErrTypeInvalidRequest,
			Message:    message,
			StatusCode: statusCode,
			Retryable:  false,
			Service:    serviceName,
		}

	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable:
		return &httpclient.Error{
			Type:       httpclient.ErrTypeServiceUnavailable,
			Message:    message,
			StatusCode: statusCode,
			Retryable:  true,
			Service:    serviceName,
		}

	default:
		return &httpclient.Error{
			Type:       httpclient.ErrTypeUnknown,
			Message:    message,
			StatusCode: statusCode,
			Retryable:  false,
			Service:    serviceName,
		}
	}
}

// parseErrorMessage extracts a user-friendly error message from GitHub's response.
func parseErrorMessage(statusCode int, body []byte) string {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 100 {
			bodyPreview = bodyPreview[:100] + "..."
		}
		if bodyPreview == "" {
			return fmt.Sprintf("HTTP %d", statusCode)
		}
		return fmt.Sprintf("HTTP %d: %s", statusCode, bodyPreview)
	}

	if errResp.Message == "" {
		return fmt.Sprintf("HTTP %d", statusCode)
	}

	if len(errResp.Errors) > 0 {
		var details []string
		for _, e := range errResp.Errors {
			if e.Message != "" {
				details = append(details, e.Message)
			} else if e.Field != "" {
				details = append(details, fmt.Sprintf("%s: %s", e.Field, e.Code))
			}
		}
		if len(details) > 0 {
			return fmt.Sprintf("%s: %s", errResp.Message, strings.Join(details, "; "))
		}
	}

	return errResp.Message
}
