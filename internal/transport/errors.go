package transport

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/eshaffer321/tablebook-go/internal/types"
)

// handleHTTPError maps a non-2xx response onto the error taxonomy
func handleHTTPError(statusCode int, body []byte) error {
	detail := extractDetail(body)

	// Map status codes to errors
	switch statusCode {
	case http.StatusUnauthorized:
		return &types.Error{
			Code:       "UNAUTHORIZED",
			Message:    types.ErrNotAuthenticated.Error(),
			StatusCode: statusCode,
			Detail:     detail,
			Err:        types.ErrNotAuthenticated,
		}
	case http.StatusForbidden:
		return &types.Error{
			Code:       "FORBIDDEN",
			Message:    types.ErrForbidden.Error(),
			StatusCode: statusCode,
			Detail:     detail,
			Err:        types.ErrForbidden,
		}
	case http.StatusNotFound:
		return &types.Error{
			Code:       "NOT_FOUND",
			Message:    types.ErrNotFound.Error(),
			StatusCode: statusCode,
			Detail:     detail,
			Err:        types.ErrNotFound,
		}
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return &types.Error{
			Code:       "VALIDATION_ERROR",
			Message:    types.ErrValidation.Error(),
			StatusCode: statusCode,
			Detail:     detail,
			Err:        types.ErrValidation,
		}
	case http.StatusTooManyRequests:
		return &types.Error{
			Code:       "RATE_LIMITED",
			Message:    types.ErrRateLimited.Error(),
			StatusCode: statusCode,
			Detail:     detail,
			Err:        types.ErrRateLimited,
		}
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return &types.Error{
			Code:       "TIMEOUT",
			Message:    types.ErrTimeout.Error(),
			StatusCode: statusCode,
			Detail:     detail,
			Err:        types.ErrTimeout,
		}
	default:
		if statusCode >= 500 {
			// Create base message with status code and description
			baseMsg := fmt.Sprintf("server error: %d", statusCode)
			if desc := httpStatusDescription(statusCode); desc != "" {
				baseMsg = fmt.Sprintf("server error: %d (%s)", statusCode, desc)
			}

			return &types.Error{
				Code:       "SERVER_ERROR",
				Message:    baseMsg,
				StatusCode: statusCode,
				Detail:     detail,
				Err:        types.ErrServerError,
			}
		}
		return &types.Error{
			Code:       "HTTP_ERROR",
			Message:    fmt.Sprintf("HTTP error: %d", statusCode),
			StatusCode: statusCode,
			Detail:     detail,
		}
	}
}

// extractDetail pulls a human-readable message out of an error body.
// FastAPI sends {"detail": "..."} or, for 422, {"detail": [{"loc": [...], "msg": "..."}]}.
func extractDetail(body []byte) string {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return ""
	}

	detail := gjson.GetBytes(body, "detail")
	if detail.IsArray() {
		var parts []string
		detail.ForEach(func(_, item gjson.Result) bool {
			msg := item.Get("msg").String()
			if msg == "" {
				msg = item.String()
			}
			loc := item.Get("loc")
			if loc.IsArray() {
				locs := loc.Array()
				if len(locs) > 0 {
					msg = locs[len(locs)-1].String() + ": " + msg
				}
			}
			parts = append(parts, msg)
			return true
		})
		return strings.Join(parts, "; ")
	}
	if detail.Exists() {
		return detail.String()
	}

	for _, key := range []string{"message", "error"} {
		if v := gjson.GetBytes(body, key); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

// httpStatusDescription returns a human-readable description for common HTTP status codes.
// This helps users understand errors like 525 (SSL Handshake Failed) which are Cloudflare-specific.
func httpStatusDescription(statusCode int) string {
	descriptions := map[int]string{
		500: "Internal Server Error",
		501: "Not Implemented",
		502: "Bad Gateway",
		503: "Service Unavailable",
		504: "Gateway Timeout",
		520: "Web Server Error",
		521: "Web Server Is Down",
		522: "Connection Timed Out",
		523: "Origin Is Unreachable",
		524: "A Timeout Occurred",
		525: "SSL Handshake Failed",
		526: "Invalid SSL Certificate",
		530: "Origin DNS Error",
	}
	return descriptions[statusCode]
}
