package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dp287517/electrohub-assistant/pkg/provider"
)

// quotaErrorCodes are Chat Completions error codes that indicate a usage
// limit rather than a momentary rate spike. Both map to KindQuota; the
// distinction only matters upstream of this gateway.
var quotaErrorCodes = map[string]bool{
	"insufficient_quota":  true,
	"quota_exceeded":      true,
	"rate_limit_exceeded": true,
}

// MapHTTPError converts a non-2xx response into a classified provider
// error. Classification uses the status code and the backend's error code
// field only, never the error message text.
func MapHTTPError(providerName string, resp *http.Response) *provider.Error {
	chatErr := extractError(resp.Body)

	kind := provider.KindFatal
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		kind = provider.KindQuota
	case quotaErrorCodes[chatErr.Code]:
		kind = provider.KindQuota
	case resp.StatusCode == http.StatusRequestTimeout:
		kind = provider.KindTransient
	case resp.StatusCode >= http.StatusInternalServerError:
		kind = provider.KindTransient
	}

	message := chatErr.Message
	if message == "" {
		message = fmt.Sprintf("backend returned HTTP %d", resp.StatusCode)
	}

	return &provider.Error{
		Kind:     kind,
		Provider: providerName,
		Status:   resp.StatusCode,
		Message:  message,
	}
}

// MapNetworkError converts a transport-level failure (connection refused,
// reset, timeout, DNS) into a classified provider error. Context
// cancellation stays fatal so a cancelled request is never retried.
func MapNetworkError(providerName string, err error) *provider.Error {
	kind := provider.KindTransient
	if errors.Is(err, context.Canceled) {
		kind = provider.KindFatal
	}
	return &provider.Error{
		Kind:     kind,
		Provider: providerName,
		Message:  "backend connection error: " + err.Error(),
	}
}

// extractError tries to parse the response body as a ChatErrorResponse.
func extractError(body io.Reader) ChatError {
	if body == nil {
		return ChatError{}
	}

	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ChatError{}
	}

	var errResp ChatErrorResponse
	if err := json.Unmarshal(data, &errResp); err != nil {
		return ChatError{}
	}
	return errResp.Error
}
