// Package sentry provides data scrubbing utilities for Sentry events
// to ensure listener network identities are not transmitted to the error
// tracking service.
package sentry

import (
	"github.com/getsentry/sentry-go"
)

// sensitiveHeaders are HTTP headers that should be redacted from Sentry events.
// The forwarding headers carry listener IPs, which double as presence origin keys.
var sensitiveHeaders = map[string]bool{
	"Authorization":    true,
	"Cookie":           true,
	"Set-Cookie":       true,
	"X-Forwarded-For":  true,
	"X-Real-IP":        true,
	"CF-Connecting-IP": true,
	"X-API-Key":        true,
}

// sensitiveKeys are field names that may contain listener identities or
// credentials in tags or breadcrumb metadata.
var sensitiveKeys = map[string]bool{
	"ip":        true,
	"origin":    true,
	"client_ip": true,
	"api_key":   true,
	"token":     true,
	"secret":    true,
}

// ScrubEvent removes sensitive data from a Sentry event before it is sent.
// It redacts sensitive headers, clears the client address, and scrubs tags
// and breadcrumbs.
func ScrubEvent(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
	if event.Request != nil {
		for header := range event.Request.Headers {
			if sensitiveHeaders[header] {
				event.Request.Headers[header] = "[Filtered]"
			}
		}
		// Query strings may contain free-text chart searches
		event.Request.QueryString = ""
	}

	// The SDK fills this from the socket address
	event.User.IPAddress = ""

	for key := range event.Tags {
		if sensitiveKeys[key] {
			event.Tags[key] = "[Filtered]"
		}
	}

	for i := range event.Breadcrumbs {
		for key := range event.Breadcrumbs[i].Data {
			if sensitiveKeys[key] {
				event.Breadcrumbs[i].Data[key] = "[Filtered]"
			}
		}
	}

	return event
}
