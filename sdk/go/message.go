// Package analytics provides a Go SDK for sending analytics messages to the
// connector gateway.
package analytics

import (
	"runtime"
	"time"
)

// SDKVersion is the current version of the Go SDK.
const SDKVersion = "0.1.0"

// Message represents one analytics message in the vendor-neutral event
// model.
type Message struct {
	// Type is the message kind ("track", "page", "screen", "identify")
	Type string `json:"type"`

	// MessageID uniquely identifies the message for deduplication (set by SDK)
	MessageID string `json:"messageId,omitempty"`

	// UserID identifies the user the message is about
	UserID string `json:"userId,omitempty"`

	// AnonymousID identifies a user who has not been identified yet
	AnonymousID string `json:"anonymousId,omitempty"`

	// Event is the event name for track messages (e.g., "Order Completed")
	Event string `json:"event,omitempty"`

	// Name is the page or screen name
	Name string `json:"name,omitempty"`

	// Category is the page category
	Category string `json:"category,omitempty"`

	// Properties contains arbitrary event properties
	Properties map[string]any `json:"properties,omitempty"`

	// Traits contains user traits for identify messages
	Traits map[string]any `json:"traits,omitempty"`

	// Context is the standard context tree (library is set by SDK)
	Context *Context `json:"context,omitempty"`

	// Integrations carries per-destination options keyed by destination name
	Integrations map[string]map[string]any `json:"integrations,omitempty"`

	// Timestamp is when the event occurred (RFC3339 format, set by SDK if
	// not provided)
	Timestamp string `json:"timestamp,omitempty"`
}

// Context is the context tree attached to every message.
type Context struct {
	// Library identifies the producing SDK
	Library Library `json:"library"`

	// Locale is the user's locale (e.g., "en-US")
	Locale string `json:"locale,omitempty"`

	// UserAgent is the user agent of the device the message came from
	UserAgent string `json:"userAgent,omitempty"`
}

// Library identifies the producing SDK.
type Library struct {
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
}

// sdkLibrary returns the library stamp attached to outgoing messages.
func sdkLibrary() Library {
	return Library{
		Name:    "analytics-go",
		Version: SDKVersion + " " + runtime.Version(),
	}
}

// batchRequest represents the request body for the batch endpoint.
type batchRequest struct {
	Batch []Message `json:"batch"`
}

// now returns the current time in RFC3339 format.
func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
