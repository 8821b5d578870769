// Package event provides the normalized, read-only view of an inbound
// analytics message. Encoders never touch raw JSON directly; they go through
// the typed accessors on Message, which encode every lookup fallback chain
// (value before revenue, properties.url before context.page.url, and so on)
// in one place.
package event

import (
	"encoding/json"
	"time"
)

// Type discriminates the message kinds of the vendor-neutral event model.
type Type string

// Message kinds.
const (
	TypeIdentify Type = "identify"
	TypeTrack    Type = "track"
	TypePage     Type = "page"
	TypeScreen   Type = "screen"
	TypeGroup    Type = "group"
	TypeAlias    Type = "alias"
)

// Message is a single normalized analytics message. It is immutable once
// constructed; accessors return copies or scalars, never internal references
// that would let callers mutate shared state.
type Message struct {
	Type Type `json:"type"`

	// MessageID uniquely identifies the message for deduplication.
	MessageID string `json:"messageId,omitempty"`

	// Identity fields.
	UserID      string `json:"userId,omitempty"`
	AnonymousID string `json:"anonymousId,omitempty"`
	GroupID     string `json:"groupId,omitempty"`

	// Event is the event name for track messages ("Order Completed", ...).
	Event string `json:"event,omitempty"`

	// Name is the page or screen name.
	Name string `json:"name,omitempty"`

	// Category is the page category.
	Category string `json:"category,omitempty"`

	Properties map[string]any `json:"properties,omitempty"`
	Traits     map[string]any `json:"traits,omitempty"`

	Context Context `json:"context,omitempty"`

	// Integrations carries per-destination options keyed by destination
	// name ("Google Analytics" -> {clientId: ...}).
	Integrations map[string]map[string]any `json:"integrations,omitempty"`

	// Timestamp is when the event occurred on the client. Zero means the
	// producer did not supply one.
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// Context is the standard context tree attached to every message.
type Context struct {
	Campaign  Campaign `json:"campaign,omitzero"`
	App       App      `json:"app,omitzero"`
	Screen    Screen   `json:"screen,omitzero"`
	Page      Page     `json:"page,omitzero"`
	Device    Device   `json:"device,omitzero"`
	OS        OS       `json:"os,omitzero"`
	Library   Library  `json:"library,omitzero"`
	Locale    string   `json:"locale,omitempty"`
	IP        string   `json:"ip,omitempty"`
	UserAgent string   `json:"userAgent,omitempty"`
}

// Campaign holds attribution fields.
type Campaign struct {
	Name    string `json:"name,omitempty"`
	Source  string `json:"source,omitempty"`
	Medium  string `json:"medium,omitempty"`
	Keyword string `json:"keyword,omitempty"`
	Content string `json:"content,omitempty"`
}

// App describes the producing application.
type App struct {
	Name           string `json:"name,omitempty"`
	Version        string `json:"version,omitempty"`
	AppID          string `json:"appId,omitempty"`
	AppInstallerID string `json:"appInstallerId,omitempty"`
}

// Screen describes the device screen.
type Screen struct {
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Name   string `json:"name,omitempty"`
}

// Page describes the page the event was generated on.
type Page struct {
	URL      string `json:"url,omitempty"`
	Title    string `json:"title,omitempty"`
	Referrer string `json:"referrer,omitempty"`
}

// Device describes the physical device.
type Device struct {
	Model        string `json:"model,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
}

// OS describes the operating system.
type OS struct {
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
}

// Library identifies the producing SDK.
type Library struct {
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
}

// Decode parses a JSON-encoded message.
func Decode(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Encode serializes the message to JSON for transport.
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}
