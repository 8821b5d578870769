package ga

import "errors"

// ErrMissingTrackingID is returned when a settings object carries neither a
// server-side nor a mobile tracking id. Validation happens before any
// encoding is attempted so the mapping core never sees unusable settings.
var ErrMissingTrackingID = errors.New("ga: either serversideTrackingId or mobileTrackingId is required")

// Settings is the per-destination configuration supplied by the control
// plane. It is read-only; one Settings value configures one Mapper.
type Settings struct {
	// ServersideTrackingID is the web property id hits are attributed to.
	ServersideTrackingID string `json:"serversideTrackingId"`

	// MobileTrackingID, when set, receives hits originating from mobile
	// SDKs instead of ServersideTrackingID.
	MobileTrackingID string `json:"mobileTrackingId"`

	// ServersideClassic selects the classic GIF-beacon dialect instead of
	// the universal measurement protocol.
	ServersideClassic bool `json:"serversideClassic"`

	// EnhancedEcommerce enables the enhanced e-commerce encoders
	// (universal dialect only).
	EnhancedEcommerce bool `json:"enhancedEcommerce"`

	// SendUserID forwards the user id as the uid field when present.
	SendUserID bool `json:"sendUserId"`

	// NonInteraction marks every event hit as non-interactive unless the
	// event itself says otherwise.
	NonInteraction bool `json:"nonInteraction"`

	// Domain is the site domain reported on classic hits.
	Domain string `json:"domain"`

	// Dimensions maps property/trait names to custom dimension slots
	// ("referrer" -> "dimension3").
	Dimensions map[string]string `json:"dimensions"`

	// Metrics maps property/trait names to custom metric slots
	// ("loadTime" -> "metric1").
	Metrics map[string]string `json:"metrics"`
}

// Validate checks that the settings can address a web property at all.
// Malformed dimension/metric tables are not an error; unusable entries are
// ignored at encoding time.
func (s Settings) Validate() error {
	if s.ServersideTrackingID == "" && s.MobileTrackingID == "" {
		return ErrMissingTrackingID
	}
	return nil
}
