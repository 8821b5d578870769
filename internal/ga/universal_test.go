package ga

import (
	"testing"

	"github.com/segment-boneyard/integration-google-analytics/internal/event"
)

func TestUniversalPage(t *testing.T) {
	msg := &event.Message{
		Type:     event.TypePage,
		UserID:   "user-1234",
		Category: "Docs",
		Name:     "Home",
		Properties: map[string]any{
			"url": "https://example.com/docs/home?ref=nav",
		},
	}
	msg.Context.Page.Referrer = "https://google.com"

	form := universalPage(msg, testSettings(), testNow)

	want := map[string]string{
		"t":  "pageview",
		"dt": "Docs Home",
		"dh": "example.com",
		"dp": "/docs/home?ref=nav",
		"dr": "https://google.com",
	}
	for key, value := range want {
		if form[key] != value {
			t.Errorf("%s = %q, want %q", key, form[key], value)
		}
	}
}

func TestUniversalPage_NoURL(t *testing.T) {
	msg := &event.Message{Type: event.TypePage, UserID: "user-1234", Name: "Home"}

	form := universalPage(msg, testSettings(), testNow)
	for _, key := range []string{"dh", "dp", "dr"} {
		if v, ok := form[key]; ok {
			t.Errorf("%s = %q, want it absent without a page URL", key, v)
		}
	}
	if form["dt"] != "Home" {
		t.Errorf("dt = %q, want %q", form["dt"], "Home")
	}
}

func TestUniversalScreen(t *testing.T) {
	msg := &event.Message{Type: event.TypeScreen, UserID: "user-1234", Name: "Checkout"}

	form := universalScreen(msg, testSettings(), testNow)
	if form["t"] != "screenview" {
		t.Errorf("t = %q, want %q", form["t"], "screenview")
	}
	if form["cd"] != "Checkout" {
		t.Errorf("cd = %q, want %q", form["cd"], "Checkout")
	}
}

func TestUniversalTrack(t *testing.T) {
	msg := &event.Message{
		Type:   event.TypeTrack,
		UserID: "user-1234",
		Event:  "Played Song",
		Properties: map[string]any{
			"category": "Music",
			"label":    "Bohemian Rhapsody",
			"value":    7.6,
		},
	}

	form := universalTrack(msg, testSettings(), testNow)

	want := map[string]string{
		"t":  "event",
		"ea": "Played Song",
		"ec": "Music",
		"el": "Bohemian Rhapsody",
		"ev": "8",
	}
	for key, value := range want {
		if form[key] != value {
			t.Errorf("%s = %q, want %q", key, form[key], value)
		}
	}
	if v, ok := form["ni"]; ok {
		t.Errorf("ni = %q, want it absent for an interactive event", v)
	}
}

func TestUniversalTrack_Defaults(t *testing.T) {
	msg := &event.Message{Type: event.TypeTrack, UserID: "user-1234", Event: "Signed Up"}

	form := universalTrack(msg, testSettings(), testNow)
	if form["ec"] != "All" {
		t.Errorf("ec = %q, want %q", form["ec"], "All")
	}
	if form["el"] != "event" {
		t.Errorf("el = %q, want %q", form["el"], "event")
	}
	if form["ev"] != "0" {
		t.Errorf("ev = %q, want %q", form["ev"], "0")
	}
}

func TestEventValue(t *testing.T) {
	tests := []struct {
		name       string
		properties map[string]any
		want       int64
	}{
		{name: "no value", properties: nil, want: 0},
		{name: "value", properties: map[string]any{"value": 24.6}, want: 25},
		{name: "revenue fallback", properties: map[string]any{"revenue": 12.2}, want: 12},
		{name: "value beats revenue", properties: map[string]any{"value": 3.0, "revenue": 12.2}, want: 3},
		{name: "zero value falls through to revenue", properties: map[string]any{"value": float64(0), "revenue": 12.2}, want: 12},
		{name: "currency string revenue", properties: map[string]any{"revenue": "$24.75"}, want: 25},
		{name: "negative half rounds toward zero", properties: map[string]any{"value": -2.5}, want: -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &event.Message{Type: event.TypeTrack, Event: "e", Properties: tt.properties}
			if got := eventValue(msg); got != tt.want {
				t.Errorf("eventValue() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestUniversalTrack_NonInteraction(t *testing.T) {
	tests := []struct {
		name       string
		properties map[string]any
		settings   Settings
		wantNI     bool
	}{
		{
			name:       "property flag",
			properties: map[string]any{"nonInteraction": true},
			settings:   testSettings(),
			wantNI:     true,
		},
		{
			name:       "numeric property flag",
			properties: map[string]any{"nonInteraction": float64(1)},
			settings:   testSettings(),
			wantNI:     true,
		},
		{
			name:     "settings flag",
			settings: Settings{ServersideTrackingID: "UA-12345-1", NonInteraction: true},
			wantNI:   true,
		},
		{
			name:     "neither",
			settings: testSettings(),
			wantNI:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &event.Message{Type: event.TypeTrack, Event: "e", Properties: tt.properties}
			form := universalTrack(msg, tt.settings, testNow)
			if _, ok := form["ni"]; ok != tt.wantNI {
				t.Errorf("ni present = %v, want %v", ok, tt.wantNI)
			}
		})
	}
}

func orderMessage() *event.Message {
	return &event.Message{
		Type:   event.TypeTrack,
		UserID: "user-1234",
		Event:  "Order Completed",
		Properties: map[string]any{
			"orderId":     "order-556",
			"affiliation": "Store",
			"total":       float64(30),
			"revenue":     float64(25),
			"shipping":    float64(3),
			"tax":         float64(2),
			"currency":    "EUR",
			"products": []any{
				map[string]any{
					"sku":      "G-32",
					"name":     "Monopoly",
					"category": "Games",
					"price":    18.99,
					"quantity": float64(2),
				},
				map[string]any{
					"sku":   "F-09",
					"name":  "Uno",
					"price": 4.99,
				},
			},
		},
	}
}

func TestUniversalOrderCompleted(t *testing.T) {
	payloads := universalOrderCompleted(orderMessage(), testSettings(), testNow)

	if len(payloads) != 4 {
		t.Fatalf("len(payloads) = %d, want 4 (event, transaction, two items)", len(payloads))
	}

	evt := payloads[0]
	if evt["t"] != "event" || evt["ea"] != "Order Completed" {
		t.Errorf("payload[0] = %v, want the generic event hit", evt)
	}
	if evt["ev"] != "25" {
		t.Errorf("ev = %q, want the rounded revenue", evt["ev"])
	}

	txn := payloads[1]
	wantTxn := map[string]string{
		"t":  "transaction",
		"ti": "order-556",
		"ta": "Store",
		"tr": "25",
		"ts": "3",
		"tt": "2",
		"cu": "EUR",
	}
	for key, value := range wantTxn {
		if txn[key] != value {
			t.Errorf("transaction %s = %q, want %q", key, txn[key], value)
		}
	}

	item := payloads[2]
	wantItem := map[string]string{
		"t":  "item",
		"ti": "order-556",
		"cu": "EUR",
		"ic": "G-32",
		"in": "Monopoly",
		"iv": "Games",
		"ip": "18.99",
		"iq": "2",
	}
	for key, value := range wantItem {
		if item[key] != value {
			t.Errorf("item %s = %q, want %q", key, item[key], value)
		}
	}

	if payloads[3]["iq"] != "1" {
		t.Errorf("second item iq = %q, want the default quantity 1", payloads[3]["iq"])
	}
	if payloads[3]["ic"] != "F-09" {
		t.Errorf("second item ic = %q, want %q", payloads[3]["ic"], "F-09")
	}
}

func TestUniversalOrderCompleted_NoProducts(t *testing.T) {
	msg := &event.Message{
		Type:       event.TypeTrack,
		UserID:     "user-1234",
		Event:      "Order Completed",
		Properties: map[string]any{"orderId": "order-1", "total": float64(10)},
	}

	payloads := universalOrderCompleted(msg, testSettings(), testNow)
	if len(payloads) != 2 {
		t.Fatalf("len(payloads) = %d, want event + transaction only", len(payloads))
	}
	if payloads[1]["tr"] != "10" {
		t.Errorf("tr = %q, want the total fallback", payloads[1]["tr"])
	}
}

func TestMobileCampaignEvent(t *testing.T) {
	msg := &event.Message{
		Type:   event.TypeTrack,
		UserID: "user-1234",
		Event:  "Install Attributed",
		Properties: map[string]any{
			"campaign": map[string]any{
				"name":    "fall-launch",
				"source":  "adwords",
				"medium":  "cpm",
				"content": "ad-2",
			},
		},
	}
	msg.Context.Campaign.Name = "context-campaign"

	form := mobileCampaignEvent(msg, testSettings(), testNow)

	if form["cn"] != "fall-launch" {
		t.Errorf("cn = %q, want properties.campaign to win for mobile events", form["cn"])
	}
	if form["cs"] != "adwords" || form["cm"] != "cpm" || form["cc"] != "ad-2" {
		t.Errorf("campaign fields = cs:%q cm:%q cc:%q", form["cs"], form["cm"], form["cc"])
	}
	if form["ec"] != "All" || form["el"] != "event" || form["t"] != "event" {
		t.Errorf("envelope = ec:%q el:%q t:%q", form["ec"], form["el"], form["t"])
	}
}

func TestMobileCampaignEvent_ActionLabel(t *testing.T) {
	msg := &event.Message{
		Type:       event.TypeTrack,
		UserID:     "user-1234",
		Event:      "Push Notification Tapped",
		Properties: map[string]any{"action": "open_deal"},
	}

	form := mobileCampaignEvent(msg, testSettings(), testNow)
	if form["el"] != "open_deal" {
		t.Errorf("el = %q, want the notification action", form["el"])
	}
}
