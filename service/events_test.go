package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnnouncerWithoutConnectionIsSilent(t *testing.T) {
	a := NewAnnouncer("sample", nil, nil)
	assert.NotPanics(t, func() {
		a.Announce(EventPublished, "sample.Greeter", []string{"GreeterService"})
	})
}

func TestEventSerialization(t *testing.T) {
	e := Event{
		Timestamp: "2026-08-30T12:00:00Z",
		Unit:      "sample",
		Component: "sample.Greeter",
		Type:      EventPublished,
		Types:     []string{"GreeterService"},
	}
	data, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"timestamp": "2026-08-30T12:00:00Z",
		"unit": "sample",
		"component": "sample.Greeter",
		"type": "published",
		"types": ["GreeterService"]
	}`, string(data))

	// Types is omitted on satisfaction events.
	data, err = json.Marshal(Event{
		Timestamp: "2026-08-30T12:00:00Z",
		Unit:      "sample",
		Component: "sample.Greeter",
		Type:      EventSatisfied,
	})
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"types"`)
}
