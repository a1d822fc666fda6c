package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEvent_Capture(t *testing.T) {
	body := []byte(`{
		"event": "payment.captured",
		"payload": {
			"payment": {
				"entity": {
					"id": "pay_abc123",
					"order_id": "order_xyz789",
					"amount": 149900,
					"method": "upi"
				}
			}
		},
		"created_at": 1756300000
	}`)

	ev, err := parseEvent(body)
	require.NoError(t, err)
	assert.Equal(t, EventPaymentCaptured, ev.Name)
	assert.Equal(t, "pay_abc123", ev.Payload.Payment.Entity.ID)
	assert.Equal(t, "order_xyz789", ev.Payload.Payment.Entity.OrderID)
	assert.Equal(t, int64(149900), ev.Payload.Payment.Entity.Amount)
}

func TestParseEvent_Failure(t *testing.T) {
	body := []byte(`{
		"event": "payment.failed",
		"payload": {
			"payment": {
				"entity": {
					"id": "pay_abc123",
					"order_id": "order_xyz789",
					"error_description": "Payment declined by issuing bank"
				}
			}
		}
	}`)

	ev, err := parseEvent(body)
	require.NoError(t, err)
	assert.Equal(t, EventPaymentFailed, ev.Name)
	assert.Equal(t, "Payment declined by issuing bank", ev.Payload.Payment.Entity.ErrorDescription)
}

func TestParseEvent_Malformed(t *testing.T) {
	_, err := parseEvent([]byte(`{not json`))
	assert.Error(t, err)
}

func TestParseEvent_MissingEventName(t *testing.T) {
	_, err := parseEvent([]byte(`{"payload": {}}`))
	assert.Error(t, err)
}
