package webhook

import (
	"encoding/json"
	"fmt"
)

// Gateway event names this service reacts to. Everything else is
// logged and acknowledged so the gateway stops redelivering.
const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
	EventRefundProcessed = "refund.processed"
)

// Event is the envelope the gateway posts. Only the payment entity is
// extracted; the full body is preserved in the webhook log.
type Event struct {
	Name    string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				Amount           int64  `json:"amount"`
				Method           string `json:"method"`
				ErrorDescription string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
		Refund struct {
			Entity struct {
				ID        string `json:"id"`
				PaymentID string `json:"payment_id"`
				Amount    int64  `json:"amount"`
			} `json:"entity"`
		} `json:"refund"`
	} `json:"payload"`
	CreatedAt int64 `json:"created_at"`
}

func parseEvent(body []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("malformed webhook body: %w", err)
	}
	if ev.Name == "" {
		return nil, fmt.Errorf("webhook body has no event name")
	}
	return &ev, nil
}
