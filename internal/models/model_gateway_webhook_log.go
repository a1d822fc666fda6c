package models

import (
	"time"

	"gorm.io/datatypes"
)

type GatewayWebhookLogStatus string

const (
	GatewayWebhookLogStatusReceived     GatewayWebhookLogStatus = "received"
	GatewayWebhookLogStatusHandled      GatewayWebhookLogStatus = "handled"
	GatewayWebhookLogStatusHandleFailed GatewayWebhookLogStatus = "handle_failed"
)

// GatewayWebhookLog records every webhook delivery from the payment
// gateway, whether or not it was handled. Payload is the raw event body.
type GatewayWebhookLog struct {
	ID               string                  `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Event            string                  `gorm:"column:event;type:varchar(64);not null;index" json:"event"`
	GatewayOrderID   *string                 `gorm:"column:gateway_order_id;type:varchar(128);index" json:"gateway_order_id"`
	GatewayPaymentID *string                 `gorm:"column:gateway_payment_id;type:varchar(128)" json:"gateway_payment_id"`
	TraceID          string                  `gorm:"column:trace_id;type:varchar(128)" json:"trace_id"`
	Payload          datatypes.JSON          `gorm:"column:payload;type:jsonb" json:"payload"`
	Result           *datatypes.JSON         `gorm:"column:result;type:jsonb" json:"result"`
	Status           GatewayWebhookLogStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	CreatedAt        time.Time               `json:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
}

func (GatewayWebhookLog) TableName() string {
	return "gateway_webhook_logs"
}
