package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prepnest/billing/internal/app/service/webhook"
	"github.com/prepnest/billing/pkg/response"
)

const razorpaySignatureHeader = "X-Razorpay-Signature"

// @Summary      Gateway Webhook
// @Description  Handles payment gateway webhook deliveries. The raw body is authenticated via the X-Razorpay-Signature HMAC header.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Param        payload body string true "Gateway event payload"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/billing/webhook [post]
func ApiGatewayWebhook(svc *webhook.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "unreadable body"))
			return
		}

		var traceID string
		if v, ok := c.Get("traceID"); ok {
			if s, ok2 := v.(string); ok2 {
				traceID = s
			}
		}

		err = svc.HandleDelivery(c.Request.Context(), body, c.GetHeader(razorpaySignatureHeader), traceID)
		if err != nil {
			if errors.Is(err, webhook.ErrInvalidWebhookSignature) {
				// 401 so the gateway records the delivery as rejected
				// instead of retrying a forged payload forever.
				c.JSON(http.StatusUnauthorized, response.ErrorT[any](response.APIResponseCodeUnauthorized, err.Error()))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

func RegisterWebhookRoutes(r gin.IRouter, svc *webhook.Service) {
	r.POST("/webhook", ApiGatewayWebhook(svc))
}
