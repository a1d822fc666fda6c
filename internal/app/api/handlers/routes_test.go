package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/prepnest/billing/internal/app/service/webhook"
	"github.com/prepnest/billing/internal/platform/razorpay"
	"github.com/prepnest/billing/pkg/config"
)

func TestApiValidateSubscription_MissingUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/v1/entitlements/validate", ApiValidateSubscription(nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/entitlements/validate", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "missing user_id")
}

func TestApiDemoEligibility_MissingCategory(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/v1/demo/eligibility", ApiDemoEligibility(nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/demo/eligibility?user_id=u1", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "missing user_id or category")
}

func TestApiActivateSubscription_MissingFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/v1/billing/subscriptions/activate", ApiActivateSubscription(nil))

	body := []byte(`{"order_id": "order_1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/subscriptions/activate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "missing order_id, payment_id or signature")
}

func TestApiCreateRefund_BindingRejectsMissingAmount(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/v1/admin/refunds", ApiCreateRefund(nil))

	body := []byte(`{"payment_id": "pay_1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/refunds", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "40000")
}

func TestApiGatewayWebhook_RejectsBadSignature(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{}
	cfg.Razorpay.WebhookSecret = "whsec_test"
	svc := webhook.NewService(cfg, nil, nil, zap.NewNop().Sugar())

	r := gin.New()
	r.POST("/api/v1/billing/webhook", ApiGatewayWebhook(svc))

	body := []byte(`{"event": "payment.captured"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/webhook", bytes.NewReader(body))
	req.Header.Set(razorpaySignatureHeader, "deadbeef")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	// Envelope code class mirrors the HTTP status.
	require.Contains(t, w.Body.String(), "40100")
}

func TestApiGatewayWebhook_MalformedBodyWithValidSignature(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{}
	cfg.Razorpay.WebhookSecret = "whsec_test"
	svc := webhook.NewService(cfg, nil, nil, zap.NewNop().Sugar())

	r := gin.New()
	r.POST("/api/v1/billing/webhook", ApiGatewayWebhook(svc))

	body := []byte(`{not json`)
	sig := razorpay.SignPayload(string(body), "whsec_test")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/webhook", bytes.NewReader(body))
	req.Header.Set(razorpaySignatureHeader, sig)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "malformed webhook body")
}
