package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/prepnest/billing/internal/app/service/lifecycle"
	"github.com/prepnest/billing/internal/app/service/plan"
	"github.com/prepnest/billing/internal/app/service/transaction"
	"github.com/prepnest/billing/internal/platform/razorpay"
	"github.com/prepnest/billing/pkg/response"
)

type createSubscriptionRequest struct {
	UserID string `json:"user_id" binding:"required"`
	PlanID string `json:"plan_id" binding:"required"`
}

type createSubscriptionResponse struct {
	SubscriptionID string  `json:"subscription_id"`
	OrderID        string  `json:"order_id"`
	Amount         float64 `json:"amount"`
	AmountMinor    int64   `json:"amount_minor"`
	Currency       string  `json:"currency"`
	PlanName       string  `json:"plan_name"`
}

// @Summary      Create Subscription
// @Description  Creates a pending subscription and a gateway order for checkout.
// @Tags         Billing
// @Accept       json
// @Produce      json
// @Param        request body createSubscriptionRequest true "Subscription creation request"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/billing/subscriptions [post]
func ApiCreateSubscription(svc *lifecycle.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createSubscriptionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		sub, order, err := svc.CreatePendingSubscription(c.Request.Context(), req.UserID, req.PlanID)
		if err != nil {
			if errors.Is(err, plan.ErrPlanNotFound) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		out := createSubscriptionResponse{
			SubscriptionID: sub.ID,
			OrderID:        order.ID,
			Amount:         sub.FinalAmount,
			AmountMinor:    order.Amount,
			Currency:       order.Currency,
		}
		if sub.Plan != nil {
			out.PlanName = sub.Plan.Name
		}
		c.JSON(http.StatusOK, response.OKT(out))
	}
}

// @Summary      Activate Subscription
// @Description  Verifies the checkout callback signature and settles the payment. A signature mismatch is reported in the body, not as a transport error.
// @Tags         Billing
// @Accept       json
// @Produce      json
// @Param        request body lifecycle.ActivationRequest true "Checkout callback payload"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/billing/subscriptions/activate [post]
func ApiActivateSubscription(svc *lifecycle.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req lifecycle.ActivationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "missing order_id, payment_id or signature"))
			return
		}
		res, err := svc.ActivateSubscription(c.Request.Context(), &req)
		if err != nil {
			if errors.Is(err, lifecycle.ErrSubscriptionNotFound) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

type renewSubscriptionRequest struct {
	AutoRenew bool `json:"auto_renew"`
}

// @Summary      Renew Subscription
// @Description  Extends an active subscription by one plan window from the later of now and the current end date.
// @Tags         Billing
// @Accept       json
// @Produce      json
// @Param        id path string true "Subscription ID"
// @Param        request body renewSubscriptionRequest false "Renewal options"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/billing/subscriptions/{id}/renew [post]
func ApiRenewSubscription(svc *lifecycle.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req renewSubscriptionRequest
		_ = c.ShouldBindJSON(&req)
		sub, err := svc.RenewSubscription(c.Request.Context(), c.Param("id"), req.AutoRenew)
		if err != nil {
			if errors.Is(err, lifecycle.ErrSubscriptionNotFound) || errors.Is(err, lifecycle.ErrSubscriptionNotActive) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(sub))
	}
}

type cancelSubscriptionRequest struct {
	Reason string `json:"reason"`
}

// @Summary      Cancel Subscription
// @Description  Cancels a subscription locally, then best-effort cancels the gateway mandate.
// @Tags         Billing
// @Accept       json
// @Produce      json
// @Param        id path string true "Subscription ID"
// @Param        request body cancelSubscriptionRequest false "Cancellation reason"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/billing/subscriptions/{id}/cancel [post]
func ApiCancelSubscription(svc *lifecycle.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req cancelSubscriptionRequest
		_ = c.ShouldBindJSON(&req)
		sub, err := svc.CancelSubscription(c.Request.Context(), c.Param("id"), req.Reason)
		if err != nil {
			if errors.Is(err, lifecycle.ErrSubscriptionNotFound) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(sub))
	}
}

type enableAutoRenewRequest struct {
	Email string `json:"email" binding:"required"`
	Name  string `json:"name"`
}

// @Summary      Enable Auto-Renew
// @Description  Registers a recurring mandate at the gateway for the subscription.
// @Tags         Billing
// @Accept       json
// @Produce      json
// @Param        id path string true "Subscription ID"
// @Param        request body enableAutoRenewRequest true "Customer contact for the mandate"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/billing/subscriptions/{id}/auto_renew [post]
func ApiEnableAutoRenew(svc *lifecycle.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req enableAutoRenewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		sub, err := svc.EnableAutoRenew(c.Request.Context(), c.Param("id"), req.Email, req.Name)
		if err != nil {
			if errors.Is(err, lifecycle.ErrSubscriptionNotFound) || errors.Is(err, lifecycle.ErrSubscriptionNotActive) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
				return
			}
			var gwErr *razorpay.GatewayError
			if errors.As(err, &gwErr) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, gwErr.Description))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(sub))
	}
}

// @Summary      List User Transactions
// @Description  Returns a user's payment history, newest first.
// @Tags         Billing
// @Produce      json
// @Param        user_id query string true "User ID"
// @Param        limit query int false "Max rows (default 50)"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/billing/transactions [get]
func ApiListUserTransactions(svc *transaction.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("user_id")
		if userID == "" {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "missing user_id"))
			return
		}
		limit := queryInt(c, "limit", 50)
		rows, err := svc.ListUserTransactions(c.Request.Context(), userID, limit)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(rows))
	}
}

func queryInt(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func RegisterBillingRoutes(r gin.IRouter, lc *lifecycle.Service, txSvc *transaction.Service) {
	r.POST("/subscriptions", ApiCreateSubscription(lc))
	r.POST("/subscriptions/activate", ApiActivateSubscription(lc))
	r.POST("/subscriptions/:id/renew", ApiRenewSubscription(lc))
	r.POST("/subscriptions/:id/cancel", ApiCancelSubscription(lc))
	r.POST("/subscriptions/:id/auto_renew", ApiEnableAutoRenew(lc))
	r.GET("/transactions", ApiListUserTransactions(txSvc))
}
