package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prepnest/billing/internal/app/service/refund"
	"github.com/prepnest/billing/internal/app/service/transaction"
	"github.com/prepnest/billing/internal/platform/razorpay"
	"github.com/prepnest/billing/pkg/response"
)

type createRefundRequest struct {
	PaymentID string  `json:"payment_id" binding:"required"`
	Amount    float64 `json:"amount" binding:"required"`
	Reason    string  `json:"reason"`
}

// @Summary      Create Refund (Admin)
// @Description  Refunds part or all of a settled payment. Cumulative refunds may never exceed the captured amount.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body createRefundRequest true "Refund request"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/refunds [post]
func ApiCreateRefund(svc *refund.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createRefundRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.Refund(c.Request.Context(), req.PaymentID, req.Amount, req.Reason)
		if err != nil {
			if errors.Is(err, refund.ErrPaymentNotFound) ||
				errors.Is(err, refund.ErrRefundExceedsPayment) ||
				errors.Is(err, refund.ErrInvalidRefundAmount) {
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
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Scan Transactions (Admin)
// @Description  Paginated, filterable listing of payment transactions.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body transaction.ScanTransactionsRequest true "Scan request with filters, pagination, and sorting"
// @Success      200  {object}  handlers.RespScanTransactions
// @Router       /api/v1/admin/transactions/scan [post]
func ApiScanTransactions(svc *transaction.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req transaction.ScanTransactionsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.ScanTransactions(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

func RegisterAdminRoutes(r gin.IRouter, refundSvc *refund.Service, txSvc *transaction.Service) {
	r.POST("/refunds", ApiCreateRefund(refundSvc))
	r.POST("/transactions/scan", ApiScanTransactions(txSvc))
}
