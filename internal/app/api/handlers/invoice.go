package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prepnest/billing/internal/app/service/invoice"
	"github.com/prepnest/billing/pkg/response"
	"github.com/prepnest/billing/pkg/types"
)

// @Summary      Get Invoice
// @Description  Returns the invoice issued for a subscription. Pass mark_downloaded=true to advance the invoice to Downloaded.
// @Tags         Billing
// @Produce      json
// @Param        subscription_id path string true "Subscription ID"
// @Param        mark_downloaded query bool false "Record that the customer fetched the invoice"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/invoices/{subscription_id} [get]
func ApiGetInvoice(svc *invoice.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		inv, err := svc.GetBySubscription(c.Request.Context(), c.Param("subscription_id"))
		if err != nil {
			if errors.Is(err, invoice.ErrInvoiceNotFound) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		if c.Query("mark_downloaded") == "true" {
			if err := svc.MarkDownloaded(c.Request.Context(), inv.ID); err == nil {
				inv.Status = types.InvoiceStatusDownloaded
			}
		}
		c.JSON(http.StatusOK, response.OKT(inv))
	}
}

func RegisterInvoiceRoutes(r gin.IRouter, svc *invoice.Service) {
	r.GET("/invoices/:subscription_id", ApiGetInvoice(svc))
}
