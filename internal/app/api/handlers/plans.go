package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prepnest/billing/internal/app/service/plan"
	"github.com/prepnest/billing/pkg/response"
)

// @Summary      List Plans
// @Description  Returns active subscription plans ordered for display.
// @Tags         Catalog
// @Produce      json
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/plans [get]
func ApiListPlans(svc *plan.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		plans, err := svc.ListPlans(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(plans))
	}
}

func RegisterPlanRoutes(r gin.IRouter, svc *plan.Service) {
	r.GET("/plans", ApiListPlans(svc))
}
