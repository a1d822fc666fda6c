package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prepnest/billing/internal/app/service/demoaccess"
	"github.com/prepnest/billing/internal/app/service/validation"
	"github.com/prepnest/billing/pkg/response"
)

// @Summary      Validate Subscription
// @Description  Reports whether a user's subscription grants access, optionally scoped to an exam category. Never mutates state.
// @Tags         Entitlement
// @Produce      json
// @Param        user_id query string true "User ID"
// @Param        category query string false "Exam category scope"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/entitlements/validate [get]
func ApiValidateSubscription(svc *validation.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("user_id")
		if userID == "" {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "missing user_id"))
			return
		}
		res, err := svc.ValidateSubscription(c.Request.Context(), userID, c.Query("category"))
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Demo Eligibility
// @Description  Reports whether a user may start a demo session and how many questions remain.
// @Tags         Entitlement
// @Produce      json
// @Param        user_id query string true "User ID"
// @Param        category query string true "Exam category"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/demo/eligibility [get]
func ApiDemoEligibility(svc *demoaccess.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("user_id")
		category := c.Query("category")
		if userID == "" || category == "" {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "missing user_id or category"))
			return
		}
		res, err := svc.CheckEligibility(c.Request.Context(), userID, category)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

type logDemoSessionRequest struct {
	UserID             string                    `json:"user_id" binding:"required"`
	Category           string                    `json:"category" binding:"required"`
	QuestionsAttempted int                       `json:"questions_attempted"`
	TimeSpentMinutes   int                       `json:"time_spent_minutes"`
	SessionContext     demoaccess.SessionContext `json:"session_context"`
}

// @Summary      Log Demo Session
// @Description  Records a demo session. QuestionsAttempted is the running total for the user and category.
// @Tags         Entitlement
// @Accept       json
// @Produce      json
// @Param        request body logDemoSessionRequest true "Demo session record"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/demo/sessions [post]
func ApiLogDemoSession(svc *demoaccess.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req logDemoSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		row, err := svc.LogAccess(c.Request.Context(), req.UserID, req.Category,
			req.QuestionsAttempted, req.TimeSpentMinutes, req.SessionContext)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(row))
	}
}

func RegisterEntitlementRoutes(r gin.IRouter, valSvc *validation.Service, demoSvc *demoaccess.Service) {
	r.GET("/entitlements/validate", ApiValidateSubscription(valSvc))
	r.GET("/demo/eligibility", ApiDemoEligibility(demoSvc))
	r.POST("/demo/sessions", ApiLogDemoSession(demoSvc))
}
