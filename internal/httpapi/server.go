package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/elagi/loyalty/pkg/loyalty"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const pathParamCustomerID = "customerId"

// Run boots the HTTP API using the supplied configuration and blocks until
// the context is cancelled or the server fails.
func Run(ctx context.Context, cfg Config, service *loyalty.Service, logger *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	handler := &httpHandler{
		logger:  logger,
		service: service,
	}

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: setupRouter(cfg, handler),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("loyalty api listening", zap.String("addr", cfg.ListenAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func setupRouter(cfg Config, handler *httpHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Origin", "Accept"},
		MaxAge:       12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/customers/all", handler.handleListCustomers)
	router.POST("/customers/register", handler.handleRegister)
	router.GET("/customers/:customerId", handler.handleGetCustomer)
	router.PUT("/customers/:customerId", handler.handleUpdateCustomer)
	router.DELETE("/customers/:customerId", handler.handleDeleteCustomer)
	router.GET("/customers/:customerId/balance", handler.handleGetCustomer)
	router.GET("/customers/:customerId/points-by-time", handler.handlePointsByTime)
	router.POST("/transactions/purchase", handler.handlePurchase)
	router.POST("/points/redeem", handler.handleRedeem)

	return router
}

type httpHandler struct {
	logger  *zap.Logger
	service *loyalty.Service
}

func (handler *httpHandler) handleListCustomers(ctx *gin.Context) {
	customers, err := handler.service.List(ctx.Request.Context())
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	payload := make([]customerPayload, 0, len(customers))
	for _, customer := range customers {
		payload = append(payload, customerPayloadFrom(customer))
	}
	ctx.JSON(http.StatusOK, payload)
}

func (handler *httpHandler) handleRegister(ctx *gin.Context) {
	var request registerRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidInput, "expected JSON body with customerId and name"))
		return
	}
	customerID, err := loyalty.NewCustomerID(request.CustomerID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	name, err := loyalty.NewCustomerName(request.Name)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	initialPoints, err := loyalty.NewInitialPoints(request.InitialPoints)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	created, err := handler.service.Register(ctx.Request.Context(), customerID, name, initialPoints)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, customerPayloadFrom(created))
}

func (handler *httpHandler) handleGetCustomer(ctx *gin.Context) {
	customerID, err := loyalty.NewCustomerID(ctx.Param(pathParamCustomerID))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	customer, err := handler.service.Get(ctx.Request.Context(), customerID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, customerPayloadFrom(customer))
}

func (handler *httpHandler) handleUpdateCustomer(ctx *gin.Context) {
	customerID, err := loyalty.NewCustomerID(ctx.Param(pathParamCustomerID))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	var request updateRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidInput, "expected JSON body"))
		return
	}
	updated, err := handler.service.Update(ctx.Request.Context(), customerID, loyalty.CustomerUpdate{
		Name:        request.Name,
		TotalPoints: request.TotalPoints,
	})
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, customerPayloadFrom(updated))
}

func (handler *httpHandler) handleDeleteCustomer(ctx *gin.Context) {
	customerID, err := loyalty.NewCustomerID(ctx.Param(pathParamCustomerID))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	if err := handler.service.SoftDelete(ctx.Request.Context(), customerID); err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (handler *httpHandler) handlePurchase(ctx *gin.Context) {
	var request purchaseRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidInput, "expected JSON body with customerId and amount"))
		return
	}
	customerID, err := loyalty.NewCustomerID(request.CustomerID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	amount, err := amountToCents(request.Amount)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	result, err := handler.service.Purchase(ctx.Request.Context(), customerID, amount)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, statusPayload{
		Message:        purchaseMessage(request.Amount.StringFixed(2), result.PointsEarned),
		CustomerID:     customerID.String(),
		NewTotalPoints: result.Customer.TotalPoints,
	})
}

func (handler *httpHandler) handleRedeem(ctx *gin.Context) {
	var request redeemRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidInput, "expected JSON body with customerId, pointsToRedeem, and rewardDescription"))
		return
	}
	customerID, err := loyalty.NewCustomerID(request.CustomerID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	pointsToRedeem, err := loyalty.NewPointsToRedeem(request.PointsToRedeem)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	reward, err := loyalty.NewRewardDescription(request.RewardDescription)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	result, err := handler.service.Redeem(ctx.Request.Context(), customerID, pointsToRedeem, reward)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, statusPayload{
		Message:        fmt.Sprintf("Successfully redeemed %d points for '%s'.", result.PointsRedeemed, result.Reward),
		CustomerID:     customerID.String(),
		NewTotalPoints: result.Customer.TotalPoints,
	})
}

func (handler *httpHandler) handlePointsByTime(ctx *gin.Context) {
	customerID, err := loyalty.NewCustomerID(ctx.Param(pathParamCustomerID))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	startRaw := ctx.Query("startDate")
	endRaw := ctx.Query("endDate")
	start, err := time.Parse(dateLayout, startRaw)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidInput, "startDate must be YYYY-MM-DD"))
		return
	}
	end, err := time.Parse(dateLayout, endRaw)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidInput, "endDate must be YYYY-MM-DD"))
		return
	}
	dateRange, err := loyalty.NewDateRange(start, end)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	earned, err := handler.service.PointsEarnedInPeriod(ctx.Request.Context(), customerID, dateRange)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, pointsByTimePayload{
		CustomerID:   customerID.String(),
		StartDate:    startRaw,
		EndDate:      endRaw,
		PointsEarned: earned,
	})
}

func (handler *httpHandler) respondError(ctx *gin.Context, err error) {
	status, code := statusForError(err)
	if status == http.StatusInternalServerError {
		handler.logger.Error("request failed", zap.Error(err))
	}
	ctx.JSON(status, errorResponse(code, err.Error()))
}

func purchaseMessage(amount string, pointsEarned int64) string {
	if pointsEarned > 0 {
		return fmt.Sprintf("Successfully recorded purchase of %s. Points awarded: %d.", amount, pointsEarned)
	}
	return fmt.Sprintf("Purchase of %s recorded, but the amount did not qualify for loyalty points (must be 50.00 or more).", amount)
}
