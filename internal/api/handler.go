package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"reservation-service/internal/service"
	"reservation-service/internal/store"
	"reservation-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handler contains HTTP handlers
type Handler struct {
	reservationService  *service.ReservationService
	ticketService       *service.TicketService
	availabilityService *service.AvailabilityService
	catalogService      *service.CatalogService
	auditRecorder       *service.AuditRecorder
}

// NewHandler creates a new HTTP handler
func NewHandler(
	reservationService *service.ReservationService,
	ticketService *service.TicketService,
	availabilityService *service.AvailabilityService,
	catalogService *service.CatalogService,
	auditRecorder *service.AuditRecorder,
) *Handler {
	return &Handler{
		reservationService:  reservationService,
		ticketService:       ticketService,
		availabilityService: availabilityService,
		catalogService:      catalogService,
		auditRecorder:       auditRecorder,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/search/rooms", h.searchRooms)
		v1.GET("/search/tickets", h.searchTickets)
		v1.GET("/rooms/:id/quote", h.quoteRoomPrice)

		v1.POST("/reservations", h.createReservation)
		v1.GET("/reservations", h.listReservations)
		v1.GET("/reservations/:id", h.getReservation)
		v1.POST("/reservations/:id/confirm", h.confirmReservation)
		v1.POST("/reservations/:id/cancel", h.cancelReservation)

		v1.POST("/ticket-reservations", h.createTicketReservation)
		v1.GET("/ticket-reservations", h.listTicketReservations)
		v1.GET("/ticket-reservations/:id", h.getTicketReservation)
		v1.POST("/ticket-reservations/:id/confirm", h.confirmTicketReservation)
		v1.POST("/ticket-reservations/:id/cancel", h.cancelTicketReservation)

		v1.GET("/lodges", h.listLodges)
		v1.GET("/lodges/:id", h.getLodge)
	}

	admin := router.Group("/api/v1/admin")
	{
		admin.POST("/lodges", h.createLodge)
		admin.POST("/ticket-types", h.createTicketType)
		admin.PUT("/room-types/:id", h.updateRoomType)
		admin.PUT("/room-types/:id/seasonal-pricing", h.replaceSeasonalPricing)
		admin.PUT("/ticket-types/:id/capacity", h.updateTicketCapacity)
		admin.GET("/room-types/:id/inventory", h.getRoomInventory)
		admin.PUT("/inventory/:id/availability", h.overrideRoomAvailability)
		admin.GET("/reservations", h.listAllReservations)
		admin.GET("/reservations/:kind/:id/events", h.getAuditTrail)
		admin.POST("/users/:id/cancel-reservations", h.cancelAllForUser)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// respondError maps service errors onto HTTP status codes.
func respondError(c *gin.Context, err error) {
	var vErr *service.ValidationError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
	case errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrReservationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrInsufficientInventory):
		c.JSON(http.StatusConflict, gin.H{"error": "insufficient availability"})
	case errors.Is(err, service.ErrInvalidStateTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrDuplicateInventory):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrTransientConflict):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporary conflict, please retry"})
	default:
		util.GetLogger().Error("Request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// userID reads the authenticated user from the X-User-ID header set by the
// gateway. The service itself does not authenticate.
func userID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.GetHeader("X-User-ID"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid X-User-ID header"})
		return 0, false
	}
	return id, true
}

// searchRooms handles room availability search
func (h *Handler) searchRooms(c *gin.Context) {
	var criteria service.RoomSearchCriteria
	if err := c.ShouldBindQuery(&criteria); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid search criteria", "details": err.Error()})
		return
	}

	results, err := h.availabilityService.SearchRooms(c.Request.Context(), &criteria)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// searchTickets handles ticket availability search
func (h *Handler) searchTickets(c *gin.Context) {
	var criteria service.TicketSearchCriteria
	if err := c.ShouldBindQuery(&criteria); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid search criteria", "details": err.Error()})
		return
	}

	results, err := h.availabilityService.SearchTickets(c.Request.Context(), &criteria)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// quoteRoomPrice handles price quote requests
func (h *Handler) quoteRoomPrice(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	roomCount, _ := strconv.Atoi(c.DefaultQuery("room_count", "1"))

	total, err := h.availabilityService.QuoteRoomPrice(c.Request.Context(), id,
		c.Query("check_in"), c.Query("check_out"), roomCount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room_type_id": id, "total_price": total})
}

// createReservation handles room reservation creation
func (h *Handler) createReservation(c *gin.Context) {
	var req service.CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	uid, ok := userID(c)
	if !ok {
		return
	}
	req.UserID = uid
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	reservation, err := h.reservationService.CreateReservation(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reservation)
}

// getReservation handles get reservation by ID
func (h *Handler) getReservation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	reservation, err := h.reservationService.GetReservation(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reservation)
}

// listReservations lists the caller's reservations
func (h *Handler) listReservations(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	reservations, err := h.reservationService.ListReservations(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reservations": reservations})
}

// confirmReservation handles reservation confirmation
func (h *Handler) confirmReservation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	reservation, err := h.reservationService.ConfirmReservation(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reservation)
}

type cancelRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// cancelReservation handles reservation cancellation
func (h *Handler) cancelReservation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	reservation, err := h.reservationService.CancelReservation(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reservation)
}

// createTicketReservation handles ticket reservation creation
func (h *Handler) createTicketReservation(c *gin.Context) {
	var req service.CreateTicketReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	uid, ok := userID(c)
	if !ok {
		return
	}
	req.UserID = uid
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	reservation, err := h.ticketService.CreateTicketReservation(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reservation)
}

// getTicketReservation handles get ticket reservation by ID
func (h *Handler) getTicketReservation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	reservation, err := h.ticketService.GetTicketReservation(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reservation)
}

// listTicketReservations lists the caller's ticket reservations
func (h *Handler) listTicketReservations(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	reservations, err := h.ticketService.ListTicketReservations(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reservations": reservations})
}

// confirmTicketReservation handles ticket reservation confirmation
func (h *Handler) confirmTicketReservation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	reservation, err := h.ticketService.ConfirmTicketReservation(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reservation)
}

// cancelTicketReservation handles ticket reservation cancellation
func (h *Handler) cancelTicketReservation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	reservation, err := h.ticketService.CancelTicketReservation(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reservation)
}

// listLodges lists all lodges
func (h *Handler) listLodges(c *gin.Context) {
	lodges, err := h.catalogService.ListLodges(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lodges": lodges})
}

// getLodge returns one lodge with its room types
func (h *Handler) getLodge(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	lodge, roomTypes, err := h.catalogService.GetLodge(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lodge": lodge, "room_types": roomTypes})
}

// createLodge handles lodge creation with nested room types
func (h *Handler) createLodge(c *gin.Context) {
	var req service.CreateLodgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	lodge, err := h.catalogService.CreateLodge(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, lodge)
}

// createTicketType handles ticket type creation
func (h *Handler) createTicketType(c *gin.Context) {
	var req service.CreateTicketTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	tt, err := h.catalogService.CreateTicketType(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tt)
}

// updateRoomType handles room type updates including capacity changes
func (h *Handler) updateRoomType(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.UpdateRoomTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	rt, err := h.catalogService.UpdateRoomType(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rt)
}

// replaceSeasonalPricing replaces a room type's seasonal pricing list
func (h *Handler) replaceSeasonalPricing(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var inputs []service.SeasonalPricingInput
	if err := c.ShouldBindJSON(&inputs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	rows, err := h.catalogService.ReplaceSeasonalPricing(c.Request.Context(), id, inputs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"seasonal_pricing": rows})
}

type ticketCapacityRequest struct {
	TotalAdultTickets int `json:"total_adult_tickets" binding:"min=0"`
	TotalChildTickets int `json:"total_child_tickets" binding:"min=0"`
}

// updateTicketCapacity reconciles ticket pool totals
func (h *Handler) updateTicketCapacity(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req ticketCapacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	if err := h.catalogService.UpdateTicketCapacity(c.Request.Context(), id, req.TotalAdultTickets, req.TotalChildTickets); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reconciled"})
}

// getRoomInventory lists ledger rows for a room type
func (h *Handler) getRoomInventory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	rows, err := h.catalogService.GetRoomInventory(c.Request.Context(), id, c.Query("from"), c.Query("to"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inventory": rows})
}

type availabilityOverrideRequest struct {
	AvailableRooms int `json:"available_rooms" binding:"min=0"`
}

// overrideRoomAvailability sets a ledger row's available count directly
func (h *Handler) overrideRoomAvailability(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req availabilityOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	if err := h.catalogService.OverrideRoomAvailability(c.Request.Context(), id, req.AvailableRooms); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "overridden"})
}

// listAllReservations lists every room reservation for the admin view
func (h *Handler) listAllReservations(c *gin.Context) {
	reservations, err := h.reservationService.ListAllReservations(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reservations": reservations})
}

// getAuditTrail lists recorded lifecycle events for one reservation
func (h *Handler) getAuditTrail(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	events, err := h.auditRecorder.GetAuditTrail(c.Request.Context(), c.Param("kind"), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// cancelAllForUser force-cancels a user's live reservations, crediting back
// confirmed ones. Part of the user-deletion cascade.
func (h *Handler) cancelAllForUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	rooms, err := h.reservationService.CancelAllForUser(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	tickets, err := h.ticketService.CancelAllForUser(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms_cancelled": rooms, "tickets_cancelled": tickets})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
