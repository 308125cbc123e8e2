package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/lensbook/internal/http/middleware"
	"github.com/nurpe/lensbook/internal/model"
	"github.com/nurpe/lensbook/internal/service"
)

// BookingExporter renders the admin bookings report.
type BookingExporter interface {
	Generate(bookings []model.Booking) ([]byte, error)
}

type Handler struct {
	bookings      *service.BookingService
	contracts     *service.ContractService
	notifications *service.NotificationService
	messaging     *service.MessagingService
	exporter      BookingExporter
	log           zerolog.Logger
}

func NewHandler(
	bookings *service.BookingService,
	contracts *service.ContractService,
	notifications *service.NotificationService,
	messaging *service.MessagingService,
	exporter BookingExporter,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		bookings:      bookings,
		contracts:     contracts,
		notifications: notifications,
		messaging:     messaging,
		exporter:      exporter,
		log:           log,
	}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	protected := router.Group("/")
	protected.Use(authMiddleware)

	protected.POST("/bookings", h.createBooking)
	protected.GET("/bookings", h.listBookings)
	protected.GET("/bookings/:id", h.getBooking)
	protected.GET("/bookings/:id/history", h.bookingHistory)
	protected.PATCH("/bookings/:id/state", h.transitionBooking)

	protected.POST("/contracts", h.generateContract)
	protected.GET("/contracts/:id", h.getContract)
	protected.POST("/contracts/:id/sign", h.signContract)
	protected.GET("/contracts/:id/download", h.downloadContract)

	protected.GET("/notifications", h.listNotifications)
	protected.POST("/notifications/:id/read", h.readNotification)

	protected.POST("/conversations", h.openConversation)
	protected.GET("/conversations", h.listConversations)
	protected.GET("/conversations/:id/messages", h.listMessages)
	protected.POST("/conversations/:id/messages", h.sendMessage)
	protected.POST("/conversations/:id/proposals", h.proposePrice)
	protected.POST("/conversations/:id/read", h.readConversation)
	protected.POST("/proposals/:id/respond", h.respondToProposal)

	protected.GET("/admin/bookings/export", h.exportBookings)
}

type createBookingRequest struct {
	ClientID       string `json:"client_id"`
	PhotographerID string `json:"photographer_id" binding:"required"`
	StartAt        string `json:"start_at" binding:"required"`
	EndAt          string `json:"end_at"`
	PriceCents     int64  `json:"price_cents"`
	Location       string `json:"location"`
	Notes          string `json:"notes"`
}

func (h *Handler) createBooking(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	photographerID, err := uuid.Parse(strings.TrimSpace(req.PhotographerID))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid photographer_id"})
		return
	}

	clientID := principal.UserID
	if strings.TrimSpace(req.ClientID) != "" {
		clientID, err = uuid.Parse(strings.TrimSpace(req.ClientID))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client_id"})
			return
		}
	}

	startAt, err := parseTime(req.StartAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_at"})
		return
	}

	var endAt *time.Time
	if strings.TrimSpace(req.EndAt) != "" {
		parsed, err := parseTime(req.EndAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_at"})
			return
		}
		endAt = &parsed
	}

	booking, err := h.bookings.Create(c.Request.Context(), principal, service.CreateBookingInput{
		ClientID:       clientID,
		PhotographerID: photographerID,
		StartAt:        startAt,
		EndAt:          endAt,
		PriceCents:     req.PriceCents,
		Location:       req.Location,
		Notes:          req.Notes,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"booking": booking})
}

func (h *Handler) listBookings(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	bookings, err := h.bookings.ListMine(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

func (h *Handler) getBooking(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	booking, err := h.bookings.Get(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

func (h *Handler) bookingHistory(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	transitions, err := h.bookings.History(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transitions": transitions})
}

type transitionRequest struct {
	ToState string `json:"to_state" binding:"required"`
}

func (h *Handler) transitionBooking(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	toState, err := parseBookingState(req.ToState)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to_state"})
		return
	}

	booking, err := h.bookings.Transition(c.Request.Context(), principal, id, toState)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

type generateContractRequest struct {
	BookingID string `json:"booking_id" binding:"required"`
}

func (h *Handler) generateContract(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var req generateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bookingID, err := uuid.Parse(strings.TrimSpace(req.BookingID))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking_id"})
		return
	}

	contract, err := h.contracts.Generate(c.Request.Context(), principal, bookingID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"contract": gin.H{
		"id":      contract.ID,
		"pdf_url": fmt.Sprintf("/contracts/%s/download", contract.ID),
	}})
}

func (h *Handler) getContract(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract id"})
		return
	}

	contract, err := h.contracts.Get(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"contract":       contract,
		"fully_executed": h.contracts.FullyExecuted(*contract),
		"pdf_url":        fmt.Sprintf("/contracts/%s/download", contract.ID),
	})
}

type signContractRequest struct {
	SignerName       string `json:"signer_name" binding:"required"`
	SignatureDataURL string `json:"signature_data_url" binding:"required"`
}

func (h *Handler) signContract(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract id"})
		return
	}

	var req signContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contract, err := h.contracts.Sign(c.Request.Context(), principal, id, req.SignerName, req.SignatureDataURL)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"contract":       contract,
		"fully_executed": h.contracts.FullyExecuted(*contract),
	})
}

func (h *Handler) downloadContract(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contract id"})
		return
	}

	document, fileName, err := h.contracts.Download(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\""+fileName+"\"")
	c.Data(http.StatusOK, "application/pdf", document)
}

func (h *Handler) listNotifications(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	result, err := h.notifications.List(c.Request.Context(), principal, page, pageSize)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) readNotification(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}

	notification, err := h.notifications.MarkRead(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notification": notification})
}

type openConversationRequest struct {
	ClientID       string `json:"client_id"`
	PhotographerID string `json:"photographer_id"`
}

func (h *Handler) openConversation(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var req openConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	clientID := principal.UserID
	if strings.TrimSpace(req.ClientID) != "" {
		parsed, err := uuid.Parse(strings.TrimSpace(req.ClientID))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client_id"})
			return
		}
		clientID = parsed
	}

	photographerID := principal.UserID
	if strings.TrimSpace(req.PhotographerID) != "" {
		parsed, err := uuid.Parse(strings.TrimSpace(req.PhotographerID))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid photographer_id"})
			return
		}
		photographerID = parsed
	}

	conversation, err := h.messaging.Open(c.Request.Context(), principal, clientID, photographerID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": conversation})
}

func (h *Handler) listConversations(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	summaries, err := h.messaging.List(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": summaries})
}

func (h *Handler) listMessages(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	messages, err := h.messaging.Messages(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

type sendMessageRequest struct {
	Kind          string `json:"kind"`
	Body          string `json:"body"`
	AttachmentURL string `json:"attachment_url"`
}

func (h *Handler) sendMessage(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	kind := model.MessageText
	if strings.TrimSpace(req.Kind) != "" {
		kind = model.MessageKind(strings.ToUpper(strings.TrimSpace(req.Kind)))
	}

	msg, err := h.messaging.Send(c.Request.Context(), principal, service.SendMessageInput{
		ConversationID: id,
		Kind:           kind,
		Body:           req.Body,
		AttachmentURL:  req.AttachmentURL,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

type proposePriceRequest struct {
	AmountCents int64  `json:"amount_cents" binding:"required"`
	Currency    string `json:"currency" binding:"required"`
	Description string `json:"description"`
}

func (h *Handler) proposePrice(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	var req proposePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.messaging.ProposePrice(c.Request.Context(), principal, id, req.AmountCents, req.Currency, req.Description)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

type respondRequest struct {
	Accept  *bool  `json:"accept" binding:"required"`
	StartAt string `json:"start_at"`
}

func (h *Handler) respondToProposal(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid proposal id"})
		return
	}

	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := service.RespondInput{MessageID: id, Accept: *req.Accept}
	if strings.TrimSpace(req.StartAt) != "" {
		startAt, err := parseTime(req.StartAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_at"})
			return
		}
		input.StartAt = startAt
	}

	msg, err := h.messaging.Respond(c.Request.Context(), principal, input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func (h *Handler) readConversation(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	if err := h.messaging.MarkRead(c.Request.Context(), principal, id); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) exportBookings(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	bookings, err := h.bookings.ListAll(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	content, err := h.exporter.Generate(bookings)
	if err != nil {
		h.handleError(c, err)
		return
	}

	fileName := fmt.Sprintf("bookings-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", "attachment; filename=\""+fileName+"\"")
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", content)
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error(), "code": "FORBIDDEN"})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "INVALID_INPUT"})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "code": "NOT_FOUND"})
	case errors.Is(err, service.ErrContractNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "code": "CONTRACT_NOT_FOUND"})
	case errors.Is(err, service.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "INVALID_TRANSITION"})
	case errors.Is(err, service.ErrConflictingTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "CONFLICTING_TRANSITION"})
	case errors.Is(err, service.ErrInvalidBookingState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "INVALID_BOOKING_STATE"})
	case errors.Is(err, service.ErrDuplicateSignature):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "DUPLICATE_SIGNATURE"})
	case errors.Is(err, service.ErrAlreadyResolved):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "ALREADY_RESOLVED"})
	default:
		h.log.Error().Err(err).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func parseBookingState(raw string) (model.BookingState, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "REQUESTED":
		return model.BookingRequested, nil
	case "CONFIRMED":
		return model.BookingConfirmed, nil
	case "IN_PROGRESS":
		return model.BookingInProgress, nil
	case "COMPLETED":
		return model.BookingCompleted, nil
	case "CANCELLED_BY_CLIENT":
		return model.BookingCancelledByClient, nil
	case "CANCELLED_BY_PHOTOGRAPHER":
		return model.BookingCancelledByPhotographer, nil
	default:
		return "", service.ErrInvalidInput
	}
}

func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, service.ErrInvalidInput
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, service.ErrInvalidInput
}
