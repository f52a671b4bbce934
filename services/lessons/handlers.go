package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// LessonUseCaseInterface define a interface para o use case de aulas
type LessonUseCaseInterface interface {
	ListLessons(ctx context.Context) ([]Lesson, error)
	SearchLessons(ctx context.Context, query string) ([]Lesson, error)
	UpdateLesson(ctx context.Context, id string, patch LessonPatch) (*Lesson, error)
}

// OrderUseCaseInterface define a interface para o use case de pedidos
type OrderUseCaseInterface interface {
	PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error)
}

// Handler contém os handlers HTTP
type Handler struct {
	lessons        LessonUseCaseInterface
	orders         OrderUseCaseInterface
	tracer         trace.Tracer
	logger         *zap.Logger
	requestTimeout time.Duration
}

// NewHandler cria uma nova instância de Handler
func NewHandler(
	lessons LessonUseCaseInterface,
	orders OrderUseCaseInterface,
	tracer trace.Tracer,
	logger *zap.Logger,
	requestTimeout time.Duration,
) *Handler {
	return &Handler{
		lessons:        lessons,
		orders:         orders,
		tracer:         tracer,
		logger:         logger,
		requestTimeout: requestTimeout,
	}
}

func (h *Handler) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.requestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.requestTimeout)
}

// ListLessons retorna todas as aulas
func (h *Handler) ListLessons(c *gin.Context) {
	ctx, cancel := h.withTimeout(c.Request.Context())
	defer cancel()

	lessons, err := h.lessons.ListLessons(ctx)
	if err != nil {
		h.writeError(c, err, "Failed to fetch lessons")
		return
	}
	c.JSON(http.StatusOK, lessons)
}

// SearchLessons busca aulas por texto livre em GET /search?query=
func (h *Handler) SearchLessons(c *gin.Context) {
	ctx, cancel := h.withTimeout(c.Request.Context())
	defer cancel()

	lessons, err := h.lessons.SearchLessons(ctx, c.Query("query"))
	if err != nil {
		h.writeError(c, err, "Failed to search lessons")
		return
	}
	c.JSON(http.StatusOK, lessons)
}

// UpdateLesson mescla os campos do corpo na aula de PUT /lessons/:id
func (h *Handler) UpdateLesson(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "lessons.UpdateLesson.http")
	defer span.End()

	id := c.Param("id")
	span.SetAttributes(attribute.String("lesson.id", id))

	var patch LessonPatch
	decoder := json.NewDecoder(c.Request.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&patch); err != nil {
		if errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Request body is required"})
			return
		}
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid lesson update", "details": err.Error()})
		return
	}
	if patch.IsEmpty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Request body is required"})
		return
	}

	ctx, cancel := h.withTimeout(ctx)
	defer cancel()

	lesson, err := h.lessons.UpdateLesson(ctx, id, patch)
	if err != nil {
		span.RecordError(err)
		h.writeError(c, err, "Failed to update lesson")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Lesson availability updated successfully",
		"lesson":  lesson,
	})
}

// CreateOrder valida e grava um pedido em POST /orders
func (h *Handler) CreateOrder(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "orders.CreateOrder.http")
	defer span.End()

	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		h.logger.Info("❌ Invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order data"})
		return
	}

	ctx, cancel := h.withTimeout(ctx)
	defer cancel()

	order, err := h.orders.PlaceOrder(ctx, req)
	if err != nil {
		span.RecordError(err)
		h.writeError(c, err, "Failed to create order")
		return
	}

	span.SetAttributes(attribute.String("order.id", order.ID))
	c.JSON(http.StatusCreated, order)
}

// HealthCheck verifica a saúde do serviço
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK", "message": "Server is running"})
}

// writeError maps domain errors to status codes. Anything unknown becomes a 500
// carrying only fallback, the real cause goes to the log.
func (h *Handler) writeError(c *gin.Context, err error, fallback string) {
	var lineErr *LineError
	switch {
	case errors.As(err, &lineErr):
		status := http.StatusBadRequest
		if errors.Is(lineErr, ErrLessonNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": lineErr.Error()})
	case errors.Is(err, ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order data"})
	case errors.Is(err, ErrInvalidName):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name must contain only letters"})
	case errors.Is(err, ErrInvalidPhone):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Phone must contain only numbers"})
	case errors.Is(err, ErrInvalidLessonID):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid lesson ID format"})
	case errors.Is(err, ErrInvalidPatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid lesson update"})
	case errors.Is(err, ErrLessonNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Lesson not found"})
	default:
		_ = c.Error(err)
		h.logger.Error("❌ "+fallback, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
