package main

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// LessonUseCase contém a lógica de leitura, busca e atualização das aulas
type LessonUseCase struct {
	repository LessonRepository
	logger     *zap.Logger
	tracer     trace.Tracer
}

// NewLessonUseCase cria uma nova instância de LessonUseCase
func NewLessonUseCase(repository LessonRepository, logger *zap.Logger, tracer trace.Tracer) *LessonUseCase {
	return &LessonUseCase{
		repository: repository,
		logger:     logger,
		tracer:     tracer,
	}
}

// ListLessons retorna todas as aulas
func (uc *LessonUseCase) ListLessons(ctx context.Context) ([]Lesson, error) {
	ctx, span := uc.tracer.Start(ctx, "lessons.ListLessons")
	defer span.End()

	lessons, err := uc.repository.ListLessons(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list lessons failed")
		return nil, err
	}
	return lessons, nil
}

// SearchLessons resolve a busca livre. Query vazia devolve todas as aulas.
func (uc *LessonUseCase) SearchLessons(ctx context.Context, query string) ([]Lesson, error) {
	ctx, span := uc.tracer.Start(ctx, "lessons.SearchLessons")
	defer span.End()

	criteria, ok := NewSearchCriteria(query)
	if !ok {
		uc.logger.Debug("Empty query - returning all lessons")
		return uc.ListLessons(ctx)
	}

	span.SetAttributes(
		attribute.String("search.query", criteria.Query),
		attribute.Bool("search.price", criteria.Price != nil),
		attribute.Bool("search.space", criteria.Space != nil),
	)

	lessons, err := uc.repository.FindLessons(ctx, criteria)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		return nil, err
	}

	uc.logger.Debug("🔎 Search resolved",
		zap.String("query", criteria.Query),
		zap.String("pattern", criteria.Pattern),
		zap.Int("results", len(lessons)),
	)
	return lessons, nil
}

// UpdateLesson mescla os campos informados na aula
func (uc *LessonUseCase) UpdateLesson(ctx context.Context, id string, patch LessonPatch) (*Lesson, error) {
	ctx, span := uc.tracer.Start(ctx, "lessons.UpdateLesson")
	defer span.End()
	span.SetAttributes(attribute.String("lesson.id", id))

	if err := patch.Validate(); err != nil {
		return nil, err
	}

	lesson, err := uc.repository.UpdateLesson(ctx, id, patch)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	uc.logger.Info("✅ Lesson updated", zap.String("lesson_id", id), zap.Int("space", lesson.Space))
	return lesson, nil
}

// OrderUseCase contém a lógica de criação de pedidos
type OrderUseCase struct {
	lessons               LessonRepository
	orders                OrderRepository
	publisher             OrderEventPublisher
	logger                *zap.Logger
	tracer                trace.Tracer
	ordersPlacedCounter   metric.Int64Counter
	ordersRejectedCounter metric.Int64Counter
	seatsReservedCounter  metric.Int64Counter
}

// NewOrderUseCase cria uma nova instância de OrderUseCase
func NewOrderUseCase(
	lessons LessonRepository,
	orders OrderRepository,
	publisher OrderEventPublisher,
	logger *zap.Logger,
	tracer trace.Tracer,
) (*OrderUseCase, error) {
	meter := otel.Meter(serviceName)

	placed, err := meter.Int64Counter("orders.placed",
		metric.WithDescription("Orders persisted successfully"))
	if err != nil {
		return nil, fmt.Errorf("failed to create orders.placed counter: %w", err)
	}
	rejected, err := meter.Int64Counter("orders.rejected",
		metric.WithDescription("Orders refused by validation or inventory"))
	if err != nil {
		return nil, fmt.Errorf("failed to create orders.rejected counter: %w", err)
	}
	reserved, err := meter.Int64Counter("lessons.seats_reserved",
		metric.WithDescription("Spaces decremented by order lines"))
	if err != nil {
		return nil, fmt.Errorf("failed to create lessons.seats_reserved counter: %w", err)
	}

	return &OrderUseCase{
		lessons:               lessons,
		orders:                orders,
		publisher:             publisher,
		logger:                logger,
		tracer:                tracer,
		ordersPlacedCounter:   placed,
		ordersRejectedCounter: rejected,
		seatsReservedCounter:  reserved,
	}, nil
}

// PlaceOrder valida o pedido, reserva as vagas linha a linha e grava o pedido.
//
// Lines are reserved in request order and the first failure stops the order.
// Reservations already made for earlier lines stay applied.
func (uc *OrderUseCase) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	ctx, span := uc.tracer.Start(ctx, "orders.PlaceOrder")
	defer span.End()
	span.SetAttributes(attribute.Int("order.lines", len(req.Lessons)))

	if err := req.Validate(); err != nil {
		uc.reject(ctx, span, "validation", err)
		return nil, err
	}

	uc.logger.Info("➡️ [PLACE ORDER]", zap.String("name", req.Name), zap.Int("lines", len(req.Lessons)))

	ordered := make([]OrderedLesson, 0, len(req.Lessons))
	for _, line := range req.Lessons {
		lesson, err := uc.reserveLine(ctx, line)
		if err != nil {
			if len(ordered) > 0 {
				uc.logger.Warn("⚠️ Order aborted after partial reservation",
					zap.Int("reserved_lines", len(ordered)),
					zap.String("failed_lesson_id", line.LessonID),
				)
			}
			uc.reject(ctx, span, "inventory", err)
			return nil, err
		}

		ordered = append(ordered, OrderedLesson{
			LessonID: line.LessonID,
			Subject:  lesson.Subject,
			Quantity: line.Quantity,
		})
	}

	order := NewOrder(req.Name, req.Phone, ordered)
	if err := uc.orders.CreateOrder(ctx, order); err != nil {
		uc.logger.Error("❌ Failed to create order", zap.Error(err))
		uc.reject(ctx, span, "store", err)
		return nil, err
	}

	span.SetAttributes(attribute.String("order.id", order.ID))
	uc.ordersPlacedCounter.Add(ctx, 1)

	if err := uc.publisher.PublishOrderPlaced(ctx, order); err != nil {
		uc.logger.Warn("Failed to publish order placed event", zap.String("order_id", order.ID), zap.Error(err))
	}

	uc.logger.Info("✅ Order created", zap.String("order_id", order.ID))
	return order, nil
}

// reserveLine resolve a aula e decrementa as vagas de uma linha
func (uc *OrderUseCase) reserveLine(ctx context.Context, line OrderLine) (*Lesson, error) {
	ctx, span := uc.tracer.Start(ctx, "orders.ReserveLine")
	defer span.End()
	span.SetAttributes(
		attribute.String("lesson.id", line.LessonID),
		attribute.Int("lesson.quantity", line.Quantity),
	)

	lesson, err := uc.lessons.GetLesson(ctx, line.LessonID)
	if err != nil {
		if errors.Is(err, ErrLessonNotFound) || errors.Is(err, ErrInvalidLessonID) {
			return nil, &LineError{LessonID: line.LessonID, Err: ErrLessonNotFound}
		}
		return nil, err
	}

	updated, err := uc.lessons.ReserveSpaces(ctx, line.LessonID, line.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, ErrInsufficientCapacity):
			return nil, &LineError{LessonID: line.LessonID, Subject: lesson.Subject, Err: ErrInsufficientCapacity}
		case errors.Is(err, ErrLessonNotFound):
			return nil, &LineError{LessonID: line.LessonID, Err: ErrLessonNotFound}
		}
		return nil, err
	}

	uc.seatsReservedCounter.Add(ctx, int64(line.Quantity),
		metric.WithAttributes(attribute.String("lesson.subject", lesson.Subject)))
	uc.logger.Info("✅ [RESERVE] Success",
		zap.String("lesson_id", line.LessonID),
		zap.Int("quantity", line.Quantity),
		zap.Int("space_left", updated.Space),
	)
	return updated, nil
}

func (uc *OrderUseCase) reject(ctx context.Context, span trace.Span, reason string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, reason)
	uc.ordersRejectedCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	uc.logger.Info("❌ Order rejected", zap.String("reason", reason), zap.Error(err))
}
