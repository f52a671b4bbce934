package main

import (
	"context"
)

// LessonRepository define a interface do inventário de aulas.
// É o único dono da mutação de vagas.
type LessonRepository interface {
	// GetLesson busca uma aula pelo ID
	GetLesson(ctx context.Context, id string) (*Lesson, error)

	// ListLessons retorna todas as aulas, sem ordem definida
	ListLessons(ctx context.Context) ([]Lesson, error)

	// FindLessons retorna as aulas que satisfazem o filtro de busca
	FindLessons(ctx context.Context, criteria SearchCriteria) ([]Lesson, error)

	// ReserveSpaces decrementa as vagas em uma única atualização condicional (space >= quantity)
	ReserveSpaces(ctx context.Context, id string, quantity int) (*Lesson, error)

	// UpdateLesson aplica os campos do patch e retorna a aula atualizada
	UpdateLesson(ctx context.Context, id string, patch LessonPatch) (*Lesson, error)

	// CountLessons e InsertLessons são usados apenas pelo seed inicial
	CountLessons(ctx context.Context) (int64, error)
	InsertLessons(ctx context.Context, lessons []Lesson) error
}

// OrderRepository define a interface para persistência de pedidos
type OrderRepository interface {
	// CreateOrder grava o pedido e preenche order.ID
	CreateOrder(ctx context.Context, order *Order) error
}
