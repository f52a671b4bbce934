package main

import (
	"context"
	"regexp"
	"strconv"
	"sync"
)

// MemoryLessonRepository keeps lessons in process memory. A single mutex makes
// ReserveSpaces the same check-and-decrement step the database stores provide.
type MemoryLessonRepository struct {
	mu      sync.Mutex
	lessons map[string]*Lesson
	order   []string
	nextID  int
}

// NewMemoryLessonRepository cria um repositório em memória
func NewMemoryLessonRepository() *MemoryLessonRepository {
	return &MemoryLessonRepository{lessons: make(map[string]*Lesson)}
}

func (r *MemoryLessonRepository) GetLesson(_ context.Context, id string) (*Lesson, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lesson, ok := r.lessons[id]
	if !ok {
		return nil, ErrLessonNotFound
	}
	copied := *lesson
	return &copied, nil
}

func (r *MemoryLessonRepository) ListLessons(_ context.Context) ([]Lesson, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lessons := make([]Lesson, 0, len(r.order))
	for _, id := range r.order {
		lessons = append(lessons, *r.lessons[id])
	}
	return lessons, nil
}

func (r *MemoryLessonRepository) FindLessons(_ context.Context, criteria SearchCriteria) ([]Lesson, error) {
	re, err := regexp.Compile("(?i)" + criteria.Pattern)
	if err != nil {
		return nil, storeError("compile search pattern", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	lessons := make([]Lesson, 0)
	for _, id := range r.order {
		if lesson := r.lessons[id]; criteria.matches(re, *lesson) {
			lessons = append(lessons, *lesson)
		}
	}
	return lessons, nil
}

func (r *MemoryLessonRepository) ReserveSpaces(_ context.Context, id string, quantity int) (*Lesson, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lesson, ok := r.lessons[id]
	if !ok {
		return nil, ErrLessonNotFound
	}
	if lesson.Space < quantity {
		return nil, ErrInsufficientCapacity
	}
	lesson.Space -= quantity

	copied := *lesson
	return &copied, nil
}

func (r *MemoryLessonRepository) UpdateLesson(_ context.Context, id string, patch LessonPatch) (*Lesson, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lesson, ok := r.lessons[id]
	if !ok {
		return nil, ErrLessonNotFound
	}
	patch.Apply(lesson)

	copied := *lesson
	return &copied, nil
}

func (r *MemoryLessonRepository) CountLessons(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.lessons)), nil
}

// InsertLessons stores copies of lessons, assigning sequential IDs to those without one.
func (r *MemoryLessonRepository) InsertLessons(_ context.Context, lessons []Lesson) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, l := range lessons {
		lesson := l
		if lesson.ID == "" {
			r.nextID++
			lesson.ID = "lesson-" + strconv.Itoa(r.nextID)
		}
		if _, exists := r.lessons[lesson.ID]; !exists {
			r.order = append(r.order, lesson.ID)
		}
		r.lessons[lesson.ID] = &lesson
	}
	return nil
}

// MemoryOrderRepository guarda pedidos em memória
type MemoryOrderRepository struct {
	mu     sync.Mutex
	orders []Order
}

func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{}
}

func (r *MemoryOrderRepository) CreateOrder(_ context.Context, order *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order.ID = "order-" + strconv.Itoa(len(r.orders)+1)
	r.orders = append(r.orders, *order)
	return nil
}

// Orders returns a snapshot of every stored order.
func (r *MemoryOrderRepository) Orders() []Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Order(nil), r.orders...)
}

var (
	_ LessonRepository = (*MemoryLessonRepository)(nil)
	_ OrderRepository  = (*MemoryOrderRepository)(nil)
)
