package main

import (
	"regexp"
	"strings"
	"time"
)

// Lesson representa uma aula com vagas disponíveis
type Lesson struct {
	ID       string  `json:"_id"`
	Subject  string  `json:"subject"`
	Location string  `json:"location"`
	Price    float64 `json:"price"`
	Space    int     `json:"space"`
	Icon     string  `json:"icon"`
}

// LessonPatch carries the fields a PUT /lessons/:id may merge into a lesson.
// Nil fields are left untouched.
type LessonPatch struct {
	Subject  *string  `json:"subject,omitempty"`
	Location *string  `json:"location,omitempty"`
	Price    *float64 `json:"price,omitempty"`
	Space    *int     `json:"space,omitempty"`
	Icon     *string  `json:"icon,omitempty"`
}

// IsEmpty reports whether the patch would change nothing.
func (p LessonPatch) IsEmpty() bool {
	return p.Subject == nil && p.Location == nil && p.Price == nil && p.Space == nil && p.Icon == nil
}

// Validate rejects values that would break the lesson invariants.
func (p LessonPatch) Validate() error {
	if p.IsEmpty() {
		return ErrInvalidPatch
	}
	if p.Price != nil && *p.Price < 0 {
		return ErrInvalidPatch
	}
	if p.Space != nil && *p.Space < 0 {
		return ErrInvalidPatch
	}
	return nil
}

// Apply merges the patch into the lesson in place.
func (p LessonPatch) Apply(l *Lesson) {
	if p.Subject != nil {
		l.Subject = *p.Subject
	}
	if p.Location != nil {
		l.Location = *p.Location
	}
	if p.Price != nil {
		l.Price = *p.Price
	}
	if p.Space != nil {
		l.Space = *p.Space
	}
	if p.Icon != nil {
		l.Icon = *p.Icon
	}
}

// OrderLine is a requested lesson inside an order request
type OrderLine struct {
	LessonID string `json:"id"`
	Quantity int    `json:"quantity"`
}

// OrderedLesson é a linha resolvida que fica gravada no pedido
type OrderedLesson struct {
	LessonID string `json:"id"`
	Subject  string `json:"subject"`
	Quantity int    `json:"quantity"`
}

// Order representa um pedido confirmado
type Order struct {
	ID        string          `json:"_id"`
	Name      string          `json:"name"`
	Phone     string          `json:"phone"`
	Lessons   []OrderedLesson `json:"lessons"`
	CreatedAt time.Time       `json:"createdAt"`
}

// NewOrder cria uma nova instância de Order
func NewOrder(name, phone string, lessons []OrderedLesson) *Order {
	return &Order{
		Name:      name,
		Phone:     phone,
		Lessons:   lessons,
		CreatedAt: time.Now().UTC(),
	}
}

// PlaceOrderRequest is the body of POST /orders.
type PlaceOrderRequest struct {
	Name    string      `json:"name"`
	Phone   string      `json:"phone"`
	Lessons []OrderLine `json:"lessons"`
}

var (
	namePattern  = regexp.MustCompile(`^[A-Za-z\s]+$`)
	phonePattern = regexp.MustCompile(`^\d+$`)
)

// Validate checks the request shape, then the name, then the phone.
func (r PlaceOrderRequest) Validate() error {
	if r.Name == "" || r.Phone == "" || len(r.Lessons) == 0 {
		return ErrInvalidRequest
	}
	for _, line := range r.Lessons {
		if strings.TrimSpace(line.LessonID) == "" || line.Quantity <= 0 {
			return ErrInvalidRequest
		}
	}

	if !namePattern.MatchString(r.Name) {
		return ErrInvalidName
	}
	if !phonePattern.MatchString(r.Phone) {
		return ErrInvalidPhone
	}
	return nil
}
