package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Lesson espelha o JSON devolvido pelo lessons-service
type Lesson struct {
	ID       string  `json:"_id"`
	Subject  string  `json:"subject"`
	Location string  `json:"location"`
	Price    float64 `json:"price"`
	Space    int     `json:"space"`
	Icon     string  `json:"icon"`
}

type apiError struct {
	Error string `json:"error"`
}

type updateResponse struct {
	Message string `json:"message"`
	Lesson  Lesson `json:"lesson"`
}

// LessonsClient fala com a API HTTP do lessons-service
type LessonsClient struct {
	http *resty.Client
}

// NewLessonsClient cria o client para baseURL (ex: http://localhost:5000)
func NewLessonsClient(baseURL string, timeout time.Duration) *LessonsClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200*time.Millisecond).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "lessonctl")
	return &LessonsClient{http: client}
}

func (c *LessonsClient) ListLessons(ctx context.Context) ([]Lesson, error) {
	var lessons []Lesson
	var failure apiError

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&lessons).
		SetError(&failure).
		Get("/lessons")
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("list lessons: %s: %s", resp.Status(), failure.Error)
	}
	return lessons, nil
}

// SetSpace atualiza apenas o campo space de uma aula
func (c *LessonsClient) SetSpace(ctx context.Context, id string, space int) (*Lesson, error) {
	var updated updateResponse
	var failure apiError

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetBody(map[string]int{"space": space}).
		SetResult(&updated).
		SetError(&failure).
		Put("/lessons/{id}")
	if err != nil {
		return nil, fmt.Errorf("update lesson %s: %w", id, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("update lesson %s: %s: %s", id, resp.Status(), failure.Error)
	}
	return &updated.Lesson, nil
}
