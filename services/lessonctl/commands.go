package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// restock devolve space vagas para toda aula esgotada. Returns how many lessons changed.
func restock(ctx context.Context, client *LessonsClient, space int, logger *zap.Logger) (int, error) {
	if space <= 0 {
		return 0, fmt.Errorf("space must be positive, got %d", space)
	}

	lessons, err := client.ListLessons(ctx)
	if err != nil {
		return 0, err
	}

	restocked := 0
	for _, lesson := range lessons {
		if lesson.Space != 0 {
			continue
		}
		if _, err := client.SetSpace(ctx, lesson.ID, space); err != nil {
			return restocked, err
		}
		restocked++
		logger.Info("✅ Lesson restocked", zap.String("subject", lesson.Subject), zap.Int("space", space))
	}

	if restocked == 0 {
		logger.Info("All lessons have available spaces")
	}
	return restocked, nil
}

// setSpace define as vagas da aula cujo subject é exatamente subject
func setSpace(ctx context.Context, client *LessonsClient, subject string, space int, logger *zap.Logger) (*Lesson, error) {
	if subject == "" {
		return nil, fmt.Errorf("subject is required")
	}
	if space < 0 {
		return nil, fmt.Errorf("space must not be negative, got %d", space)
	}

	lessons, err := client.ListLessons(ctx)
	if err != nil {
		return nil, err
	}

	for _, lesson := range lessons {
		if lesson.Subject != subject {
			continue
		}
		updated, err := client.SetSpace(ctx, lesson.ID, space)
		if err != nil {
			return nil, err
		}
		logger.Info("✅ Lesson updated",
			zap.String("subject", subject),
			zap.Int("old_space", lesson.Space),
			zap.Int("new_space", updated.Space),
		)
		return updated, nil
	}
	return nil, fmt.Errorf("lesson %q not found", subject)
}

// export escreve todas as aulas em JSON indentado
func export(ctx context.Context, client *LessonsClient, out io.Writer) (int, error) {
	lessons, err := client.ListLessons(ctx)
	if err != nil {
		return 0, err
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(lessons); err != nil {
		return 0, fmt.Errorf("encode lessons: %w", err)
	}
	return len(lessons), nil
}
