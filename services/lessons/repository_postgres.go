package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS lessons (
	id       UUID PRIMARY KEY,
	subject  TEXT NOT NULL,
	location TEXT NOT NULL,
	price    DOUBLE PRECISION NOT NULL CHECK (price >= 0),
	space    INTEGER NOT NULL CHECK (space >= 0),
	icon     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS orders (
	id         UUID PRIMARY KEY,
	name       TEXT NOT NULL,
	phone      TEXT NOT NULL,
	lessons    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
`

const lessonColumns = "id, subject, location, price, space, icon"

// PostgresLessonRepository implementa LessonRepository usando PostgreSQL
type PostgresLessonRepository struct {
	db *pgxpool.Pool
}

// NewPostgresLessonRepository cria uma nova instância de PostgresLessonRepository
func NewPostgresLessonRepository(db *pgxpool.Pool) *PostgresLessonRepository {
	return &PostgresLessonRepository{db: db}
}

func parseLessonUUID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, ErrInvalidLessonID
	}
	return parsed, nil
}

func scanLesson(row pgx.Row) (*Lesson, error) {
	var (
		lesson Lesson
		id     uuid.UUID
	)
	if err := row.Scan(&id, &lesson.Subject, &lesson.Location, &lesson.Price, &lesson.Space, &lesson.Icon); err != nil {
		return nil, err
	}
	lesson.ID = id.String()
	return &lesson, nil
}

// GetLesson busca uma aula pelo ID
func (r *PostgresLessonRepository) GetLesson(ctx context.Context, id string) (*Lesson, error) {
	lessonID, err := parseLessonUUID(id)
	if err != nil {
		return nil, err
	}

	lesson, err := scanLesson(r.db.QueryRow(ctx, `SELECT `+lessonColumns+` FROM lessons WHERE id = $1`, lessonID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLessonNotFound
		}
		return nil, storeError("get lesson", err)
	}
	return lesson, nil
}

// ListLessons retorna todas as aulas
func (r *PostgresLessonRepository) ListLessons(ctx context.Context) ([]Lesson, error) {
	return r.query(ctx, `SELECT `+lessonColumns+` FROM lessons`)
}

// FindLessons usa ~* (regex case-insensitive) com o mesmo padrão escapado do Mongo
func (r *PostgresLessonRepository) FindLessons(ctx context.Context, criteria SearchCriteria) ([]Lesson, error) {
	query, args := searchQuery(criteria)
	return r.query(ctx, query, args...)
}

// searchQuery monta o SELECT com as condições OR da busca
func searchQuery(criteria SearchCriteria) (string, []any) {
	args := []any{criteria.Pattern}
	conditions := []string{"subject ~* $1", "location ~* $1"}

	if criteria.Price != nil {
		args = append(args, *criteria.Price)
		conditions = append(conditions, fmt.Sprintf("price = $%d", len(args)))
	}
	if criteria.Space != nil {
		args = append(args, *criteria.Space)
		conditions = append(conditions, fmt.Sprintf("space = $%d", len(args)))
	}

	return `SELECT ` + lessonColumns + ` FROM lessons WHERE ` + strings.Join(conditions, " OR "), args
}

func (r *PostgresLessonRepository) query(ctx context.Context, sql string, args ...any) ([]Lesson, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, storeError("query lessons", err)
	}
	defer rows.Close()

	lessons := make([]Lesson, 0)
	for rows.Next() {
		lesson, err := scanLesson(rows)
		if err != nil {
			return nil, storeError("scan lesson", err)
		}
		lessons = append(lessons, *lesson)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterate lessons", err)
	}
	return lessons, nil
}

// ReserveSpaces decrementa as vagas com UPDATE condicional, sem SELECT prévio
func (r *PostgresLessonRepository) ReserveSpaces(ctx context.Context, id string, quantity int) (*Lesson, error) {
	lessonID, err := parseLessonUUID(id)
	if err != nil {
		return nil, err
	}

	updateQuery := `
		UPDATE lessons
		SET space = space - $2
		WHERE id = $1
			AND space >= $2
		RETURNING ` + lessonColumns

	lesson, err := scanLesson(r.db.QueryRow(ctx, updateQuery, lessonID, quantity))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.unmatchedReservation(ctx, lessonID)
		}
		return nil, storeError("reserve spaces", err)
	}
	return lesson, nil
}

func (r *PostgresLessonRepository) unmatchedReservation(ctx context.Context, id uuid.UUID) error {
	var exists bool
	err := r.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM lessons WHERE id = $1)", id).Scan(&exists)
	if err != nil {
		return storeError("check lesson", err)
	}
	if !exists {
		return ErrLessonNotFound
	}
	return ErrInsufficientCapacity
}

// UpdateLesson aplica somente as colunas presentes no patch
func (r *PostgresLessonRepository) UpdateLesson(ctx context.Context, id string, patch LessonPatch) (*Lesson, error) {
	lessonID, err := parseLessonUUID(id)
	if err != nil {
		return nil, err
	}

	set, args := updateAssignments(patch)
	if len(set) == 0 {
		return nil, ErrInvalidPatch
	}
	args = append(args, lessonID)

	updateQuery := fmt.Sprintf(`UPDATE lessons SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(set, ", "), len(args), lessonColumns)

	lesson, err := scanLesson(r.db.QueryRow(ctx, updateQuery, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLessonNotFound
		}
		return nil, storeError("update lesson", err)
	}
	return lesson, nil
}

// updateAssignments returns "column = $n" pairs and their arguments in column order.
func updateAssignments(patch LessonPatch) ([]string, []any) {
	var (
		set  []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Subject != nil {
		add("subject", *patch.Subject)
	}
	if patch.Location != nil {
		add("location", *patch.Location)
	}
	if patch.Price != nil {
		add("price", *patch.Price)
	}
	if patch.Space != nil {
		add("space", *patch.Space)
	}
	if patch.Icon != nil {
		add("icon", *patch.Icon)
	}
	return set, args
}

func (r *PostgresLessonRepository) CountLessons(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM lessons").Scan(&n); err != nil {
		return 0, storeError("count lessons", err)
	}
	return n, nil
}

func (r *PostgresLessonRepository) InsertLessons(ctx context.Context, lessons []Lesson) error {
	batch := &pgx.Batch{}
	for _, l := range lessons {
		batch.Queue(`INSERT INTO lessons (`+lessonColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.New(), l.Subject, l.Location, l.Price, l.Space, l.Icon)
	}
	return storeError("insert lessons", r.db.SendBatch(ctx, batch).Close())
}

// PostgresOrderRepository implementa OrderRepository usando PostgreSQL
type PostgresOrderRepository struct {
	db *pgxpool.Pool
}

// NewPostgresOrderRepository cria uma nova instância de PostgresOrderRepository
func NewPostgresOrderRepository(db *pgxpool.Pool) *PostgresOrderRepository {
	return &PostgresOrderRepository{db: db}
}

// CreateOrder grava o pedido com as linhas em JSONB
func (r *PostgresOrderRepository) CreateOrder(ctx context.Context, order *Order) error {
	lines, err := json.Marshal(order.Lessons)
	if err != nil {
		return fmt.Errorf("failed to encode order lessons: %w", err)
	}

	id := uuid.New()
	_, err = r.db.Exec(ctx, `
		INSERT INTO orders (id, name, phone, lessons, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, id, order.Name, order.Phone, lines, order.CreatedAt)
	if err != nil {
		return storeError("insert order", err)
	}

	order.ID = id.String()
	return nil
}

// initPostgres cria o pool, espera o banco ficar pronto e garante o schema
func initPostgres(ctx context.Context, cfg PostgresConfig, logger *zap.Logger) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	if cfg.MaxConns > 0 {
		config.MaxConns = cfg.MaxConns
	}
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Wait for database to be ready
	ready := false
	for i := 0; i < 30; i++ {
		if err := pool.Ping(ctx); err == nil {
			ready = true
			break
		}
		logger.Info("⏳ Waiting for database...", zap.Int("attempt", i+1), zap.Int("max_attempts", 30))
		time.Sleep(1 * time.Second)
	}
	if !ready {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database after 30 attempts")
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return pool, nil
}

var (
	_ LessonRepository = (*PostgresLessonRepository)(nil)
	_ OrderRepository  = (*PostgresOrderRepository)(nil)
)
