package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeLessonsAPI imita GET /lessons e PUT /lessons/:id do lessons-service
type fakeLessonsAPI struct {
	mu      sync.Mutex
	lessons []Lesson
	updates []string
}

func (f *fakeLessonsAPI) router() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	r.GET("/lessons", func(c *gin.Context) {
		f.mu.Lock()
		defer f.mu.Unlock()
		c.JSON(http.StatusOK, f.lessons)
	})

	r.PUT("/lessons/:id", func(c *gin.Context) {
		var body struct {
			Space *int `json:"space"`
		}
		if err := c.ShouldBindJSON(&body); err != nil || body.Space == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Request body is required"})
			return
		}

		f.mu.Lock()
		defer f.mu.Unlock()
		for i := range f.lessons {
			if f.lessons[i].ID == c.Param("id") {
				f.lessons[i].Space = *body.Space
				f.updates = append(f.updates, c.Param("id"))
				c.JSON(http.StatusOK, gin.H{"message": "Lesson availability updated successfully", "lesson": f.lessons[i]})
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Lesson not found"})
	})

	return r
}

func newFakeAPI(t *testing.T, lessons ...Lesson) (*fakeLessonsAPI, *LessonsClient) {
	t.Helper()
	api := &fakeLessonsAPI{lessons: lessons}
	srv := httptest.NewServer(api.router())
	t.Cleanup(srv.Close)
	return api, NewLessonsClient(srv.URL, 2*time.Second)
}

func TestRestock(t *testing.T) {
	// Arrange
	api, client := newFakeAPI(t,
		Lesson{ID: "a", Subject: "Art", Space: 0},
		Lesson{ID: "b", Subject: "Biology", Space: 3},
		Lesson{ID: "c", Subject: "Chess", Space: 0},
	)

	// Act
	n, err := restock(context.Background(), client, 5, zap.NewNop())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"a", "c"}, api.updates)
	assert.Equal(t, 5, api.lessons[0].Space)
	assert.Equal(t, 3, api.lessons[1].Space)
	assert.Equal(t, 5, api.lessons[2].Space)
}

func TestRestock_NothingSoldOut(t *testing.T) {
	api, client := newFakeAPI(t, Lesson{ID: "a", Subject: "Art", Space: 2})

	n, err := restock(context.Background(), client, 5, zap.NewNop())

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, api.updates)
}

func TestRestock_RejectsNonPositiveSpace(t *testing.T) {
	_, client := newFakeAPI(t)

	_, err := restock(context.Background(), client, 0, zap.NewNop())

	assert.ErrorContains(t, err, "space must be positive")
}

func TestSetSpace(t *testing.T) {
	// Arrange
	api, client := newFakeAPI(t,
		Lesson{ID: "a", Subject: "Music", Space: 6},
		Lesson{ID: "b", Subject: "Music Theory", Space: 2},
	)

	// Act
	updated, err := setSpace(context.Background(), client, "Music", 0, zap.NewNop())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "a", updated.ID)
	assert.Equal(t, 0, updated.Space)
	assert.Equal(t, []string{"a"}, api.updates)
	assert.Equal(t, 2, api.lessons[1].Space)
}

func TestSetSpace_UnknownSubject(t *testing.T) {
	_, client := newFakeAPI(t, Lesson{ID: "a", Subject: "Music", Space: 6})

	_, err := setSpace(context.Background(), client, "music", 1, zap.NewNop())

	assert.ErrorContains(t, err, `lesson "music" not found`)
}

func TestSetSpace_Validation(t *testing.T) {
	_, client := newFakeAPI(t)

	_, err := setSpace(context.Background(), client, "", 1, zap.NewNop())
	assert.ErrorContains(t, err, "subject is required")

	_, err = setSpace(context.Background(), client, "Music", -1, zap.NewNop())
	assert.ErrorContains(t, err, "must not be negative")
}

func TestLessonsClient_SetSpaceSurfacesAPIError(t *testing.T) {
	_, client := newFakeAPI(t)

	_, err := client.SetSpace(context.Background(), "missing", 1)

	assert.ErrorContains(t, err, "Lesson not found")
}

func TestExport(t *testing.T) {
	// Arrange
	lessons := []Lesson{
		{ID: "a", Subject: "Art", Location: "London", Price: 80, Space: 3, Icon: "fa-paint"},
		{ID: "b", Subject: "Biology", Location: "Leeds", Price: 90.5, Space: 0, Icon: "fa-leaf"},
	}
	_, client := newFakeAPI(t, lessons...)
	var out bytes.Buffer

	// Act
	n, err := export(context.Background(), client, &out)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Contains(t, out.String(), "\n  {\n    \"_id\": \"a\",")

	var decoded []Lesson
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, lessons, decoded)
}

func TestRun_UnknownCommand(t *testing.T) {
	_, client := newFakeAPI(t)

	err := run(context.Background(), []string{"delete-all"}, client, zap.NewNop())

	assert.ErrorContains(t, err, `unknown command "delete-all"`)
}

func TestRun_MissingCommand(t *testing.T) {
	err := run(context.Background(), nil, nil, zap.NewNop())

	assert.ErrorContains(t, err, "missing command")
}

func TestRun_SetSpace(t *testing.T) {
	api, client := newFakeAPI(t, Lesson{ID: "a", Subject: "Drama", Space: 6})

	err := run(context.Background(), []string{"set-space", "-subject", "Drama", "-space", "1"}, client, zap.NewNop())

	require.NoError(t, err)
	assert.Equal(t, 1, api.lessons[0].Space)
}
