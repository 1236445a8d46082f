package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orrn/printflow/internal/api"
	"github.com/orrn/printflow/internal/config"
	"github.com/orrn/printflow/internal/core"
	"github.com/orrn/printflow/internal/db"
	"github.com/orrn/printflow/internal/store"
)

func testRouter(t *testing.T) (*gin.Engine, *core.Queue) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	history, err := db.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { history.Close() })

	// The queue is deliberately not started: handler tests exercise the
	// HTTP surface, not the processing loop.
	fs := store.NewFileStore(filepath.Join(t.TempDir(), "queue.json"))
	queue := core.NewQueue(fs, nil, history, nil, &cfg.Queue)
	sequence := core.NewDeliverySequence('A', func() time.Time {
		return time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	})

	return api.NewRouter(cfg, queue, sequence, history), queue
}

func TestSubmitJob(t *testing.T) {
	router, queue := testRouter(t)

	body := map[string]any{
		"file_url":      "http://orders.local/files/doc.pdf",
		"display_name":  "doc.pdf",
		"printer_index": 1,
		"options": map[string]any{
			"color_mode": "mixed",
			"copies":     2,
			"page_count": 10,
			"page_colors": map[string]any{
				"color_pages": []int{2, 3, 7},
			},
		},
	}
	payload, _ := json.Marshal(body)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["id"])

	status := queue.Status()
	require.Equal(t, 1, status.Total)
	assert.Equal(t, core.ColorModeMixed, status.Jobs[0].Job.Options.ColorMode)
	assert.Equal(t, []int{2, 3, 7}, status.Jobs[0].Job.Options.PageColors.ColorPages)
}

func TestSubmitJob_RejectsMalformed(t *testing.T) {
	router, queue := testRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing file url", `{"display_name": "doc.pdf"}`},
		{"negative copies", `{"file_url": "http://x/y.pdf", "options": {"copies": -1}}`},
		{"unknown color mode", `{"file_url": "http://x/y.pdf", "options": {"color_mode": "sepia"}}`},
		{"not json", `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewReader([]byte(tt.body)))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}

	assert.Equal(t, 0, queue.Status().Total)
}

func TestQueueStatusEndpoint(t *testing.T) {
	router, queue := testRouter(t)

	_, err := queue.Enqueue(&core.PrintJob{FileURL: "http://x/a.pdf", DisplayName: "a.pdf"}, 1)
	require.NoError(t, err)
	_, err = queue.Enqueue(&core.PrintJob{FileURL: "http://x/b.pdf", DisplayName: "b.pdf"}, 1)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/queue", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Total   int `json:"total"`
		Pending int `json:"pending"`
		Jobs    []struct {
			DisplayName string `json:"display_name"`
			Attempts    int    `json:"attempts"`
		} `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, 2, resp.Pending)
	require.Len(t, resp.Jobs, 2)
	assert.Equal(t, "a.pdf", resp.Jobs[0].DisplayName)
}

func TestClearQueueRequiresAdmin(t *testing.T) {
	router, queue := testRouter(t)

	_, err := queue.Enqueue(&core.PrintJob{FileURL: "http://x/a.pdf"}, 1)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/queue", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 1, queue.Status().Total)
}

func TestDeliveryStateEndpoint(t *testing.T) {
	router, _ := testRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/delivery", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "A", resp["letter"])
	assert.Equal(t, true, resp["at_letter_start"])
}

func TestHealthz(t *testing.T) {
	router, _ := testRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
