package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orrn/printflow/internal/core"
	"github.com/orrn/printflow/internal/db"
)

type SubmitJobRequest struct {
	FileURL      string          `json:"file_url" binding:"required"`
	DisplayName  string          `json:"display_name"`
	MimeType     string          `json:"mime_type"`
	PrinterIndex int             `json:"printer_index"`
	Options      PrintOptionsDTO `json:"options"`
	Order        *OrderInfoDTO   `json:"order"`
}

type PrintOptionsDTO struct {
	PageSize   string                    `json:"page_size"`
	ColorMode  string                    `json:"color_mode"`
	Sided      string                    `json:"sided"`
	Copies     int                       `json:"copies"`
	PageCount  int                       `json:"page_count"`
	PageColors *core.PageColorAssignment `json:"page_colors"`
}

type OrderInfoDTO struct {
	OrderID      string `json:"order_id"`
	CustomerName string `json:"customer_name"`
	Phone        string `json:"phone"`
	Summary      string `json:"summary"`
}

type QueuedJobResponse struct {
	ID             string     `json:"id"`
	DisplayName    string     `json:"display_name"`
	DeliveryNumber string     `json:"delivery_number,omitempty"`
	PrinterIndex   int        `json:"printer_index"`
	Attempts       int        `json:"attempts"`
	CreatedAt      time.Time  `json:"created_at"`
	LastAttemptAt  *time.Time `json:"last_attempt_at,omitempty"`
}

type QueueResponse struct {
	Total   int                 `json:"total"`
	Pending int                 `json:"pending"`
	Jobs    []QueuedJobResponse `json:"jobs"`
}

type JobHandler struct {
	queue   *core.Queue
	history *db.History
}

func NewJobHandler(queue *core.Queue, history *db.History) *JobHandler {
	return &JobHandler{queue: queue, history: history}
}

// SubmitJob accepts a paid print job from the ordering service. Malformed
// submissions are the only failures a submitter ever sees; once accepted,
// a job can only leave the queue through a successful print.
func (h *JobHandler) SubmitJob(c *gin.Context) {
	var req SubmitJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	displayName := req.DisplayName
	if displayName == "" {
		displayName = req.FileURL
	}

	job := &core.PrintJob{
		FileURL:     req.FileURL,
		DisplayName: displayName,
		MimeType:    req.MimeType,
		Options: core.PrintOptions{
			PageSize:   core.PageSize(req.Options.PageSize),
			ColorMode:  core.ColorMode(req.Options.ColorMode),
			Sided:      core.Sided(req.Options.Sided),
			Copies:     req.Options.Copies,
			PageCount:  req.Options.PageCount,
			PageColors: req.Options.PageColors,
		},
	}
	if req.Order != nil {
		job.Order = &core.OrderInfo{
			OrderID:      req.Order.OrderID,
			CustomerName: req.Order.CustomerName,
			Phone:        req.Order.Phone,
			Summary:      req.Order.Summary,
		}
	}

	jobID, err := h.queue.Enqueue(job, req.PrinterIndex)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":      jobID,
		"message": "job queued",
	})
}

// QueueStatus reports the current list including attempt counts and last
// attempt timestamps so a stuck job is observable.
func (h *JobHandler) QueueStatus(c *gin.Context) {
	status := h.queue.Status()

	jobs := make([]QueuedJobResponse, len(status.Jobs))
	for i, j := range status.Jobs {
		jobs[i] = QueuedJobResponse{
			ID:             j.ID,
			DisplayName:    j.Job.DisplayName,
			DeliveryNumber: j.Job.DeliveryNumber,
			PrinterIndex:   j.PrinterIndex,
			Attempts:       j.Attempts,
			CreatedAt:      j.CreatedAt,
			LastAttemptAt:  j.LastAttemptAt,
		}
	}

	c.JSON(http.StatusOK, QueueResponse{
		Total:   status.Total,
		Pending: status.Pending,
		Jobs:    jobs,
	})
}

// ClearQueue is the administrative escape hatch.
func (h *JobHandler) ClearQueue(c *gin.Context) {
	if err := h.queue.Clear(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear queue"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "queue cleared"})
}

type ListHistoryQuery struct {
	Limit  int `form:"limit" binding:"max=200"`
	Offset int `form:"offset"`
}

func (h *JobHandler) ListHistory(c *gin.Context) {
	var query ListHistoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if query.Limit <= 0 {
		query.Limit = 50
	}

	entries, err := h.history.List(query.Limit, query.Offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query history"})
		return
	}
	if entries == nil {
		entries = []*db.Entry{}
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
