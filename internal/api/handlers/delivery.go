package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orrn/printflow/internal/core"
)

type DeliveryHandler struct {
	sequence *core.DeliverySequence
}

func NewDeliveryHandler(sequence *core.DeliverySequence) *DeliveryHandler {
	return &DeliveryHandler{sequence: sequence}
}

// State exposes the live delivery-number state for operators.
func (h *DeliveryHandler) State(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"letter":          string(h.sequence.Letter()),
		"file_number":     h.sequence.FileNumber(),
		"total_today":     h.sequence.TotalToday(),
		"at_letter_start": h.sequence.AtLetterStart(),
	})
}
