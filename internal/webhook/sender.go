// Package webhook notifies configured endpoints about queue lifecycle
// events. Endpoints come from the config file; delivery is best-effort
// with a small bounded retry and never blocks the queue.
package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/orrn/printflow/internal/config"
	"github.com/orrn/printflow/internal/core"
	"github.com/orrn/printflow/internal/metrics"
)

type Event string

const (
	EventJobQueued        Event = "job_queued"
	EventJobCompleted     Event = "job_completed"
	EventJobAttemptFailed Event = "job_attempt_failed"
)

type Payload struct {
	Event     string       `json:"event"`
	Timestamp time.Time    `json:"timestamp"`
	Data      JobEventData `json:"data"`
	Signature string       `json:"signature,omitempty"`
}

type JobEventData struct {
	JobID          string `json:"job_id"`
	DisplayName    string `json:"display_name"`
	DeliveryNumber string `json:"delivery_number,omitempty"`
	PrinterIndex   int    `json:"printer_index"`
	Attempts       int    `json:"attempts"`
	ErrorMessage   string `json:"error_message,omitempty"`
}

type task struct {
	endpoint config.WebhookConfig
	payload  *Payload
}

// Sender implements core.Notifier.
type Sender struct {
	endpoints  []config.WebhookConfig
	httpClient *http.Client
	retryCount int
	retryDelay time.Duration
	queue      chan *task
	stopCh     chan struct{}
	wg         sync.WaitGroup
}

func NewSender(endpoints []config.WebhookConfig) *Sender {
	return &Sender{
		endpoints:  endpoints,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retryCount: 3,
		retryDelay: 5 * time.Second,
		queue:      make(chan *task, 100),
		stopCh:     make(chan struct{}),
	}
}

func (s *Sender) Start() {
	for i := 0; i < 3; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
}

func (s *Sender) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

func (s *Sender) JobQueued(job *core.QueuedJob) {
	s.enqueue(EventJobQueued, eventData(job, ""))
}

func (s *Sender) JobCompleted(job *core.QueuedJob) {
	s.enqueue(EventJobCompleted, eventData(job, ""))
}

func (s *Sender) JobAttemptFailed(job *core.QueuedJob, errMsg string) {
	s.enqueue(EventJobAttemptFailed, eventData(job, errMsg))
}

func eventData(job *core.QueuedJob, errMsg string) JobEventData {
	return JobEventData{
		JobID:          job.ID,
		DisplayName:    job.Job.DisplayName,
		DeliveryNumber: job.Job.DeliveryNumber,
		PrinterIndex:   job.PrinterIndex,
		Attempts:       job.Attempts,
		ErrorMessage:   errMsg,
	}
}

func (s *Sender) enqueue(event Event, data JobEventData) {
	for _, endpoint := range s.endpoints {
		if !subscribed(endpoint.Events, event) {
			continue
		}
		t := &task{
			endpoint: endpoint,
			payload: &Payload{
				Event:     string(event),
				Timestamp: time.Now(),
				Data:      data,
			},
		}
		select {
		case s.queue <- t:
		default:
			log.Printf("[webhook] queue full, dropping %s for %s", event, endpoint.URL)
			metrics.WebhooksSent.WithLabelValues("dropped").Inc()
		}
	}
}

// subscribed treats an empty event list as a subscription to everything.
func subscribed(events []string, event Event) bool {
	if len(events) == 0 {
		return true
	}
	for _, e := range events {
		if e == string(event) {
			return true
		}
	}
	return false
}

func (s *Sender) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopCh:
			return
		case t := <-s.queue:
			if err := s.sendWithRetry(t); err != nil {
				log.Printf("[webhook worker %d] giving up on %s for %s: %v",
					id, t.payload.Event, t.endpoint.URL, err)
				metrics.WebhooksSent.WithLabelValues("failed").Inc()
				continue
			}
			metrics.WebhooksSent.WithLabelValues("ok").Inc()
		}
	}
}

func (s *Sender) sendWithRetry(t *task) error {
	var lastErr error
	for attempt := 1; attempt <= s.retryCount; attempt++ {
		err := s.send(t.endpoint, t.payload)
		if err == nil {
			return nil
		}
		lastErr = err

		if isClientError(err) {
			return err
		}

		if attempt < s.retryCount {
			backoff := s.retryDelay * time.Duration(1<<(attempt-1))
			select {
			case <-s.stopCh:
				return fmt.Errorf("shutdown requested")
			case <-time.After(backoff):
			}
		}
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (s *Sender) send(endpoint config.WebhookConfig, payload *Payload) error {
	dataBytes, err := json.Marshal(payload.Data)
	if err != nil {
		return fmt.Errorf("marshal data: %w", err)
	}

	if endpoint.Secret != "" {
		payload.Signature = sign(dataBytes, endpoint.Secret)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, endpoint.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Event", payload.Event)
	if payload.Signature != "" {
		req.Header.Set("X-Webhook-Signature", payload.Signature)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("http error: %d", resp.StatusCode)
	}
	return nil
}

func sign(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

func isClientError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "http error: 4")
}
