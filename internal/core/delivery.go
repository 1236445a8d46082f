package core

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/orrn/printflow/internal/metrics"
)

const (
	// filesPerLetter is the number of file slots issued under one letter
	// before the letter advances. 26 letters x 10 slots = 260 distinct
	// slots per day, after which the cycle wraps within the same day.
	filesPerLetter = 10

	deliveryDateLayout = "20060102"
)

// DeliverySequence issues delivery numbers of the form
// {LETTER}{YYYYMMDD}{PRINTER_INDEX}{FILE_NUMBER}, e.g. A2025011511.
// The state resets to the configured start letter whenever the calendar
// date changes between calls.
type DeliverySequence struct {
	mu            sync.Mutex
	startLetter   byte
	letter        byte
	countInLetter int
	fileNumber    int
	totalToday    int
	lastDate      string
	now           func() time.Time
}

// NewDeliverySequence builds a sequence starting at startLetter ('A'..'Z',
// anything else falls back to 'A'). A nil clock means time.Now.
func NewDeliverySequence(startLetter byte, now func() time.Time) *DeliverySequence {
	if startLetter < 'A' || startLetter > 'Z' {
		startLetter = 'A'
	}
	if now == nil {
		now = time.Now
	}
	return &DeliverySequence{
		startLetter: startLetter,
		letter:      startLetter,
		now:         now,
	}
}

// Next issues the next delivery number for printerIndex.
func (s *DeliverySequence) Next(printerIndex int) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := s.now().Format(deliveryDateLayout)
	s.rollDateLocked(today)

	s.countInLetter++
	s.totalToday++

	// fileNumber mirrors countInLetter but wraps on its own. The letter
	// rollover below is the primary trigger; this wrap is a defensive
	// mirror kept for fidelity with the counting behavior.
	s.fileNumber++
	if s.fileNumber > filesPerLetter {
		s.fileNumber = 1
	}

	if s.countInLetter > filesPerLetter {
		s.letter++
		if s.letter > 'Z' {
			s.letter = 'A'
		}
		s.countInLetter = 1
		s.fileNumber = 1
	}

	metrics.DeliveryNumbersIssued.Inc()

	return fmt.Sprintf("%c%s%d%d", s.letter, today, printerIndex, s.fileNumber)
}

func (s *DeliverySequence) rollDateLocked(today string) {
	if s.lastDate == today {
		return
	}
	s.letter = s.startLetter
	s.countInLetter = 0
	s.fileNumber = 0
	s.totalToday = 0
	s.lastDate = today
}

// AtLetterStart reports whether the next issued number will take file
// slot 1 of a (possibly new) letter. Used to decide whether a full-page
// letter separator is due before the next file.
func (s *DeliverySequence) AtLetterStart() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastDate != s.now().Format(deliveryDateLayout) {
		return true
	}
	return s.countInLetter%filesPerLetter == 0
}

// Letter returns the currently active letter.
func (s *DeliverySequence) Letter() byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.letter
}

// FileNumber returns the file number issued by the most recent Next call,
// or 0 if none has been issued today.
func (s *DeliverySequence) FileNumber() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fileNumber
}

// TotalToday returns the number of files issued since the last date roll.
func (s *DeliverySequence) TotalToday() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalToday
}

// ParseDeliveryFileNumber recovers the file-number-within-letter from an
// issued delivery number. Retried jobs re-derive the file number from the
// number already assigned to them instead of querying live state, so a
// retry never advances the counter a second time.
func ParseDeliveryFileNumber(number string, printerIndex int) (int, error) {
	if len(number) < 11 {
		return 0, fmt.Errorf("delivery number %q too short", number)
	}
	if number[0] < 'A' || number[0] > 'Z' {
		return 0, fmt.Errorf("delivery number %q has no letter prefix", number)
	}
	for i := 1; i < 9; i++ {
		if number[i] < '0' || number[i] > '9' {
			return 0, fmt.Errorf("delivery number %q has a malformed date", number)
		}
	}
	idx := strconv.Itoa(printerIndex)
	suffix := number[9:]
	if !strings.HasPrefix(suffix, idx) {
		return 0, fmt.Errorf("delivery number %q does not match printer index %d", number, printerIndex)
	}
	n, err := strconv.Atoi(suffix[len(idx):])
	if err != nil {
		return 0, fmt.Errorf("delivery number %q has a malformed file number", number)
	}
	if n < 1 || n > filesPerLetter {
		return 0, fmt.Errorf("delivery number %q file number %d out of range", number, n)
	}
	return n, nil
}
