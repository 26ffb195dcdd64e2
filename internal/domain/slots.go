package domain

import (
	"errors"
	"fmt"
	"time"
)

// Default grid used when a provider has declared no slots for a date.
const (
	DefaultDayStart    = "09:00"
	DefaultDayEnd      = "17:00"
	DefaultSlotMinutes = 30
)

type Slot struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

var (
	ErrWindowInverted  = errors.New("window end must be after window start")
	ErrInvalidDuration = errors.New("duration must be positive")
)

// GenerateSlots walks from windowStart to windowEnd in durationMinutes steps
// and returns the slots that fit entirely inside the window. A trailing
// partial slot is dropped, never truncated.
func GenerateSlots(windowStart, windowEnd string, durationMinutes int) ([]Slot, error) {
	if durationMinutes <= 0 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidDuration, durationMinutes)
	}
	start, err := ParseClockTime(windowStart)
	if err != nil {
		return nil, err
	}
	end, err := ParseClockTime(windowEnd)
	if err != nil {
		return nil, err
	}
	if !end.After(start) {
		return nil, fmt.Errorf("%w (%s..%s)", ErrWindowInverted, windowStart, windowEnd)
	}

	step := time.Duration(durationMinutes) * time.Minute
	var out []Slot
	for t := start; ; t = t.Add(step) {
		slotEnd := t.Add(step)
		if slotEnd.After(end) {
			break
		}
		out = append(out, Slot{
			StartTime: t.Format(TimeLayout),
			EndTime:   slotEnd.Format(TimeLayout),
		})
	}
	return out, nil
}
