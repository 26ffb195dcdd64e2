package domain

import (
	"errors"
	"testing"
)

func TestGenerateSlots_FullDayGrid(t *testing.T) {
	slots, err := GenerateSlots("09:00", "17:00", 30)
	if err != nil {
		t.Fatalf("GenerateSlots error: %v", err)
	}
	if len(slots) != 16 {
		t.Fatalf("len(slots) = %d, want 16", len(slots))
	}
	if slots[0].StartTime != "09:00" || slots[0].EndTime != "09:30" {
		t.Fatalf("first slot = %+v, want 09:00-09:30", slots[0])
	}
	if slots[15].StartTime != "16:30" || slots[15].EndTime != "17:00" {
		t.Fatalf("last slot = %+v, want 16:30-17:00", slots[15])
	}
}

func TestGenerateSlots_DropsTrailingPartialSlot(t *testing.T) {
	slots, err := GenerateSlots("09:00", "17:10", 30)
	if err != nil {
		t.Fatalf("GenerateSlots error: %v", err)
	}
	if len(slots) != 16 {
		t.Fatalf("len(slots) = %d, want 16", len(slots))
	}
	if slots[15].EndTime != "17:00" {
		t.Fatalf("last slot end = %q, want 17:00", slots[15].EndTime)
	}
}

func TestGenerateSlots_WindowTooShortForOneSlot(t *testing.T) {
	slots, err := GenerateSlots("09:00", "09:20", 30)
	if err != nil {
		t.Fatalf("GenerateSlots error: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("len(slots) = %d, want 0", len(slots))
	}
}

func TestGenerateSlots_RejectsInvertedWindow(t *testing.T) {
	for _, end := range []string{"09:00", "08:00"} {
		_, err := GenerateSlots("09:00", end, 30)
		if !errors.Is(err, ErrWindowInverted) {
			t.Fatalf("end=%s: err = %v, want %v", end, err, ErrWindowInverted)
		}
	}
}

func TestGenerateSlots_RejectsNonPositiveDuration(t *testing.T) {
	for _, d := range []int{0, -15} {
		_, err := GenerateSlots("09:00", "17:00", d)
		if !errors.Is(err, ErrInvalidDuration) {
			t.Fatalf("duration=%d: err = %v, want %v", d, err, ErrInvalidDuration)
		}
	}
}

func TestGenerateSlots_RejectsMalformedBounds(t *testing.T) {
	if _, err := GenerateSlots("9:00", "17:00", 30); err == nil {
		t.Fatalf("expected error for non-canonical start")
	}
	if _, err := GenerateSlots("09:00", "17h00", 30); err == nil {
		t.Fatalf("expected error for malformed end")
	}
}

func TestCombineDateTime(t *testing.T) {
	got, err := CombineDateTime("2026-03-02", "14:30")
	if err != nil {
		t.Fatalf("CombineDateTime error: %v", err)
	}
	if got.Year() != 2026 || got.Month() != 3 || got.Day() != 2 || got.Hour() != 14 || got.Minute() != 30 {
		t.Fatalf("combined = %v", got)
	}

	if _, err := CombineDateTime("2026-3-2", "14:30"); err == nil {
		t.Fatalf("expected error for non-canonical date")
	}
	if _, err := CombineDateTime("2026-03-02", "14:75"); err == nil {
		t.Fatalf("expected error for invalid minute")
	}
}

func TestAppointmentStatusTerminal(t *testing.T) {
	if AppointmentRequested.Terminal() || AppointmentConfirmed.Terminal() {
		t.Fatalf("live statuses must not be terminal")
	}
	if !AppointmentCancelled.Terminal() || !AppointmentCompleted.Terminal() {
		t.Fatalf("cancelled/completed must be terminal")
	}
	if AppointmentStatus("pending").Valid() {
		t.Fatalf("unknown status must not validate")
	}
}
