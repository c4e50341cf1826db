package booking

import "fmt"

// Slot is one bookable start time on a given day.
type Slot struct {
	StartTime string `json:"startTime"` // HH:MM, 24h
	Display   string `json:"display"`   // 12h label for the booking form
}

// AvailableSlots enumerates hourly start times between openHour and
// closeHour where a booking of durationHours fits without overlapping any
// active booking already on the books for that day. The ceremony must end
// by closeHour.
func AvailableSlots(openHour, closeHour, durationHours int, existing []Booking) []Slot {
	if durationHours < 1 {
		durationHours = 1
	}

	taken := make(map[int]bool)
	for _, b := range existing {
		if !b.Active() {
			continue
		}
		start, ok := parseHour(b.StartTime)
		if !ok {
			continue
		}
		for h := start; h < start+b.DurationHours; h++ {
			taken[h] = true
		}
	}

	slots := []Slot{}
	for h := openHour; h+durationHours <= closeHour; h++ {
		free := true
		for c := h; c < h+durationHours; c++ {
			if taken[c] {
				free = false
				break
			}
		}
		if free {
			slots = append(slots, Slot{StartTime: formatHour(h), Display: displayHour(h)})
		}
	}
	return slots
}

func parseHour(hhmm string) (int, bool) {
	var h, m int
	if _, err := fmt.Sscanf(hhmm, "%d:%d", &h, &m); err != nil {
		return 0, false
	}
	if h < 0 || h > 23 {
		return 0, false
	}
	return h, true
}

func formatHour(h int) string {
	return fmt.Sprintf("%02d:00", h)
}

func displayHour(h int) string {
	switch {
	case h == 0:
		return "12:00 AM"
	case h < 12:
		return fmt.Sprintf("%d:00 AM", h)
	case h == 12:
		return "12:00 PM"
	default:
		return fmt.Sprintf("%d:00 PM", h-12)
	}
}
