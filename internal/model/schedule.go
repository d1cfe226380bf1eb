package model

type TimeSlot struct {
	SlotID         string `json:"slotId"`
	StartTime      string `json:"startTime"`
	EndTime        string `json:"endTime"`
	TotalSeats     int    `json:"totalSlot"`
	AvailableSeats int    `json:"availableSlot"`
}

type Schedule struct {
	ID         string     `json:"_id"`
	Name       string     `json:"name"`
	Course     string     `json:"course,omitempty"`
	TestType   string     `json:"testType,omitempty"`
	TestSystem string     `json:"testSystem,omitempty"`
	StartDate  string     `json:"startDate"`
	Status     string     `json:"status,omitempty"`
	TimeSlots  []TimeSlot `json:"timeSlots,omitempty"`
}

func (s Schedule) Slot(slotID string) (TimeSlot, bool) {
	for _, slot := range s.TimeSlots {
		if slot.SlotID == slotID {
			return slot, true
		}
	}
	return TimeSlot{}, false
}

func (s Schedule) Seats() (total, available int) {
	for _, slot := range s.TimeSlots {
		total += slot.TotalSeats
		available += slot.AvailableSeats
	}
	return total, available
}

func (s Schedule) Field(name string) string {
	switch name {
	case "id":
		return s.ID
	case "name":
		return s.Name
	case "course":
		return s.Course
	case "testType":
		return s.TestType
	case "testSystem":
		return s.TestSystem
	case "status":
		return s.Status
	case "date", "startDate":
		return s.StartDate
	default:
		return ""
	}
}

func (s Schedule) SearchText() []string {
	return []string{s.Name, s.Course}
}

func (s Schedule) DateValue() string { return s.StartDate }
