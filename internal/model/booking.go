package model

import (
	"fmt"
	"strings"
	"time"
)

type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceNA      AttendanceStatus = "N/A"
)

func ParseAttendance(value string) (AttendanceStatus, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "present":
		return AttendancePresent, nil
	case "absent":
		return AttendanceAbsent, nil
	case "", "n/a", "na", "none":
		return AttendanceNA, nil
	default:
		return "", fmt.Errorf("invalid attendance %q", value)
	}
}

const (
	BookingTypeSchedule = "schedule"
	BookingTypeHome     = "home"
)

type Booking struct {
	ID          string           `json:"_id"`
	TestName    string           `json:"testName,omitempty"`
	TestType    string           `json:"testType,omitempty"`
	TestSystem  string           `json:"testSystem,omitempty"`
	ScheduleID  string           `json:"scheduleId,omitempty"`
	SlotID      string           `json:"slotId,omitempty"`
	Date        string           `json:"date,omitempty"`
	StartTime   string           `json:"startTime,omitempty"`
	EndTime     string           `json:"endTime,omitempty"`
	UserID      UserRef          `json:"userId"`
	Name        string           `json:"name,omitempty"`
	Email       string           `json:"email,omitempty"`
	Phone       string           `json:"phone,omitempty"`
	Attendance  AttendanceStatus `json:"attendance,omitempty"`
	BookingType string           `json:"bookingType,omitempty"`
	User        *User            `json:"user,omitempty"`
	CreatedAt   *time.Time       `json:"createdAt,omitempty"`
}

// RowActions are the per-row actions a dashboard table offers for a booking.
type RowActions struct {
	CanViewTRF        bool `json:"canViewTrf"`
	CanAssignTeachers bool `json:"canAssignTeachers"`
}

func (b Booking) Actions() RowActions {
	attended := b.AttendanceStatus() != AttendanceAbsent
	return RowActions{CanViewTRF: attended, CanAssignTeachers: attended}
}

func (b Booking) AttendanceStatus() AttendanceStatus {
	status, err := ParseAttendance(string(b.Attendance))
	if err != nil {
		return AttendanceNA
	}
	return status
}

func (b Booking) CandidateName() string {
	if strings.TrimSpace(b.Name) != "" {
		return strings.TrimSpace(b.Name)
	}
	if b.User != nil {
		return strings.TrimSpace(b.User.Name)
	}
	return ""
}

func (b Booking) CandidateEmail() string {
	if strings.TrimSpace(b.Email) != "" {
		return strings.TrimSpace(b.Email)
	}
	if b.User != nil {
		return strings.TrimSpace(b.User.Email)
	}
	return ""
}

func (b Booking) CandidatePhone() string {
	if strings.TrimSpace(b.Phone) != "" {
		return strings.TrimSpace(b.Phone)
	}
	if b.User != nil {
		return strings.TrimSpace(b.User.ContactNo)
	}
	return ""
}

func (b Booking) Type() string {
	if b.BookingType == BookingTypeHome || (b.BookingType == "" && b.ScheduleID == "") {
		return BookingTypeHome
	}
	return BookingTypeSchedule
}

func (b Booking) Field(name string) string {
	switch name {
	case "id":
		return b.ID
	case "testName", "course":
		return b.TestName
	case "testType":
		return b.TestType
	case "testSystem":
		return b.TestSystem
	case "scheduleId":
		return b.ScheduleID
	case "slotId":
		return b.SlotID
	case "date":
		return b.Date
	case "startTime":
		return b.StartTime
	case "attendance":
		return string(b.AttendanceStatus())
	case "bookingType":
		return b.Type()
	case "name":
		return b.CandidateName()
	case "email":
		return b.CandidateEmail()
	case "userId":
		return b.UserID.First()
	default:
		return ""
	}
}

func (b Booking) SearchText() []string {
	return []string{b.CandidateName(), b.CandidateEmail()}
}

func (b Booking) DateValue() string { return b.Date }

// AttendanceUpdate sets attendance for one booking. An empty ScheduleID addresses
// the candidate's home booking.
type AttendanceUpdate struct {
	UserID     string           `json:"userId" validate:"required"`
	ScheduleID string           `json:"scheduleId,omitempty"`
	BookingID  string           `json:"bookingId,omitempty"`
	Attendance AttendanceStatus `json:"attendance" validate:"required,oneof=present absent N/A"`
}

// AttendanceRecord is one row of a candidate's attendance history.
type AttendanceRecord struct {
	ScheduleID string           `json:"scheduleId,omitempty"`
	TestName   string           `json:"testName,omitempty"`
	Date       string           `json:"date,omitempty"`
	Attendance AttendanceStatus `json:"attendance"`
}

type BookSlotRequest struct {
	UserID     string `json:"userId" validate:"required"`
	ScheduleID string `json:"scheduleId" validate:"required"`
	SlotID     string `json:"slotId" validate:"required"`
	TestType   string `json:"testType,omitempty"`
	TestSystem string `json:"testSystem,omitempty"`
}
