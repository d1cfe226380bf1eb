package model

import (
	"strconv"
	"strings"
	"time"
)

const (
	UserStatusActive    = "active"
	UserStatusChecked   = "checked"
	UserStatusCompleted = "completed"
)

func ValidUserStatus(status string) bool {
	switch status {
	case UserStatusActive, UserStatusChecked, UserStatusCompleted:
		return true
	}
	return false
}

type MockEntry struct {
	ID        string     `json:"_id,omitempty"`
	TestType  string     `json:"testType" validate:"required"`
	MockCount int        `json:"mockCount" validate:"gte=0"`
	Note      string     `json:"note,omitempty" validate:"max=500"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

type User struct {
	ID             string      `json:"_id"`
	Name           string      `json:"name"`
	Email          string      `json:"email"`
	ContactNo      string      `json:"contactNo,omitempty"`
	TransactionID  string      `json:"transactionId,omitempty"`
	PassportNumber string      `json:"passportNumber,omitempty"`
	TotalMock      int         `json:"totalMock"`
	Mocks          []MockEntry `json:"mocks,omitempty"`
	Status         string      `json:"status,omitempty"`
	IsDeleted      bool        `json:"isDeleted"`
	CreatedAt      *time.Time  `json:"createdAt,omitempty"`
}

func (u User) FirstName() string {
	fields := strings.Fields(u.Name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func (u User) FamilyName() string {
	fields := strings.Fields(u.Name)
	if len(fields) < 2 {
		return ""
	}
	return strings.Join(fields[1:], " ")
}

func (u User) Field(name string) string {
	switch name {
	case "id":
		return u.ID
	case "name":
		return u.Name
	case "email":
		return u.Email
	case "status":
		return u.Status
	case "blocked":
		if u.IsDeleted {
			return "blocked"
		}
		return "unblocked"
	case "totalMock":
		return strconv.Itoa(u.TotalMock)
	case "contactNo":
		return u.ContactNo
	case "transactionId":
		return u.TransactionID
	default:
		return ""
	}
}

func (u User) SearchText() []string {
	return []string{u.Name, u.Email}
}

func (u User) DateValue() string {
	if u.CreatedAt == nil {
		return ""
	}
	return u.CreatedAt.UTC().Format(time.RFC3339)
}
