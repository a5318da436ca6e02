package model

import (
	"time"
)

type SignupRequest struct {
	Email string `json:"email,omitempty" validate:"required,email"`
}

type SignupResponse struct {
	Email string `json:"email,omitempty"`
	Token string `json:"token,omitempty"`
}

type UserResponse struct {
	Email     string `json:"email"`
	AccountID string `json:"accountID"`
}

type LoginRequest struct {
	Email string `json:"email,omitempty" validate:"required,email"`
	Token string `json:"token,omitempty" validate:"required"`
}

type RecordRequest struct {
	Hostname  string `json:"hostname,omitempty" validate:"required,dns_label"`
	IPAddress string `json:"ipAddress,omitempty" validate:"required,ipv4_addr"`
}

// UpdateRecordRequest only changes the fields that are set.
type UpdateRecordRequest struct {
	Hostname  string `json:"hostname,omitempty" validate:"omitempty,dns_label"`
	IPAddress string `json:"ipAddress,omitempty" validate:"omitempty,ipv4_addr"`
}

// RefreshRequest keeps a record alive. When IPAddress is empty the caller's address is used.
type RefreshRequest struct {
	Hostname  string `json:"hostname,omitempty" validate:"required,dns_label"`
	IPAddress string `json:"ipAddress,omitempty" validate:"omitempty,ipv4_addr"`
}

type RecordResponse struct {
	ID               uint        `json:"id"`
	Hostname         string      `json:"hostname"`
	IPAddress        string      `json:"ipAddress"`
	PreviousHostname string      `json:"previousHostname,omitempty"`
	State            RecordState `json:"state"`
	LastRefreshedAt  time.Time   `json:"lastRefreshedAt"`
}

type ErrorResponse struct {
	Status  int         `json:"status,omitempty"`
	Message string      `json:"msg,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}
