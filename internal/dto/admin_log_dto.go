// FILE: internal/dto/admin_log_dto.go
package dto

import "time"

// AccessLogEntry is one line of the decision log. Id is an MD5 of the raw
// line, not a UUID.
type AccessLogEntry struct {
	Id        string                 `json:"id"`
	Level     string                 `json:"level"`
	Module    string                 `json:"module"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

type AccessLogQuery struct {
	Level string `query:"level" validate:"omitempty,oneof=debug info warn error"`
	Page  int    `query:"page"`
	Limit int    `query:"limit"`
}
