package model

import (
	"time"

	"github.com/google/uuid"
)

// ClarificationAnswer pairs a generated question with the user's answer.
type ClarificationAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// QueryLogEntry is the audit record written for every emergency triage and analysis.
type QueryLogEntry struct {
	ID                   uuid.UUID             `json:"id"`
	Symptom              string                `json:"symptom"`
	ClarificationAnswers []ClarificationAnswer `json:"clarificationAnswers"`
	AnalysisResult       *AnalysisResult       `json:"analysisResult,omitempty"`
	IsEmergency          bool                  `json:"isEmergency"`
	IPAddress            string                `json:"ipAddress,omitempty"`
	UserAgent            string                `json:"userAgent,omitempty"`
	CreatedAt            time.Time             `json:"createdAt"`
	UpdatedAt            time.Time             `json:"updatedAt"`
}

// Public strips client identifying fields before the entry leaves the service.
func (e QueryLogEntry) Public() QueryLogEntry {
	e.IPAddress = ""
	e.UserAgent = ""
	return e
}

// RequestMeta carries the client details recorded alongside a query.
type RequestMeta struct {
	RequestID string
	IPAddress string
	UserAgent string
}
