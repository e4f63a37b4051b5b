package models

import (
	"encoding/json"
	"slices"
	"strings"

	dErrors "claimdesk/pkg/domain-errors"
)

// Status is a claim lifecycle state. The string values are the wire and column format.
type Status string

const (
	StatusPending     Status = "Pending"
	StatusUnderReview Status = "UnderReview"
	StatusApproved    Status = "Approved"
	StatusRejected    Status = "Rejected"
	StatusReopened    Status = "Reopened"
	StatusClosed      Status = "Closed"
)

// Statuses lists every state in lifecycle order.
var Statuses = []Status{
	StatusPending,
	StatusUnderReview,
	StatusApproved,
	StatusRejected,
	StatusReopened,
	StatusClosed,
}

var statusByKey = func() map[string]Status {
	m := make(map[string]Status, len(Statuses))
	for _, s := range Statuses {
		m[strings.ToLower(string(s))] = s
	}
	return m
}()

// ParseStatus accepts any letter case and snake case ("under_review").
func ParseStatus(raw string) (Status, error) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(raw), "_", ""))
	if key == "" {
		return "", dErrors.New(dErrors.CodeValidation, "status is required")
	}
	s, ok := statusByKey[key]
	if !ok {
		return "", dErrors.New(dErrors.CodeValidation, "unknown status "+strings.TrimSpace(raw))
	}
	return s, nil
}

// IsValid reports whether s is one of the canonical spellings.
func (s Status) IsValid() bool {
	return slices.Contains(Statuses, s)
}

func (s Status) String() string { return string(s) }

// UnmarshalJSON parses leniently so clients may send "under_review".
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return dErrors.New(dErrors.CodeValidation, "status must be a string")
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
