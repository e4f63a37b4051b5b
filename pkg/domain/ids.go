package domain

import (
	"strconv"
	"strings"

	dErrors "claimdesk/pkg/domain-errors"
)

// Typed identifiers keep user, policy, and claim ids from being swapped at call sites.
// All ids are positive database sequence values; zero means "unset".
type (
	UserID   int64
	PolicyID int64
	ClaimID  int64
)

// maxIDDigits bounds parsing work on hostile path segments.
const maxIDDigits = 19

func (id UserID) IsNil() bool   { return id <= 0 }
func (id PolicyID) IsNil() bool { return id <= 0 }
func (id ClaimID) IsNil() bool  { return id <= 0 }

func (id UserID) String() string   { return strconv.FormatInt(int64(id), 10) }
func (id PolicyID) String() string { return strconv.FormatInt(int64(id), 10) }
func (id ClaimID) String() string  { return strconv.FormatInt(int64(id), 10) }

// ParseUserID parses a user id from a path segment or header value.
func ParseUserID(s string) (UserID, error) {
	v, err := parsePositive(s, "user id")
	return UserID(v), err
}

// ParsePolicyID parses a policy id from external input.
func ParsePolicyID(s string) (PolicyID, error) {
	v, err := parsePositive(s, "policy id")
	return PolicyID(v), err
}

// ParseClaimID parses a claim id from external input.
func ParseClaimID(s string) (ClaimID, error) {
	v, err := parsePositive(s, "claim id")
	return ClaimID(v), err
}

func parsePositive(s, field string) (int64, error) {
	if s == "" {
		return 0, dErrors.New(dErrors.CodeValidation, field+" is required")
	}
	if len(s) > maxIDDigits || strings.TrimSpace(s) != s {
		return 0, dErrors.New(dErrors.CodeValidation, "invalid "+field)
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "invalid "+field)
	}
	return v, nil
}
