package order

import (
	"strings"

	"paytrack-service/internal/apperror"
)

// Status is the closed set of recognized payment outcomes. Upstream values
// are matched case-insensitively and normalized to lowercase once, at the
// boundary of both the query filter and the reconciliation event.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

func ParseStatus(value string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(StatusPending):
		return StatusPending, nil
	case string(StatusSuccess):
		return StatusSuccess, nil
	case string(StatusFailed):
		return StatusFailed, nil
	default:
		return "", apperror.ErrInvalidStatus
	}
}
