package db

import (
	"errors"
	"fmt"

	"github.com/kube-rca/remediator/internal/model"
)

var (
	ErrNotFound       = errors.New("incident not found")
	ErrStatusConflict = errors.New("incident status conflict")
)

// StatusConflictError - 조건부 전이 실패 (현재 상태가 기대값과 다름)
// Current는 저장소에서 읽은 실제 상태
type StatusConflictError struct {
	IncidentID string
	Expected   model.Status
	Current    model.Status
}

func (e *StatusConflictError) Error() string {
	return fmt.Sprintf("incident %s: expected status %s, current status %s", e.IncidentID, e.Expected, e.Current)
}

func (e *StatusConflictError) Is(target error) bool {
	return target == ErrStatusConflict
}
