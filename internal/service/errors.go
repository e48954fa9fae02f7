package service

import (
	"errors"
	"fmt"

	"github.com/kube-rca/remediator/internal/model"
)

var (
	ErrNotFound          = errors.New("incident not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNoCommand         = errors.New("no command to execute")

	ErrAdvisoryUnavailable   = errors.New("advisory capability unavailable")
	ErrAdvisoryEmptyResponse = errors.New("advisory returned no usable command")

	ErrRemoteExecutionFailed  = errors.New("remote execution failed")
	ErrRemoteExecutionTimeout = errors.New("remote execution timed out")
)

// InvalidTransitionError - 현재 상태에서 허용되지 않는 전이 요청
// Current는 저장소 기준의 실제 상태 (추정값 아님)
type InvalidTransitionError struct {
	IncidentID string
	Current    model.Status
	Attempted  model.Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("incident %s: cannot move to %s from %s", e.IncidentID, e.Attempted, e.Current)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
