package runner

import "growthops/internal/models"

// Aggregate derives the execution status from plugin counts. No plugins is
// a success.
func Aggregate(total, successful int) string {
	switch {
	case total == 0:
		return models.ExecutionStatusSuccess
	case successful == total:
		return models.ExecutionStatusSuccess
	case successful > 0:
		return models.ExecutionStatusPartial
	default:
		return models.ExecutionStatusFailure
	}
}

// ProgressIncrement returns the completion delta for a terminal status.
func ProgressIncrement(status string, successInc, partialInc int) int {
	switch status {
	case models.ExecutionStatusSuccess:
		return successInc
	case models.ExecutionStatusPartial:
		return partialInc
	default:
		return 0
	}
}

func ClampPercentage(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
