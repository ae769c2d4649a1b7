package store

import "github.com/coffeescripttech-maker/casureco-queue-management-system-server/internal/models"

// transitionMap encodes the ticket state machine. Terminal states have
// no entry: nothing transitions out of done, cancelled, or skipped.
var transitionMap = map[string][]string{
	models.StatusWaiting: {models.StatusServing, models.StatusCancelled},
	models.StatusServing: {models.StatusDone, models.StatusCancelled, models.StatusSkipped},
}

func CanTransition(from, to string) bool {
	for _, status := range transitionMap[from] {
		if status == to {
			return true
		}
	}
	return false
}

func IsTerminal(status string) bool {
	switch status {
	case models.StatusDone, models.StatusCancelled, models.StatusSkipped:
		return true
	default:
		return false
	}
}

func IsValidStatus(status string) bool {
	switch status {
	case models.StatusWaiting, models.StatusServing, models.StatusDone, models.StatusCancelled, models.StatusSkipped:
		return true
	default:
		return false
	}
}
