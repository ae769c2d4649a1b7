package store

import "errors"

var (
	ErrServiceNotFound      = errors.New("service not found")
	ErrBranchNotFound       = errors.New("branch not found")
	ErrCounterNotFound      = errors.New("counter not found")
	ErrCounterUnavailable   = errors.New("counter unavailable")
	ErrTicketNotFound       = errors.New("ticket not found")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrAnnouncementNotFound = errors.New("announcement not found")
	ErrSettingNotFound      = errors.New("setting not found")
	ErrInvalidReference     = errors.New("referenced entity not found")
	ErrTicketPrefixUnset    = errors.New("ticket prefix not configured")
	ErrBranchHasCounters    = errors.New("branch has counters")
)
