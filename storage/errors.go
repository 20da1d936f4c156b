package storage

import "errors"

// Storage error constants
var (
	// ErrUserNotFound is returned when a user is not found
	ErrUserNotFound = errors.New("user not found")

	// ErrReportNotFound is returned when a report is not found
	ErrReportNotFound = errors.New("report not found")

	// ErrRoomNotFound is returned when a chat room is not found
	ErrRoomNotFound = errors.New("chat room not found")

	// ErrNotificationNotFound is returned when a notification is not found
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrAdminRequestNotFound is returned when an admin request is not found
	ErrAdminRequestNotFound = errors.New("admin request not found")

	// ErrDuplicateEmail is returned when registering an email that is
	// already taken
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrDuplicateRoom is returned when creating a second room for a
	// report. The report/room relation is a bijection enforced by the
	// store.
	ErrDuplicateRoom = errors.New("chat room already exists for report")

	// ErrNotFound is a generic "not found" error
	ErrNotFound = errors.New("not found")
)
