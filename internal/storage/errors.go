package storage

import "errors"

var (
	// ErrUserNotFound is returned when no user matches the lookup key.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailTaken is returned when registering with an email that already
	// belongs to a user.
	ErrEmailTaken = errors.New("email already registered")

	// ErrRecordNotFound is returned when no academic record matches the
	// composite (record_id, topic_id) key.
	ErrRecordNotFound = errors.New("record not found")

	// ErrDuplicateRecord is returned when creating an academic record whose
	// composite key already exists.
	ErrDuplicateRecord = errors.New("record already exists")
)
