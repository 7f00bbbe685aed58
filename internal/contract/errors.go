package contract

import "errors"

// The contract's error taxonomy is closed: every failure an operation
// can report is one of these values, and callers branch with errors.Is.
var (
	// ErrAlreadyCreated indicates the caller already holds a message.
	ErrAlreadyCreated = errors.New("you already created a message")

	// ErrSenderNotFound indicates the referenced identity holds no message.
	ErrSenderNotFound = errors.New("sender not found")

	// ErrMessageEmpty indicates an empty message text.
	ErrMessageEmpty = errors.New("your message is empty")

	// ErrMessageTooShort indicates a message below the minimum length.
	ErrMessageTooShort = errors.New("your message is too short")

	// ErrNoMessageYet indicates nobody holds a message.
	ErrNoMessageYet = errors.New("no message yet")

	// ErrMessageUnchanged indicates an update with the currently stored text.
	ErrMessageUnchanged = errors.New("your message is the same as before")

	// ErrOwnerOnly indicates a history read by a caller other than the owner.
	ErrOwnerOnly = errors.New("only the owner can read history")
)
