package errors

import "fmt"

var (
	ErrWorkerPanic    = fmt.Errorf("worker panic")
	ErrEmptyWords     = fmt.Errorf("no words have been found")
	ErrInvalidPayload = fmt.Errorf("invalid event payload")

	// Validation: content rejected before persistence, connection stays open.
	ErrValidation     = fmt.Errorf("validation failed")
	ErrEmptyContent   = fmt.Errorf("%w: message cannot be empty", ErrValidation)
	ErrContentTooLong = fmt.Errorf("%w: message is too long", ErrValidation)

	ErrUnauthenticated = fmt.Errorf("authentication required")
	ErrInvalidToken    = fmt.Errorf("invalid or expired token")
	ErrAlreadyJoined   = fmt.Errorf("session already joined the room")

	// Transport: delivery to a single recipient failed.
	ErrTransport     = fmt.Errorf("transport failure")
	ErrSessionClosed = fmt.Errorf("%w: session is closed", ErrTransport)
	ErrSlowConsumer  = fmt.Errorf("%w: outbound queue is full", ErrTransport)

	ErrProtocol        = fmt.Errorf("invalid message format")
	ErrUnexpectedShape = fmt.Errorf("frame is not a chat message")
	ErrRateLimited     = fmt.Errorf("rate limit exceeded")
	ErrRoomClosed      = fmt.Errorf("room queue is closed")
)
