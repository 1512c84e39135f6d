package ws

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"socialchat/domain"
	"socialchat/errors"
	"time"
)

const (
	msgInvalidFormat    = "Invalid message format"
	msgAuthRequired     = "Authentication required"
	msgEmptyContent     = "Message cannot be empty"
	msgContentTooLong   = "Message is too long"
	msgRateLimited      = "Too many messages, slow down"
	msgProcessingFailed = "An error occurred processing your message"
)

// InboundFrame is what a client sends. Unknown fields are ignored.
type InboundFrame struct {
	Message string `json:"message"`
}

// OutboundFrame covers the three server frames: live message, history
// replay (with Timestamp) and error.
type OutboundFrame struct {
	Message   string `json:"message,omitempty"`
	UserEmail string `json:"user_email,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Error     string `json:"error,omitempty"`
}

// DecodeInbound parses a client frame. Text that is not JSON is a protocol
// error. Valid JSON that is not an object with a string message is
// ErrUnexpectedShape, reported to the sender as a processing failure.
func DecodeInbound(raw []byte) (InboundFrame, error) {
	if !json.Valid(raw) {
		return InboundFrame{}, errors.ErrProtocol
	}
	if trimmed := bytes.TrimSpace(raw); trimmed[0] != '{' {
		return InboundFrame{}, errors.ErrUnexpectedShape
	}
	var frame InboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return InboundFrame{}, stderrors.Join(errors.ErrUnexpectedShape, err)
	}
	return frame, nil
}

func ToLiveFrame(m domain.Message) OutboundFrame {
	return OutboundFrame{Message: m.Content, UserEmail: m.Author()}
}

func ToHistoryFrame(m domain.Message) OutboundFrame {
	return OutboundFrame{
		Message:   m.Content,
		UserEmail: m.Author(),
		Timestamp: m.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// ToErrorFrame maps a failure of the send path to the frame shown to the sender.
// Internal details never leave the server.
func ToErrorFrame(err error) OutboundFrame {
	switch {
	case stderrors.Is(err, errors.ErrProtocol):
		return OutboundFrame{Error: msgInvalidFormat}
	case stderrors.Is(err, errors.ErrUnauthenticated):
		return OutboundFrame{Error: msgAuthRequired}
	case stderrors.Is(err, errors.ErrEmptyContent):
		return OutboundFrame{Error: msgEmptyContent}
	case stderrors.Is(err, errors.ErrContentTooLong):
		return OutboundFrame{Error: msgContentTooLong}
	case stderrors.Is(err, errors.ErrRateLimited):
		return OutboundFrame{Error: msgRateLimited}
	default:
		return OutboundFrame{Error: msgProcessingFailed}
	}
}
