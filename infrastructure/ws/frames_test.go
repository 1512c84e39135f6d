package ws

import (
	"encoding/json"
	"fmt"
	"socialchat/domain"
	"socialchat/errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestToErrorFrame(t *testing.T) {
	req := require.New(t)

	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"Protocol", errors.ErrProtocol, `{"error":"Invalid message format"}`},
		{"Unauthenticated", errors.ErrUnauthenticated, `{"error":"Authentication required"}`},
		{"Empty", errors.ErrEmptyContent, `{"error":"Message cannot be empty"}`},
		{"Too long, wrapped", fmt.Errorf("%w (max 10 characters)", errors.ErrContentTooLong), `{"error":"Message is too long"}`},
		{"Rate limited", errors.ErrRateLimited, `{"error":"Too many messages, slow down"}`},
		{"Anything else", fmt.Errorf("disk on fire"), `{"error":"An error occurred processing your message"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(ToErrorFrame(tt.err))
			req.NoError(err)
			req.JSONEq(tt.expected, string(raw))
		})
	}
}

func TestDecodeInbound(t *testing.T) {
	req := require.New(t)

	frame, err := DecodeInbound([]byte(`{"message":"hello","extra":1}`))
	req.NoError(err)
	req.Equal("hello", frame.Message)

	frame, err = DecodeInbound([]byte(`{}`))
	req.NoError(err)
	req.Empty(frame.Message)

	// Frames that are not JSON at all
	for _, raw := range []string{`not json`, `{"message":"unterminated`, ``} {
		_, err = DecodeInbound([]byte(raw))
		req.ErrorIs(err, errors.ErrProtocol, raw)
		req.Equal("Invalid message format", ToErrorFrame(err).Error, raw)
	}

	// JSON that is not a chat message object
	for _, raw := range []string{`[]`, `"hello"`, `42`, `null`, `{"message":5}`, `{"message":["a"]}`} {
		_, err = DecodeInbound([]byte(raw))
		req.ErrorIs(err, errors.ErrUnexpectedShape, raw)
		req.NotErrorIs(err, errors.ErrProtocol, raw)
		req.Equal("An error occurred processing your message", ToErrorFrame(err).Error, raw)
	}
}

func TestFrames_Shape(t *testing.T) {
	req := require.New(t)
	at := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)
	anonymous := domain.Message{Content: "hi", CreatedAt: at}
	alice := domain.Message{Content: "hello", Sender: "alice@example.com", CreatedAt: at}

	live, err := json.Marshal(ToLiveFrame(alice))
	req.NoError(err)
	req.JSONEq(`{"message":"hello","user_email":"alice@example.com"}`, string(live))

	history, err := json.Marshal(ToHistoryFrame(anonymous))
	req.NoError(err)
	req.JSONEq(`{"message":"hi","user_email":"Anonymous","timestamp":"2026-01-02T03:04:05.000000006Z"}`, string(history))
}
