package search

import (
	"socialchat/domain"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSearchQuery(t *testing.T) {
	req := require.New(t)

	tests := []struct {
		name     string
		input    string
		expected Query
	}{
		{
			name:     "Plain terms",
			input:    "hello world",
			expected: Query{RawInput: "hello world", Terms: "hello world", Limit: DefaultLimit},
		},
		{
			name:  "Command with every flag",
			input: `/find "invoice" --author alice@example.com --room 3 --limit 5`,
			expected: Query{
				RawInput: `/find "invoice" --author alice@example.com --room 3 --limit 5`,
				Terms:    "invoice",
				Author:   "alice@example.com",
				Room:     domain.RoomID(3),
				Limit:    5,
			},
		},
		{
			name:     "Limit is clamped",
			input:    "x --limit 1000",
			expected: Query{RawInput: "x --limit 1000", Terms: "x", Limit: MaxLimit},
		},
		{
			name:     "Invalid room is ignored",
			input:    "x --room abc",
			expected: Query{RawInput: "x --room abc", Terms: "x", Limit: DefaultLimit},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req.Equal(tt.expected, *NewSearchQuery(tt.input))
		})
	}
}
