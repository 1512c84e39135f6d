package search

import (
	"socialchat/domain"
	"strconv"
	"strings"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Query represents the structured parameters of a message search.
// It decouples the raw user input from the index engine requirements.
type Query struct {
	RawInput string        // The original input from the user
	Terms    string        // The actual text to search in Bluge
	Author   string        // Exact sender email, empty for any
	Room     domain.RoomID // Zero means every room
	Limit    int           // Number of results
}

// NewSearchQuery parses a raw string to extract command-line style arguments.
// Example: /find "invoice" --author alice@example.com --room 1 --limit 5
func NewSearchQuery(input string) *Query {
	query := &Query{
		RawInput: input,
		Limit:    DefaultLimit,
	}

	parts := strings.Fields(input)
	var textTerms []string

	for i := 0; i < len(parts); i++ {
		part := parts[i]

		if strings.HasPrefix(part, "--") && i+1 < len(parts) {
			key := strings.TrimPrefix(part, "--")
			val := parts[i+1]

			switch key {
			case "author":
				query.Author = val
			case "room":
				if room, err := strconv.Atoi(val); err == nil {
					query.Room = domain.RoomID(room)
				}
			case "limit":
				if limit, err := strconv.Atoi(val); err == nil {
					query.WithLimit(limit)
				}
			}
			i++ // Skip the value part in next iteration
			continue
		}

		// If it's not a flag, it's a search term
		if !strings.HasPrefix(part, "/") {
			textTerms = append(textTerms, strings.Trim(part, `"`))
		}
	}

	query.Terms = strings.Join(textTerms, " ")
	return query
}

// WithLimit clamps the limit to [1, MaxLimit], non-positive values meaning the default.
func (q *Query) WithLimit(limit int) *Query {
	switch {
	case limit <= 0:
		q.Limit = DefaultLimit
	case limit > MaxLimit:
		q.Limit = MaxLimit
	default:
		q.Limit = limit
	}
	return q
}
