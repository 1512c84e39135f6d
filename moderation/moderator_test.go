package moderation

import (
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func newTestModerator(t *testing.T, words ...string) *Moderator {
	t.Helper()
	mod, err := NewModerator(words, '#', logs.GetLoggerFromLevel(slog.LevelDebug))
	require.NoError(t, err)
	return mod
}

func TestModerator_Censor_Chat_Messages(t *testing.T) {
	// Dictionary words are long enough not to collide with common words
	mod := newTestModerator(t, "badger", "snake", "mushroom")

	cases := map[string]struct {
		input string
		want  string
		words []string
	}{
		"plain word keeps the surrounding spaces": {
			input: "hey, the badger ate my lunch",
			want:  "hey, the ###### ate my lunch",
			words: []string{"badger"},
		},
		"every occurrence is reported": {
			input: "snake? snake!",
			want:  "#####? #####!",
			words: []string{"snake", "snake"},
		},
		"leet speak and separators": {
			input: "look: M.u.$.h.r.0.0.m",
			want:  "look: ###############",
			words: []string{"mushroom"},
		},
		"euro sign stands for an e": {
			input: "bad: B4dg€r",
			want:  "bad: ######",
			words: []string{"badger"},
		},
		"case does not matter": {
			input: "SNAKE and Badger",
			want:  "##### and ######",
			words: []string{"snake", "badger"},
		},
		"multi-byte content around a match": {
			input: "café ☕ with a snake",
			want:  "café ☕ with a #####",
			words: []string{"snake"},
		},
		"clean message": {
			input: "see you at noon",
			want:  "see you at noon",
		},
		"empty message": {},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			content, words := mod.Censor(tc.input)
			req.Equal(tc.want, content)
			req.Equal(tc.words, words)
		})
	}
}

func TestModerator_Noise_Words_Are_Ignored(t *testing.T) {
	req := require.New(t)

	// Given a dictionary polluted with entries that hold no letter
	mod := newTestModerator(t, "...", "--", "", "snake")

	// Then only real words are censored
	content, words := mod.Censor("a snake...")
	req.Equal("a #####...", content)
	req.Equal([]string{"snake"}, words)

	// And punctuation alone is left alone
	content, words = mod.Censor("wait -- what ...")
	req.Equal("wait -- what ...", content)
	req.Nil(words)
}

func TestModerator_Empty_Dictionary_Keeps_Content(t *testing.T) {
	req := require.New(t)
	mod := newTestModerator(t)

	content, words := mod.Censor("The badger is here")
	req.Equal("The badger is here", content)
	req.Nil(words)

	// And a nil moderator is a no-op as well
	var none *Moderator
	content, words = none.Censor("The badger is here")
	req.Equal("The badger is here", content)
	req.Nil(words)
}
