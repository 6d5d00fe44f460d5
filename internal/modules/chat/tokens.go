package chat

import (
	"github.com/pkoukk/tiktoken-go"
)

// historyTokenBudget bounds how much prior conversation is replayed into the
// prompt. Oldest turns are dropped first.
const historyTokenBudget = 6000

var encoding *tiktoken.Tiktoken

func init() {
	// cl100k_base covers the chat models we dispatch to closely enough for
	// budgeting purposes.
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err == nil {
		encoding = enc
	}
}

// countTokens approximates the token length of text. Falls back to a
// bytes/4 estimate when the encoding is unavailable.
func countTokens(text string) int {
	if encoding == nil {
		return len(text) / 4
	}
	return len(encoding.Encode(text, nil, nil))
}

// boundHistory drops oldest turns until the remaining ones fit the budget.
func boundHistory(turns []historyTurn) []historyTurn {
	total := 0
	cut := len(turns)
	for i := len(turns) - 1; i >= 0; i-- {
		total += countTokens(turns[i].Content)
		if total > historyTokenBudget {
			break
		}
		cut = i
	}
	return turns[cut:]
}

type historyTurn struct {
	Role    string
	Content string
}
