package prompt

import (
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

// TokenEstimate returns an approximate token count for s using the
// cl100k_base encoding, which is close enough across the model families we
// call. Falls back to the rough 4-chars-per-token rule when the encoding is
// unavailable (e.g. offline first run). Used for metrics and logging only;
// input budgets are enforced in characters.
func TokenEstimate(s string) int {
	encOnce.Do(func() {
		e, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			enc = e
		}
	})
	if enc == nil {
		return len(s) / 4
	}
	return len(enc.Encode(s, nil, nil))
}
