package tokenizer

// charsPerToken is the character-to-token ratio of the fallback estimate.
// 4 bytes per token is a conservative figure for English prose and figures.
const charsPerToken = 4

// Heuristic estimates tokens as one per four bytes, with a minimum of one
// token for any non-empty string.
type Heuristic struct{}

func (Heuristic) Count(text string) int { return Estimate(text) }

func (Heuristic) Name() string { return "heuristic" }

// Estimate returns the heuristic token count of s.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}
