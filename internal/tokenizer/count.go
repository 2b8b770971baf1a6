package tokenizer

import (
	"fmt"
)

// CountText estimates tokens for already decoded text. A nil counter counts nothing.
func CountText(counter Counter, text string) (int, error) {
	if counter == nil || text == "" {
		return 0, nil
	}
	tokens, err := counter.CountString(text)
	if err != nil {
		return 0, fmt.Errorf("count tokens with %s: %w", counter.Name(), err)
	}
	return tokens, nil
}
