package study

import (
	"fmt"
	"math/rand"
	"strings"
)

// QuizOptionCount is the number of choices shown per quiz question.
const QuizOptionCount = 4

// GenerateOptions returns QuizOptionCount distinct answers: the correct
// card's back text plus distractors drawn from pool, in random order.
func GenerateOptions(correct Card, pool []Card, rng *rand.Rand) ([]string, error) {
	seen := map[string]bool{normalize(correct.BackText): true}
	var distractors []string
	for _, c := range pool {
		if c.ID == correct.ID {
			continue
		}
		key := normalize(c.BackText)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		distractors = append(distractors, c.BackText)
	}
	if len(distractors) < QuizOptionCount-1 {
		return nil, fmt.Errorf("%w: have %d distractors, need %d", ErrNotEnoughOptions, len(distractors), QuizOptionCount-1)
	}

	rng.Shuffle(len(distractors), func(i, j int) { distractors[i], distractors[j] = distractors[j], distractors[i] })
	options := append([]string{correct.BackText}, distractors[:QuizOptionCount-1]...)
	rng.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })
	return options, nil
}

// normalize is the comparison key for typed and chosen answers.
func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// answersMatch reports whether a typed answer equals the expected text,
// ignoring case and surrounding or repeated whitespace.
func answersMatch(given, expected string) bool {
	return normalize(given) == normalize(expected)
}
