package study

import (
	"math/rand"
	"sort"
	"time"
)

// DefaultCardsPerSession is used when settings do not provide a limit.
const DefaultCardsPerSession = 20

const (
	matchingUnlearnedFill = 6
	matchingLearnedMix    = 3
	matchingMixedCap      = 8
)

// BuildOptions controls BuildSession.
type BuildOptions struct {
	MaxCards    int        // <= 0 means DefaultCardsPerSession
	PracticeAll bool       // skip due filtering and backfill
	Now         time.Time  // zero means time.Now()
	Rand        *rand.Rand // nil means a time-seeded source
}

// Plan is the ordered card list for one session.
type Plan struct {
	Mode        Mode   `json:"mode"`
	Cards       []Card `json:"cards"`
	Backfilled  bool   `json:"backfilled"`
	PracticeAll bool   `json:"practice_all"`
}

// BuildSession selects and orders the cards for one session of mode.
func BuildSession(pool []Card, mode Mode, opts BuildOptions) (Plan, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return Plan{}, err
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	maxCards := opts.MaxCards
	if maxCards <= 0 {
		maxCards = DefaultCardsPerSession
	}
	limit := mode.limit(maxCards)

	cards := dedupe(pool)
	plan := Plan{Mode: mode, PracticeAll: opts.PracticeAll}

	var selected []Card
	switch {
	case opts.PracticeAll:
		selected = order(cards, mode, now, rng)
	case mode == ModeMatching:
		selected = matchingBoard(cards, now, rng)
	default:
		var due, rest []Card
		for _, c := range cards {
			if c.IsDue(now) {
				due = append(due, c)
			} else {
				rest = append(rest, c)
			}
		}
		selected = order(due, mode, now, rng)
		if len(selected) < limit && len(rest) > 0 {
			selected = append(selected, order(rest, mode, now, rng)...)
			plan.Backfilled = true
		}
	}

	if len(selected) > limit {
		selected = selected[:limit]
	}
	if need := mode.MinCards(); len(selected) < need {
		return Plan{}, &InsufficientCardsError{
			Mode:                mode,
			Have:                len(selected),
			Need:                need,
			PracticeAllPossible: !opts.PracticeAll && min(len(cards), limit) >= need &&
				(mode != ModeQuiz || distinctAnswers(cards) >= QuizOptionCount),
		}
	}
	if mode == ModeQuiz {
		if distinct := distinctAnswers(cards); distinct < QuizOptionCount {
			return Plan{}, &InsufficientCardsError{Mode: mode, Have: distinct, Need: QuizOptionCount}
		}
	}
	plan.Cards = selected
	return plan, nil
}

// distinctAnswers counts the non-empty back texts that differ after
// normalization; quiz options are drawn from these.
func distinctAnswers(cards []Card) int {
	seen := make(map[string]bool, len(cards))
	for _, c := range cards {
		if k := normalize(c.BackText); k != "" {
			seen[k] = true
		}
	}
	return len(seen)
}

func dedupe(pool []Card) []Card {
	seen := make(map[string]bool, len(pool))
	out := make([]Card, 0, len(pool))
	for _, c := range pool {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, c.clone())
	}
	return out
}

func order(cards []Card, mode Mode, now time.Time, rng *rand.Rand) []Card {
	out := append([]Card(nil), cards...)
	if mode == ModeSpaced {
		SortByUrgency(out, now)
		return out
	}
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// SortByUrgency orders cards for spaced review: never-reviewed cards first,
// then the most overdue, then the fewest reviews.
func SortByUrgency(cards []Card, now time.Time) {
	sort.SliceStable(cards, func(i, j int) bool {
		a, b := cards[i], cards[j]
		aNew, bNew := a.LastReviewed == nil, b.LastReviewed == nil
		if aNew != bNew {
			return aNew
		}
		if ao, bo := overdue(a, now), overdue(b, now); ao != bo {
			return ao > bo
		}
		if a.ReviewCount != b.ReviewCount {
			return a.ReviewCount < b.ReviewCount
		}
		return a.ID < b.ID
	})
}

func overdue(c Card, now time.Time) time.Duration {
	if c.NextReview == nil {
		return 0
	}
	return now.Sub(*c.NextReview)
}

// matchingBoard fills the board with unlearned cards when there are enough,
// and otherwise mixes in a few learned ones.
func matchingBoard(cards []Card, now time.Time, rng *rand.Rand) []Card {
	var unlearned, learned []Card
	for _, c := range cards {
		if c.Learned {
			learned = append(learned, c)
		} else {
			unlearned = append(unlearned, c)
		}
	}
	unlearned = order(unlearned, ModeMatching, now, rng)
	if len(unlearned) >= matchingUnlearnedFill {
		return unlearned
	}
	learned = order(learned, ModeMatching, now, rng)
	board := append(unlearned, learned[:min(len(learned), matchingLearnedMix)]...)
	if len(board) > matchingMixedCap {
		board = board[:matchingMixedCap]
	}
	rng.Shuffle(len(board), func(i, j int) { board[i], board[j] = board[j], board[i] })
	return board
}
