package quiz

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"vocab-api/internal/content"
	"vocab-api/pkg/logging"
)

// distractorCount is the number of wrong options per question
const distractorCount = 3

// Family returns an entry's alternative answers; index 0 is alternative 1
type Family func(content.Entry) [3]string

// Question is one multiple-choice question
type Question struct {
	Word          string   `json:"word,omitempty"`
	Phrase        string   `json:"phrase,omitempty"`
	Definition    string   `json:"definition,omitempty"`
	Meaning       string   `json:"meaning,omitempty"`
	POS           string   `json:"pos,omitempty"`
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	AttemptNumber int      `json:"attemptNumber,omitempty"`
}

// RotationSpec describes a rotating quiz
type RotationSpec struct {
	Pool     []content.Entry // items that may be asked
	Universe []content.Entry // items distractors are drawn from
	Answers  Family
	Prompt   func(content.Entry) string
	Limit    int // 0 means every available item
}

// PlainSpec describes a quiz with a single correct answer per item
type PlainSpec struct {
	Pool     []content.Entry
	Universe []content.Entry
	Answer   func(content.Entry) string
	Prompt   func(content.Entry) string
	Limit    int
}

// Engine builds question sets. It is safe for concurrent use.
type Engine struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewEngine creates an engine drawing randomness from src
func NewEngine(src rand.Source) *Engine {
	return &Engine{rng: rand.New(src), now: time.Now}
}

// NewDefaultEngine creates an engine seeded from the clock
func NewDefaultEngine() *Engine {
	return NewEngine(rand.NewSource(time.Now().UnixNano()))
}

// QuestionKey identifies an (item, attempt) pair within a session
func QuestionKey(item string, attempt int) string {
	return fmt.Sprintf("%s_%d", item, attempt)
}

// NextQuestionSet serves the next round of a rotating quiz and advances session.
// An item is not asked with the same alternative twice until every item's
// current pair has been served; then the used set starts over while attempt
// counters carry on.
func (e *Engine) NextQuestionSet(spec RotationSpec, session *Session) []Question {
	e.mu.Lock()
	defer e.mu.Unlock()

	pool := make([]content.Entry, 0, len(spec.Pool))
	for _, item := range spec.Pool {
		if firstNonEmpty(spec.Answers(item)) == "" {
			logging.Warnf("Quiz item %q has no answers, skipping", item.Term())
			continue
		}
		pool = append(pool, item)
	}
	e.shuffle(pool)

	available := make([]content.Entry, 0, len(pool))
	for _, item := range pool {
		key := item.Term()
		if !session.UsedQuestions[QuestionKey(key, session.Attempt(key))] {
			available = append(available, item)
		}
	}
	if len(available) == 0 {
		session.UsedQuestions = make(map[string]bool)
		available = pool
	}
	if spec.Limit > 0 && len(available) > spec.Limit {
		available = available[:spec.Limit]
	}

	questions := make([]Question, 0, len(available))
	for _, item := range available {
		key := item.Term()
		attempt := session.Attempt(key)
		answers := spec.Answers(item)
		correct := resolveAnswer(answers, attempt)

		session.UsedQuestions[QuestionKey(key, attempt)] = true
		next := attempt + 1
		if attempt >= 3 {
			next = 1
		}
		session.WordAttempts[key] = next

		q := e.question(item, correct, spec.Universe, spec.Answers)
		q.Prompt = spec.Prompt(item)
		q.AttemptNumber = attempt
		questions = append(questions, q)
	}
	session.UpdatedAt = e.now()
	return questions
}

// PlainQuestionSet shuffles the pool and asks up to Limit items
func (e *Engine) PlainQuestionSet(spec PlainSpec) []Question {
	e.mu.Lock()
	defer e.mu.Unlock()

	family := func(entry content.Entry) [3]string {
		return [3]string{strings.TrimSpace(spec.Answer(entry))}
	}

	pool := make([]content.Entry, 0, len(spec.Pool))
	for _, item := range spec.Pool {
		if family(item)[0] != "" {
			pool = append(pool, item)
		}
	}
	e.shuffle(pool)
	if spec.Limit > 0 && len(pool) > spec.Limit {
		pool = pool[:spec.Limit]
	}

	questions := make([]Question, 0, len(pool))
	for _, item := range pool {
		q := e.question(item, family(item)[0], spec.Universe, family)
		q.Prompt = spec.Prompt(item)
		questions = append(questions, q)
	}
	return questions
}

func (e *Engine) shuffle(entries []content.Entry) {
	e.rng.Shuffle(len(entries), func(i, j int) {
		entries[i], entries[j] = entries[j], entries[i]
	})
}

func (e *Engine) question(item content.Entry, correct string, universe []content.Entry, family Family) Question {
	options := append([]string{correct}, e.distractors(item, correct, universe, family)...)
	e.rng.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	return Question{
		Word:          item.Word,
		Phrase:        item.Phrase,
		Definition:    item.Definition,
		Meaning:       item.Meaning,
		POS:           item.POS,
		Options:       options,
		CorrectAnswer: correct,
	}
}

// distractors samples other items without replacement until three usable
// wrong answers are found or the candidates run out
func (e *Engine) distractors(item content.Entry, correct string, universe []content.Entry, family Family) []string {
	candidates := make([]content.Entry, 0, len(universe))
	for _, other := range universe {
		if other.Term() != item.Term() {
			candidates = append(candidates, other)
		}
	}

	chosen := make([]string, 0, distractorCount)
	for len(chosen) < distractorCount && len(candidates) > 0 {
		i := e.rng.Intn(len(candidates))
		answer := e.pickAlternative(family(candidates[i]))
		if answer != "" && !strings.EqualFold(answer, correct) && !containsFold(chosen, answer) {
			chosen = append(chosen, answer)
		}
		candidates[i] = candidates[len(candidates)-1]
		candidates = candidates[:len(candidates)-1]
	}
	return chosen
}

func (e *Engine) pickAlternative(answers [3]string) string {
	present := make([]string, 0, 3)
	for _, a := range answers {
		if a = strings.TrimSpace(a); a != "" {
			present = append(present, a)
		}
	}
	if len(present) == 0 {
		return ""
	}
	return present[e.rng.Intn(len(present))]
}

// resolveAnswer picks alternative[attempt], falling back to alternative 1
// and then to any alternative present
func resolveAnswer(answers [3]string, attempt int) string {
	if attempt >= 1 && attempt <= 3 {
		if a := strings.TrimSpace(answers[attempt-1]); a != "" {
			return a
		}
	}
	return firstNonEmpty(answers)
}

func firstNonEmpty(answers [3]string) string {
	for _, a := range answers {
		if a = strings.TrimSpace(a); a != "" {
			return a
		}
	}
	return ""
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
