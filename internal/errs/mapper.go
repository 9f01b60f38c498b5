package errs

import (
	"errors"
)

// Exposable is an error representation that can be handed to callers
// outside the service.
type Exposable[T any] interface {
	WithDetail(detail string) T
	DefaultError() T
}

// Rule maps a chain of internal errors to an exposed error. A rule matches
// when every error of Chain is found in the error tree.
type Rule[T Exposable[T]] struct {
	Chain   []error
	Exposed T
	// Detail extracts caller-facing detail from the matched error.
	Detail func(error) string
}

type ErrorMapper[T Exposable[T]] struct {
	Rules    []Rule[T]
	Priority []Rule[T]
}

func NewMapper[T Exposable[T]](rules []Rule[T], priority []Rule[T]) ErrorMapper[T] {
	return ErrorMapper[T]{
		Rules:    rules,
		Priority: priority,
	}
}

// Transform picks the exposed error for err:
// 1. the first priority rule with any match wins
// 2. otherwise the fully matching rule with the longest chain wins
// 3. otherwise the default error is returned
func (m *ErrorMapper[T]) Transform(err error) T {
	for _, rule := range m.Priority {
		if countMatching(err, rule.Chain) > 0 {
			return expose(rule, err)
		}
	}

	var (
		best    *Rule[T]
		bestLen int
	)

	for i, rule := range m.Rules {
		n := countMatching(err, rule.Chain)
		if n == 0 || n < len(rule.Chain) {
			continue
		}

		if n > bestLen {
			best = &m.Rules[i]
			bestLen = n
		}
	}

	if best == nil {
		return (*new(T)).DefaultError()
	}

	return expose(*best, err)
}

func expose[T Exposable[T]](rule Rule[T], err error) T {
	if rule.Detail == nil {
		return rule.Exposed
	}

	return rule.Exposed.WithDetail(rule.Detail(err))
}

func countMatching(err error, candidates []error) int {
	matchCount := 0

	for _, candidate := range candidates {
		if errors.Is(err, candidate) {
			matchCount++
		}
	}

	return matchCount
}
