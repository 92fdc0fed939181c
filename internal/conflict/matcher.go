package conflict

import (
	"fmt"
	"strings"

	"github.com/shaiso/conflictsuite/internal/domain"
)

// Matcher сверяет сообщение ошибки кластера с ожидаемым.
type Matcher interface {
	Match(message string) bool
	Expected() string
}

// Substring — сообщение содержит строку (с учётом регистра).
type Substring string

// Match реализует Matcher.
func (s Substring) Match(message string) bool {
	return strings.Contains(message, string(s))
}

// Expected реализует Matcher.
func (s Substring) Expected() string {
	return string(s)
}

// String для логов.
func (s Substring) String() string {
	return fmt.Sprintf("contains(%q)", string(s))
}

// Exact — сообщение совпадает со строкой целиком.
type Exact string

// Match реализует Matcher.
func (e Exact) Match(message string) bool {
	return message == string(e)
}

// Expected реализует Matcher.
func (e Exact) Expected() string {
	return string(e)
}

// String для логов.
func (e Exact) String() string {
	return fmt.Sprintf("equals(%q)", string(e))
}

// MatcherFor возвращает Matcher для правила.
func MatcherFor(rule *domain.ConflictRule) Matcher {
	if rule.FullMatch {
		return Exact(rule.ExpectedError)
	}
	return Substring(rule.ExpectedError)
}
