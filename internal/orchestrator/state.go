package orchestrator

import (
	"sync"

	"github.com/shaiso/conflictsuite/internal/domain"
)

// RuleState — состояние правила внутри прогона.
type RuleState string

const (
	RuleStatePending RuleState = "PENDING"
	RuleStateRunning RuleState = "RUNNING"
	RuleStateDone    RuleState = "DONE"
	RuleStateSkipped RuleState = "SKIPPED"
)

// SuiteState — состояние прогона в памяти.
//
// Пишет только coordinator; читать можно из любых горутин
// (метрики, API, прогресс в CLI).
type SuiteState struct {
	// Run — прогон.
	Run *domain.SuiteRun

	// order — имена правил в порядке матрицы.
	order []string

	// states — состояние каждого правила.
	states map[string]RuleState

	// outcomes — результаты завершённых правил (name → outcome).
	outcomes map[string]*domain.RuleOutcome

	// mu — мьютекс для потокобезопасного доступа.
	mu sync.RWMutex
}

// NewSuiteState создаёт состояние со всеми правилами в PENDING.
func NewSuiteState(run *domain.SuiteRun, rules []domain.ConflictRule) *SuiteState {
	s := &SuiteState{
		Run:      run,
		order:    make([]string, 0, len(rules)),
		states:   make(map[string]RuleState, len(rules)),
		outcomes: make(map[string]*domain.RuleOutcome, len(rules)),
	}
	for _, r := range rules {
		s.order = append(s.order, r.Name)
		s.states[r.Name] = RuleStatePending
	}
	return s
}

// MarkRuleRunning помечает правило как выполняющееся.
func (s *SuiteState) MarkRuleRunning(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[name] = RuleStateRunning
}

// RecordOutcome сохраняет результат правила и учитывает его в прогоне.
func (s *SuiteState) RecordOutcome(o *domain.RuleOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[o.Rule] = RuleStateDone
	s.outcomes[o.Rule] = o
	s.Run.Count(o)
}

// SkipPending помечает все невыполненные правила как пропущенные.
func (s *SuiteState) SkipPending() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, st := range s.states {
		if st == RuleStatePending {
			s.states[name] = RuleStateSkipped
		}
	}
}

// RuleState возвращает состояние правила.
func (s *SuiteState) RuleState(name string) RuleState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.states[name]
}

// Outcomes возвращает результаты в порядке матрицы.
func (s *SuiteState) Outcomes() []*domain.RuleOutcome {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.RuleOutcome, 0, len(s.outcomes))
	for _, name := range s.order {
		if o, ok := s.outcomes[name]; ok {
			out = append(out, o)
		}
	}
	return out
}

// IsComplete проверяет, что ни одно правило не ждёт выполнения.
func (s *SuiteState) IsComplete() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, st := range s.states {
		if st == RuleStatePending || st == RuleStateRunning {
			return false
		}
	}
	return true
}

// Stats возвращает статистику прогона.
func (s *SuiteState) Stats() SuiteStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := SuiteStats{TotalRules: len(s.order)}
	for _, name := range s.order {
		switch s.states[name] {
		case RuleStatePending:
			stats.PendingRules++
		case RuleStateRunning:
			stats.RunningRules++
		case RuleStateSkipped:
			stats.SkippedRules++
		case RuleStateDone:
			if s.outcomes[name].Status == domain.OutcomePassed {
				stats.PassedRules++
			} else {
				stats.FailedRules++
			}
		}
	}
	return stats
}

// SuiteStats — статистика прогона.
type SuiteStats struct {
	TotalRules   int `json:"total_rules"`
	PassedRules  int `json:"passed_rules"`
	FailedRules  int `json:"failed_rules"`
	RunningRules int `json:"running_rules"`
	PendingRules int `json:"pending_rules"`
	SkippedRules int `json:"skipped_rules"`
}
