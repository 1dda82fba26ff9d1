package threshold

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"liyu1981.xyz/plant-care-service/pkg/common"
	"liyu1981.xyz/plant-care-service/pkg/models"
)

type machine struct {
	rule           Rule
	state          models.State
	value          *float64
	lastTransition time.Time
	violations     int
	recoveries     int
	violatingSince time.Time
	ignoreUntil    *time.Time
}

// Evaluator holds the debounce state of every check of one plant or
// location. It is not safe for concurrent use; its owner serialises access.
type Evaluator struct {
	entityID string
	machines map[models.Check]*machine
	latest   map[models.MetricKind]float64
	logger   *zap.Logger
}

func NewEvaluator(entityID string, rules []Rule) *Evaluator {
	e := &Evaluator{
		entityID: entityID,
		machines: make(map[models.Check]*machine),
		latest:   make(map[models.MetricKind]float64),
		logger:   common.GetCategoryLogger(common.LoggerNamePlantCore, common.LoggerCategoryThreshold),
	}
	e.Reconfigure(rules)
	return e
}

// Reconfigure replaces the rule set. Checks that survive keep their state and
// counters; new checks start Unknown.
func (e *Evaluator) Reconfigure(rules []Rule) {
	next := make(map[models.Check]*machine, len(rules))
	for _, r := range rules {
		if r.ViolationCount < 1 {
			r.ViolationCount = 1
		}
		if r.RecoveryCount < 1 {
			r.RecoveryCount = 1
		}
		if m, ok := e.machines[r.Check]; ok {
			m.rule = r
			next[r.Check] = m
			continue
		}
		next[r.Check] = &machine{rule: r, state: models.StateUnknown}
	}
	e.machines = next
}

func (e *Evaluator) transition(m *machine, to models.State, at time.Time, sensorID, reason string) models.StateChanged {
	ev := models.StateChanged{
		EntityID:  e.entityID,
		Check:     m.rule.Check,
		SensorID:  sensorID,
		Old:       m.state,
		New:       to,
		Value:     m.value,
		Reason:    reason,
		Timestamp: at,
	}
	m.state = to
	m.lastTransition = at
	m.violations = 0
	m.recoveries = 0
	m.violatingSince = time.Time{}
	e.logger.Info("Threshold state changed",
		zap.String("entity_id", e.entityID),
		zap.String("check", string(ev.Check)),
		zap.String("old", string(ev.Old)),
		zap.String("new", string(ev.New)),
		zap.String("reason", reason),
	)
	return ev
}

func describe(r Rule, value float64) string {
	switch r.Comparison {
	case Below:
		return fmt.Sprintf("%s %.2f below %.2f", r.Metric, value, r.Limit)
	case Above:
		return fmt.Sprintf("%s %.2f above %.2f", r.Metric, value, r.Limit)
	default:
		return fmt.Sprintf("%s %.2f within %.2f..%.2f", r.Metric, value, r.Limit, r.Upper)
	}
}

func (e *Evaluator) step(m *machine, value float64, at time.Time, sensorID string) (models.StateChanged, bool) {
	v := value
	m.value = &v

	if m.ignoreUntil != nil {
		if at.Before(*m.ignoreUntil) {
			m.violations, m.recoveries = 0, 0
			m.violatingSince = time.Time{}
			if m.state != models.StateOk {
				return e.transition(m, models.StateOk, at, sensorID, "ignored"), true
			}
			return models.StateChanged{}, false
		}
		m.ignoreUntil = nil
	}

	if m.rule.violates(value, e.latest) {
		m.recoveries = 0
		m.violations++
		if m.violatingSince.IsZero() {
			m.violatingSince = at
		}
		if m.state != models.StateProblem && m.violations >= m.rule.ViolationCount && m.sustained(at) {
			return e.transition(m, models.StateProblem, at, sensorID, describe(m.rule, value)), true
		}
		return models.StateChanged{}, false
	}

	m.violations = 0
	m.violatingSince = time.Time{}
	switch m.state {
	case models.StateUnknown:
		return e.transition(m, models.StateOk, at, sensorID, "first good sample"), true
	case models.StateProblem:
		m.recoveries++
		if m.recoveries >= m.rule.RecoveryCount {
			return e.transition(m, models.StateOk, at, sensorID, "recovered"), true
		}
	}
	return models.StateChanged{}, false
}

func (m *machine) sustained(at time.Time) bool {
	return m.rule.MinDuration <= 0 || at.Sub(m.violatingSince) >= m.rule.MinDuration
}

func (e *Evaluator) sorted() []*machine {
	out := make([]*machine, 0, len(e.machines))
	for _, m := range e.machines {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].rule.Check < out[j].rule.Check })
	return out
}

// Observe evaluates every reading based check of the reading's metric.
func (e *Evaluator) Observe(r models.SensorReading) []models.StateChanged {
	e.latest[r.Kind] = r.Value

	var out []models.StateChanged
	for _, m := range e.sorted() {
		if m.rule.DLI || m.rule.Metric != r.Kind {
			continue
		}
		if ev, changed := e.step(m, r.Value, r.Timestamp, r.SensorID); changed {
			out = append(out, ev)
		}
	}
	return out
}

// ObserveDLI evaluates the DLI band once per finalised day.
func (e *Evaluator) ObserveDLI(f models.DLIFinalized) []models.StateChanged {
	var out []models.StateChanged
	for _, m := range e.sorted() {
		if !m.rule.DLI {
			continue
		}
		if ev, changed := e.step(m, f.DLI, f.Timestamp, ""); changed {
			out = append(out, ev)
		}
	}
	return out
}

// MarkStale forces every check fed by kind back to Unknown.
func (e *Evaluator) MarkStale(kind models.MetricKind, sensorID string, at time.Time) []models.StateChanged {
	delete(e.latest, kind)

	var out []models.StateChanged
	for _, m := range e.sorted() {
		if m.rule.DLI || m.rule.Metric != kind {
			continue
		}
		m.value = nil
		if m.state != models.StateUnknown {
			out = append(out, e.transition(m, models.StateUnknown, at, sensorID, "sensor stale"))
			continue
		}
		m.violations, m.recoveries = 0, 0
		m.violatingSince = time.Time{}
	}
	return out
}

// Ignore snoozes a check until the given time. While active the check is
// held Ok and never raises a problem.
func (e *Evaluator) Ignore(check models.Check, until, now time.Time) ([]models.StateChanged, error) {
	m, ok := e.machines[check]
	if !ok {
		return nil, fmt.Errorf("check %s on %s: %w", check, e.entityID, common.ErrNotFound)
	}
	if !until.After(now) {
		m.ignoreUntil = nil
		return nil, nil
	}
	u := until
	m.ignoreUntil = &u
	m.violations, m.recoveries = 0, 0
	m.violatingSince = time.Time{}
	if m.state != models.StateOk {
		return []models.StateChanged{e.transition(m, models.StateOk, now, "", "ignored")}, nil
	}
	return nil, nil
}

func (e *Evaluator) export(m *machine) models.ThresholdState {
	return models.ThresholdState{
		EntityID:       e.entityID,
		Check:          m.rule.Check,
		Value:          m.value,
		State:          m.state,
		Problem:        m.state == models.StateProblem,
		LastTransition: m.lastTransition,
		Violations:     m.violations,
		Recoveries:     m.recoveries,
		IgnoreUntil:    m.ignoreUntil,
	}
}

func (e *Evaluator) States() []models.ThresholdState {
	return common.Mapper(e.sorted(), e.export)
}
