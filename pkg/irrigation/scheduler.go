package irrigation

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"liyu1981.xyz/plant-care-service/pkg/clock"
	"liyu1981.xyz/plant-care-service/pkg/common"
	"liyu1981.xyz/plant-care-service/pkg/models"
)

const (
	DefaultCooldown      = 6 * time.Hour
	DefaultSlotTolerance = 5 * time.Minute
	FertiliseSeasonStart = time.April
	FertiliseSeasonEnd   = time.September
)

// Store persists zone runtime state so cool-down survives restarts.
type Store interface {
	SaveZoneState(rec models.ZoneStateRecord) error
	LoadZoneStates() ([]models.ZoneStateRecord, error)
}

type Options struct {
	Clock           clock.Clock
	DefaultCooldown time.Duration
	SlotTolerance   time.Duration
	Store           Store
}

type Scheduler struct {
	mu        sync.RWMutex
	zones     map[string]*Zone
	persisted map[string]models.ZoneStateRecord
	opts      Options
	logger    *zap.Logger
}

func NewScheduler(opts Options) *Scheduler {
	if opts.Clock == nil {
		opts.Clock = clock.SystemClock{}
	}
	if opts.DefaultCooldown <= 0 {
		opts.DefaultCooldown = DefaultCooldown
	}
	if opts.SlotTolerance <= 0 {
		opts.SlotTolerance = DefaultSlotTolerance
	}
	s := &Scheduler{
		zones:     make(map[string]*Zone),
		persisted: make(map[string]models.ZoneStateRecord),
		opts:      opts,
		logger:    common.GetCategoryLogger(common.LoggerNamePlantCore, common.LoggerCategoryIrrigation),
	}
	if opts.Store != nil {
		recs, err := opts.Store.LoadZoneStates()
		if err != nil {
			s.logger.Error("Failed to load zone states", zap.Error(err))
		}
		for _, r := range recs {
			s.persisted[r.ZoneID] = r
		}
	}
	return s
}

// SetTimings updates the cool-down default and slot tolerance of a new snapshot.
func (s *Scheduler) SetTimings(defaultCooldown, slotTolerance time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if defaultCooldown > 0 {
		s.opts.DefaultCooldown = defaultCooldown
	}
	if slotTolerance > 0 {
		s.opts.SlotTolerance = slotTolerance
	}
}

func (s *Scheduler) sortedZones() []*Zone {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Zone, 0, len(s.zones))
	for _, z := range s.zones {
		out = append(out, z)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].cfg.ID < out[j].cfg.ID })
	return out
}

func flagState(misconfigured bool) models.State {
	if misconfigured {
		return models.StateProblem
	}
	return models.StateOk
}

// Configure replaces the zone set. Misconfigured zones are flagged, never
// corrected; a StateChanged is returned for every zone whose flag changed.
func (s *Scheduler) Configure(zones []models.ZoneConfig, bindings []models.SensorBinding, locations map[string]*time.Location) []models.Event {
	now := s.opts.Clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]*Zone, len(zones))
	prevFlag := make(map[string]*bool, len(zones))
	for _, cfg := range zones {
		z, ok := s.zones[cfg.ID]
		if ok {
			z.mu.Lock()
			flag := z.misconfigured
			prevFlag[cfg.ID] = &flag
		} else {
			z = &Zone{}
			z.mu.Lock()
			if rec, found := s.persisted[cfg.ID]; found {
				z.restore(rec)
			}
		}
		z.cfg = cfg
		z.loc = locations[cfg.LocationID]
		if z.loc == nil {
			z.loc = time.UTC
		}
		z.slots, _ = parseSlots(cfg.Times)
		z.reasons = validate(z, bindings)
		z.mu.Unlock()
		next[cfg.ID] = z
	}

	// valve conflicts need the whole set
	ids := common.SortedKeys(next)
	for i, a := range ids {
		za := next[a]
		for _, b := range ids[i+1:] {
			zb := next[b]
			if za.cfg.Valve == "" || za.cfg.Valve != zb.cfg.Valve {
				continue
			}
			if za.cfg.Mode != models.ScheduleTime || zb.cfg.Mode != models.ScheduleTime {
				continue
			}
			if !sharesWeekday(za.cfg.Weekdays, zb.cfg.Weekdays) {
				continue
			}
			if windowsOverlap(za.slots, za.cfg.Duration.Std(), zb.slots, zb.cfg.Duration.Std()) {
				za.reasons = append(za.reasons, fmt.Sprintf("valve %s overlaps with zone %s", za.cfg.Valve, b))
				zb.reasons = append(zb.reasons, fmt.Sprintf("valve %s overlaps with zone %s", zb.cfg.Valve, a))
			}
		}
	}

	var events []models.Event
	for _, id := range ids {
		z := next[id]
		z.mu.Lock()
		z.misconfigured = len(z.reasons) > 0
		old := models.StateUnknown
		if prev := prevFlag[id]; prev != nil {
			old = flagState(*prev)
		}
		if nw := flagState(z.misconfigured); nw != old {
			events = append(events, models.StateChanged{
				EntityID:  id,
				Check:     models.CheckScheduleMisconfigured,
				Old:       old,
				New:       nw,
				Reason:    strings.Join(z.reasons, "; "),
				Timestamp: now,
			})
		}
		if z.misconfigured {
			s.logger.Warn("Zone misconfigured", zap.String("zone_id", id), zap.Strings("reasons", z.reasons))
		}
		z.mu.Unlock()
	}

	s.zones = next
	return events
}

func (s *Scheduler) cooldown(z *Zone) time.Duration {
	if c := z.cfg.Cooldown.Std(); c > 0 {
		return c
	}
	return s.opts.DefaultCooldown
}

// fire must be called with z.mu held. lastFired is set before the event
// leaves, so a failed actuation still counts towards the cool-down.
func (s *Scheduler) fire(z *Zone, reason models.TriggerReason, now time.Time) (models.IrrigationEvent, bool) {
	if !z.cfg.Enabled {
		s.logger.Debug("Zone disabled, skip", zap.String("zone_id", z.cfg.ID))
		return models.IrrigationEvent{}, false
	}
	if z.misconfigured {
		s.logger.Info("Zone misconfigured, actuation suppressed", zap.String("zone_id", z.cfg.ID), zap.Error(common.ErrMisconfigured))
		return models.IrrigationEvent{}, false
	}
	if z.inCooldown(now, s.cooldown(z)) {
		s.logger.Debug("Zone in cool-down, skip", zap.String("zone_id", z.cfg.ID), zap.Time("last_fired", z.lastFired))
		return models.IrrigationEvent{}, false
	}

	z.lastFired = now
	ev := models.IrrigationEvent{
		ID:        uuid.NewString(),
		ZoneID:    z.cfg.ID,
		Reason:    reason,
		Duration:  z.cfg.Duration.Std(),
		Timestamp: now,
	}
	s.logger.Info("Irrigation triggered", zap.String("zone_id", z.cfg.ID), zap.String("reason", string(reason)))
	return ev, true
}

func (s *Scheduler) persist(z *Zone) {
	if s.opts.Store == nil {
		return
	}
	if err := s.opts.Store.SaveZoneState(z.record()); err != nil {
		s.logger.Error("Failed to persist zone state", zap.String("zone_id", z.cfg.ID), zap.Error(err))
	}
}

// OnStateChanged fires the moisture zones bound to the sensor when a
// moisture_low check turns into a problem.
func (s *Scheduler) OnStateChanged(ev models.StateChanged) []models.Event {
	if ev.Check != models.CheckMoistureLow || ev.New != models.StateProblem || ev.SensorID == "" {
		return nil
	}
	now := s.opts.Clock.Now()

	var out []models.Event
	for _, z := range s.sortedZones() {
		z.mu.Lock()
		if z.cfg.Mode == models.ScheduleMoisture && hasSensor(&z.cfg, ev.SensorID) {
			if fired, ok := s.fire(z, models.TriggerMoisture, now); ok {
				s.persist(z)
				out = append(out, fired)
			}
		}
		z.mu.Unlock()
	}
	return out
}

// Tick fires time zones whose slot fell in (last evaluation, now].
func (s *Scheduler) Tick(now time.Time) []models.Event {
	s.mu.RLock()
	tolerance := s.opts.SlotTolerance
	s.mu.RUnlock()

	var out []models.Event
	for _, z := range s.sortedZones() {
		z.mu.Lock()
		if z.cfg.Mode == models.ScheduleTime {
			from := z.lastEvaluated
			if from.IsZero() {
				from = now.Add(-tolerance)
			}
			if slot, due := z.dueSlot(from, now, tolerance); due {
				if fired, ok := s.fire(z, models.TriggerSchedule, now); ok {
					z.lastSlotAt = slot
					s.persist(z)
					out = append(out, fired)
				}
			}
			if now.After(z.lastEvaluated) {
				z.lastEvaluated = now
			}
		}
		z.mu.Unlock()
	}
	return out
}

func (s *Scheduler) zone(zoneID string) (*Zone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	z, ok := s.zones[zoneID]
	if !ok {
		return nil, fmt.Errorf("zone %s: %w", zoneID, common.ErrNotFound)
	}
	return z, nil
}

// ReportActuationResult feeds back the outcome of an actuation. Failures
// count towards the zone error counter.
func (s *Scheduler) ReportActuationResult(zoneID string, actuationErr error) error {
	z, err := s.zone(zoneID)
	if err != nil {
		return err
	}
	z.mu.Lock()
	defer z.mu.Unlock()
	if actuationErr == nil {
		return nil
	}
	z.errorCount++
	z.lastError = actuationErr.Error()
	s.logger.Warn("Actuation failed", zap.String("zone_id", zoneID), zap.Int("error_count", z.errorCount), zap.Error(actuationErr))
	s.persist(z)
	return nil
}

func (s *Scheduler) ResetErrorCount(zoneID string) error {
	z, err := s.zone(zoneID)
	if err != nil {
		return err
	}
	z.mu.Lock()
	defer z.mu.Unlock()
	z.errorCount = 0
	z.lastError = ""
	s.persist(z)
	return nil
}

func (s *Scheduler) RecordFertilised(zoneID string, at time.Time) error {
	z, err := s.zone(zoneID)
	if err != nil {
		return err
	}
	z.mu.Lock()
	defer z.mu.Unlock()
	t := at
	z.lastFertilised = &t
	s.persist(z)
	return nil
}

// FertiliserDue reports whether a zone should get a nutrient injection:
// only in season, and when none was recorded in the last N days.
func (s *Scheduler) FertiliserDue(zoneID string, now time.Time) (bool, error) {
	z, err := s.zone(zoneID)
	if err != nil {
		return false, err
	}
	z.mu.Lock()
	defer z.mu.Unlock()
	if z.cfg.FertiliseEveryDays <= 0 {
		return false, nil
	}
	month := now.In(z.loc).Month()
	if month < FertiliseSeasonStart || month > FertiliseSeasonEnd {
		return false, nil
	}
	if z.lastFertilised == nil {
		return true, nil
	}
	return now.Sub(*z.lastFertilised) >= time.Duration(z.cfg.FertiliseEveryDays)*24*time.Hour, nil
}

func (s *Scheduler) Zone(zoneID string) (ZoneStatus, error) {
	z, err := s.zone(zoneID)
	if err != nil {
		return ZoneStatus{}, err
	}
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.status(), nil
}

func (s *Scheduler) Zones() []ZoneStatus {
	return common.Mapper(s.sortedZones(), func(z *Zone) ZoneStatus {
		z.mu.Lock()
		defer z.mu.Unlock()
		return z.status()
	})
}
