package appointment

import (
	"time"

	"github.com/clinicore/scheduling/internal/clock"
	"github.com/clinicore/scheduling/internal/timerange"
)

// PolicyConfig holds the tenant business rules applied before any booking or
// reschedule is committed.
type PolicyConfig struct {
	SlotGranularity    int // minutes; starts and ends must align to this
	MinDurationMinutes int
	MaxDurationMinutes int
	BusinessStart      timerange.TimeOfDay
	BusinessEnd        timerange.TimeOfDay
	MinAdvance         time.Duration
	MaxAdvanceDays     int
}

func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		SlotGranularity:    15,
		MinDurationMinutes: 15,
		MaxDurationMinutes: 240,
		BusinessStart:      8 * 60,  // 08:00
		BusinessEnd:        18 * 60, // 18:00
		MinAdvance:         2 * time.Hour,
		MaxAdvanceDays:     90,
	}
}

// Policy is the business-rule gate in front of booking and rescheduling.
type Policy struct {
	cfg PolicyConfig
	clk clock.Clock
}

func NewPolicy(cfg PolicyConfig, clk clock.Clock) *Policy {
	if clk == nil {
		clk = clock.System()
	}
	return &Policy{cfg: cfg, clk: clk}
}

// ValidateTiming checks duration bounds and slot-granularity alignment.
func (p *Policy) ValidateTiming(start, end timerange.TimeOfDay) error {
	if start >= end {
		return policyErrorf("timing", "start %s must be before end %s", start, end)
	}
	duration := int(end - start)
	if duration < p.cfg.MinDurationMinutes {
		return policyErrorf("timing", "duration %dm below minimum %dm", duration, p.cfg.MinDurationMinutes)
	}
	if duration > p.cfg.MaxDurationMinutes {
		return policyErrorf("timing", "duration %dm above maximum %dm", duration, p.cfg.MaxDurationMinutes)
	}
	if g := p.cfg.SlotGranularity; g > 0 {
		if int(start)%g != 0 || int(end)%g != 0 {
			return policyErrorf("timing", "times must align to %d-minute boundaries", g)
		}
	}
	return nil
}

// ValidateBusinessHours checks the window sits inside tenant business hours.
func (p *Policy) ValidateBusinessHours(start, end timerange.TimeOfDay) error {
	if start < p.cfg.BusinessStart || end > p.cfg.BusinessEnd {
		return policyErrorf("business_hours", "window %s-%s outside business hours %s-%s",
			start, end, p.cfg.BusinessStart, p.cfg.BusinessEnd)
	}
	return nil
}

// ValidateAdvanceWindow checks the appointment is at least MinAdvance from now
// and at most MaxAdvanceDays ahead. Exactly MinAdvance out is allowed.
func (p *Policy) ValidateAdvanceWindow(date time.Time, start timerange.TimeOfDay) error {
	now := p.clk.Now()
	at := timerange.At(date, start)
	lead := at.Sub(now)
	if lead < p.cfg.MinAdvance {
		return policyErrorf("advance_window", "appointments require at least %s notice", p.cfg.MinAdvance)
	}
	if lead > time.Duration(p.cfg.MaxAdvanceDays)*24*time.Hour {
		return policyErrorf("advance_window", "appointments may be booked at most %d days ahead", p.cfg.MaxAdvanceDays)
	}
	return nil
}

// ValidateNotPast rejects calendar dates strictly before today.
func (p *Policy) ValidateNotPast(date time.Time) error {
	today := timerange.DateOf(p.clk.Now())
	if timerange.DateOf(date).Before(today) {
		return policyErrorf("not_past", "date %s is in the past", date.Format(timerange.DateLayout))
	}
	return nil
}

// Validate runs every rule against a proposed window.
func (p *Policy) Validate(date time.Time, start, end timerange.TimeOfDay) error {
	if err := p.ValidateNotPast(date); err != nil {
		return err
	}
	if err := p.ValidateTiming(start, end); err != nil {
		return err
	}
	if err := p.ValidateBusinessHours(start, end); err != nil {
		return err
	}
	return p.ValidateAdvanceWindow(date, start)
}
