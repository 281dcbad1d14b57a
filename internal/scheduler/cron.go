package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Cron runs jobs at fixed wall-clock times in one location.
type Cron struct {
	cron *cron.Cron
}

func NewCron(loc *time.Location) *Cron {
	if loc == nil {
		loc = time.Local
	}
	return &Cron{
		cron: cron.New(cron.WithLocation(loc), cron.WithSeconds()),
	}
}

// ScheduleDaily registers job to run every day at hour:minute.
func (c *Cron) ScheduleDaily(hour, minute int, job func()) (cron.EntryID, error) {
	spec, err := DailySpec(hour, minute)
	if err != nil {
		return 0, err
	}
	return c.cron.AddFunc(spec, job)
}

func (c *Cron) Remove(id cron.EntryID) {
	c.cron.Remove(id)
}

// Next reports when the entry fires next, or the zero time if it is unknown.
func (c *Cron) Next(id cron.EntryID) time.Time {
	return c.cron.Entry(id).Next
}

func (c *Cron) Start() {
	c.cron.Start()
}

func (c *Cron) Stop() {
	ctx := c.cron.Stop()
	<-ctx.Done()
}

// DailySpec builds the seconds-first cron spec for hour:minute.
func DailySpec(hour, minute int) (string, error) {
	if hour < 0 || hour > 23 {
		return "", fmt.Errorf("%w: hour %d", ErrInvalidTriggerTime, hour)
	}
	if minute < 0 || minute > 59 {
		return "", fmt.Errorf("%w: minute %d", ErrInvalidTriggerTime, minute)
	}
	// second minute hour dom month dow
	return fmt.Sprintf("0 %d %d * * *", minute, hour), nil
}
