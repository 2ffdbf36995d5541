// cron.go - 5-field cron expression support for schedules

package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// scheduleParser accepts the classic minute hour day month weekday form;
// seconds and descriptors are rejected
var scheduleParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// ValidateCron checks that expr is a well-formed 5-field expression.
// Failures wrap ErrInvalidCron.
func ValidateCron(expr string) error {
	_, err := parseExpr(expr)
	return err
}

// NextRun returns the first firing of expr strictly after the given time
func NextRun(expr string, after time.Time) (time.Time, error) {
	sched, err := parseExpr(expr)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(after), nil
}

func parseExpr(expr string) (cron.Schedule, error) {
	sched, err := scheduleParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCron, err)
	}
	return sched, nil
}
