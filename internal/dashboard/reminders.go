package dashboard

import (
	"context"
	"slices"

	"chitieu/internal/analytics"
	"chitieu/internal/core"
)

// UpcomingReminders returns unpaid reminders due between today and
// today+days inclusive, soonest first.
func UpcomingReminders(reminders []core.Reminder, today core.Date, days int) []core.Reminder {
	window := analytics.Window{Start: today, End: today.AddDays(days)}
	out := make([]core.Reminder, 0)
	for _, r := range reminders {
		if !r.Paid && window.Contains(r.DueDate) {
			out = append(out, r)
		}
	}
	return analytics.SortByDate(out, analytics.Ascending)
}

// OverdueReminders returns unpaid reminders due before today, oldest first.
func OverdueReminders(reminders []core.Reminder, today core.Date) []core.Reminder {
	out := make([]core.Reminder, 0)
	for _, r := range reminders {
		if !r.Paid && r.DueDate.Before(today.Time) {
			out = append(out, r)
		}
	}
	return analytics.SortByDate(out, analytics.Ascending)
}

// Reminders lists the owner's reminders by due date. With upcomingDays > 0
// only unpaid reminders due in that many days are returned.
func (s *Service) Reminders(ctx context.Context, owner string, upcomingDays int) ([]core.Reminder, error) {
	snap, err := s.Snapshot(ctx, owner)
	if err != nil {
		return nil, err
	}
	if upcomingDays > 0 {
		return UpcomingReminders(snap.Reminders, core.DateOf(s.now()), upcomingDays), nil
	}
	return analytics.SortByDate(slices.Clone(snap.Reminders), analytics.Ascending), nil
}
