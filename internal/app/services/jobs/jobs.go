package jobs

import (
	"context"

	"github.com/pawmate/pawmate/internal/config"
)

// Job names.
const (
	CompleteBookings = "complete-bookings"
	StreakReminders  = "streak-reminders"
)

// BookingCompleter closes bookings whose stay has ended.
type BookingCompleter interface {
	CompleteEnded(ctx context.Context) (int, error)
}

// StreakReminder nudges owners whose streak is about to break.
type StreakReminder interface {
	SendStreakReminders(ctx context.Context) (int, error)
}

// Register adds the built-in jobs with the schedules from cfg. Empty
// schedules disable the job.
func Register(s *Scheduler, cfg config.JobsConfig, bookings BookingCompleter, pets StreakReminder) error {
	if cfg.CompleteBookings != "" && bookings != nil {
		if err := s.Add(CompleteBookings, cfg.CompleteBookings, RunnerFunc(bookings.CompleteEnded)); err != nil {
			return err
		}
	}
	if cfg.StreakReminders != "" && pets != nil {
		if err := s.Add(StreakReminders, cfg.StreakReminders, RunnerFunc(pets.SendStreakReminders)); err != nil {
			return err
		}
	}
	return nil
}
