package session

import (
	"context"

	"github.com/bondar-aleksandr/cisco_fleet_admin/internal/device"
)

// Progress describes one convergence pass before it starts.
type Progress struct {
	Pass      int
	Remaining int
	Total     int
}

// Stop asks a running Recure to finish after its current pass. Devices
// mid-attempt are allowed to complete; the loop only checks the signal
// between passes.
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Session) stopped(ctx context.Context) bool {
	select {
	case <-s.stop:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// Recure repeats scheduling passes over the not-yet-succeeded subset until
// every device converges to PASS or Stop is called. There is no pass cap:
// a device that can never succeed keeps being retried every pass, which is
// the intended behavior for transient network flakiness.
func (s *Session) Recure(ctx context.Context, progress func(Progress)) error {
	if s.Mode == device.ModeRenderOnly {
		return ErrInvalidMode
	}
	passed := make(map[string]struct{})
	total := len(s.Devices)
	for pass := 0; ; pass++ {
		if len(passed) >= total {
			s.logger.Infof("Recursion finished, all %d devices administered", total)
			return nil
		}
		if s.stopped(ctx) {
			s.logger.Infof("Recursion stopped after %d passes, %d of %d devices remaining",
				pass, total-len(passed), total)
			return nil
		}
		if progress != nil {
			progress(Progress{Pass: pass, Remaining: total - len(passed), Total: total})
		}
		s.logger.Infof("RECURSION %d [%d/%d]", pass, total-len(passed), total)
		if err := s.Administer(ctx, passed); err != nil {
			return err
		}
		for _, d := range s.Devices {
			if d.Passed() {
				passed[d.ID] = struct{}{}
			}
		}
	}
}
