package scheduler

// ExportedRunOnce exposes the private runOnce method for external tests.
func (s *Scheduler) ExportedRunOnce() {
	s.runOnce()
}
