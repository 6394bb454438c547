package service

import "time"

// SetClock replaces the time source of a NotificationService built by
// NewNotificationService.
func SetClock(svc NotificationService, now func() time.Time) {
	svc.(*notificationServiceImpl).now = now
}

// HoldRunLock acquires the run lock as if a run were in progress and returns
// the release function.
func HoldRunLock(svc NotificationService) func() {
	impl := svc.(*notificationServiceImpl)
	impl.running.Lock()
	return impl.running.Unlock
}
