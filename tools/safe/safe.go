package safe

import (
	"realchat/logger"
)

// Go starts a goroutine that recovers from panic, so a single bad event
// handler cannot take down the gateway. One inbound session event == one
// Go task.
func Go(f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("[safe.Go] panic recovered: %v", r)
			}
		}()
		f()
	}()
}
