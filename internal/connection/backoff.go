package connection

import "time"

// ReconnectDelay returns min(base * 2^attempt, max).
func ReconnectDelay(base, max time.Duration, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	wait := base
	for i := 0; i < attempt; i++ {
		// Stop doubling once capped so large attempt counts can't overflow.
		if wait >= max {
			return max
		}
		wait *= 2
	}

	if wait > max {
		return max
	}
	return wait
}
