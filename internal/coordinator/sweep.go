package coordinator

import (
	"context"
	"time"
)

// SweepIdle cancels sessions that have not been touched for at least
// idleFor, aborting their backend transfers so reserved storage is
// reclaimed. It returns the number of sessions swept.
//
// Failures on individual sessions are logged and skipped so one bad session
// does not stall the sweep.
func (c *Coordinator) SweepIdle(ctx context.Context, idleFor time.Duration) (int, error) {
	cutoff := c.now().Add(-idleFor)

	idle, err := c.sessions.GetIdleSince(ctx, cutoff)
	if err != nil {
		return 0, newPersistenceError("sweep", err)
	}

	swept := 0
	for _, session := range idle {
		if _, err := c.Cancel(ctx, session.SessionID); err != nil {
			c.logger.Warn("failed to sweep idle session",
				"session_id", session.SessionID,
				"updated_at", session.UpdatedAt,
				"error", err)
			continue
		}
		swept++
	}

	if swept > 0 {
		c.logger.Info("swept idle upload sessions",
			"swept", swept,
			"cutoff", cutoff)
	}

	return swept, nil
}
