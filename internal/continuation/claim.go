package continuation

import (
	"fmt"

	"github.com/nudgehq/nudge/internal/eventlog"
)

// Claim moves the pending continuation into sessionID's active record when
// the pending targeting matches. It returns nil, leaving the pending record
// in place, when nothing is pending or the pending record is aimed elsewhere.
//
// The move runs under the state directory lock where flock is available.
// Without it two sessions racing on the same untargeted pending record can
// both claim it.
func (r *Registry) Claim(sessionID, projectKey string) (*Session, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("claim requires a session id")
	}

	var claimed *Session
	err := r.store.WithLock(func() error {
		p, err := r.GetPending()
		if err != nil || p == nil {
			return err
		}
		if !Matches(p, sessionID, projectKey) {
			return nil
		}

		s := &Session{
			SessionID:  sessionID,
			ProjectKey: projectKey,
			Mode:       p.Mode,
			Objective:  p.Objective,
			Command:    p.Command,
			CreatedAt:  p.CreatedAt,
			ClaimedAt:  r.now().UTC(),
			Iteration:  0,
		}
		if err := r.SetSession(s); err != nil {
			return err
		}
		if _, err := r.store.Remove(pendingDoc); err != nil {
			// Undo so the directive is not held by both slots.
			_, _ = r.store.Remove(sessionDoc(sessionID))
			return fmt.Errorf("consume pending continuation: %w", err)
		}
		claimed = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	if claimed != nil {
		r.events.Append(eventlog.KindClaimed, sessionID, projectLabel(projectKey), claimed.Value(),
			map[string]interface{}{"mode": string(claimed.Mode), "project_key": projectKey})
	}
	return claimed, nil
}
