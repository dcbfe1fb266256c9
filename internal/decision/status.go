package decision

import (
	"context"

	"gatekeeperd/internal/activitylog"
)

// StatusRequest is the base broker envelope shared by the offline and
// wakeup callbacks (spec §4.6, §6).
type StatusRequest struct {
	ClientID string
	Username string
	PeerAddr string
}

// Offline releases the tracker's live-session slot and logs a disconnect
// event. WAKEUP does not transition tracker state (spec §4.3).
func (s *Service) Offline(ctx context.Context, req StatusRequest) {
	s.tracker.Release(req.Username)
	s.submitActivity(activitylog.Record{
		EventType: activitylog.EventDisconnect,
		Result:    activitylog.ResultAllow,
		ClientID:  req.ClientID,
		Username:  req.Username,
		PeerAddr:  req.PeerAddr,
	})
}

// Wakeup logs a wakeup event; no tracker state change.
func (s *Service) Wakeup(ctx context.Context, req StatusRequest) {
	s.submitActivity(activitylog.Record{
		EventType: activitylog.EventWakeup,
		Result:    activitylog.ResultAllow,
		ClientID:  req.ClientID,
		Username:  req.Username,
		PeerAddr:  req.PeerAddr,
	})
}
