package decision

import "context"

// HealthStatus is the liveness-probe result (spec §4.6, §6).
type HealthStatus struct {
	Healthy    bool
	StoreOK    bool
	LoggerOK   bool
	QueueDepth int
	QueueLimit int
}

// Health reports whether the store is reachable and the logger queue is
// below its high-water mark. Either failing makes the whole probe fail
// (spec §4.6: "GET /health returns ok iff the store is reachable and the
// logger queue is below its high-water mark; otherwise 503").
func (s *Service) Health(ctx context.Context) HealthStatus {
	storeOK := s.store.Ping(ctx) == nil

	loggerOK := true
	depth, limit := 0, 0
	if s.logger != nil {
		depth = s.logger.QueueDepth()
		limit = s.logger.QueueCapacity()
		if limit > 0 {
			loggerOK = depth < highWaterMarkFraction(limit)
		}
	}

	return HealthStatus{
		Healthy:    storeOK && loggerOK,
		StoreOK:    storeOK,
		LoggerOK:   loggerOK,
		QueueDepth: depth,
		QueueLimit: limit,
	}
}

// highWaterMarkFraction flags queue saturation at 90% of capacity.
func highWaterMarkFraction(capacity int) int {
	return capacity - capacity/10
}
