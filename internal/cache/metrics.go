package cache

// Metrics receives accessor events.
type Metrics interface {
	// Hit is called when Get returns a stored value.
	Hit()
	// Miss is called when Get has to (or waits on someone to) produce.
	Miss()
	// Coalesced is called when a caller received another caller's result.
	Coalesced()
	// ProducerFailed is called when a producer returns an error.
	ProducerFailed()
}

// NoopMetrics ignores every event.
type NoopMetrics struct{}

func (NoopMetrics) Hit()            {}
func (NoopMetrics) Miss()           {}
func (NoopMetrics) Coalesced()      {}
func (NoopMetrics) ProducerFailed() {}
