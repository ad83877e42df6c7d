package pagecache

// Monitor receives an event for every cache decision the middleware makes.
// Use it to feed hit-rate and error metrics into whatever monitoring system
// the surrounding process uses.
//
// Implementations must be safe for concurrent use.
type Monitor interface {
	// Hit is called when a request is served from the cache.
	Hit()
	// Miss is called when the wrapped handler has to produce the response.
	Miss()
	// Bypass is called when caching does not apply to the request at all.
	Bypass()
	// Error is called when a storage lookup or write fails.
	Error()
}

// MonitorFunc adapts plain callbacks to the Monitor interface.
// Nil callbacks are ignored.
type MonitorFunc struct {
	OnHit    func()
	OnMiss   func()
	OnBypass func()
	OnError  func()
}

func (m MonitorFunc) Hit() {
	if m.OnHit != nil {
		m.OnHit()
	}
}

func (m MonitorFunc) Miss() {
	if m.OnMiss != nil {
		m.OnMiss()
	}
}

func (m MonitorFunc) Bypass() {
	if m.OnBypass != nil {
		m.OnBypass()
	}
}

func (m MonitorFunc) Error() {
	if m.OnError != nil {
		m.OnError()
	}
}

type noopMonitor struct{}

func (noopMonitor) Hit()    {}
func (noopMonitor) Miss()   {}
func (noopMonitor) Bypass() {}
func (noopMonitor) Error()  {}
