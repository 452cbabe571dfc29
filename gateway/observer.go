package gateway

import "time"

const (
	OpRead         = "read"
	OpWrite        = "write"
	OpReadMultiple = "read-multiple"
	OpWhoIs        = "whois"
)

// Event describes one completed operation.
type Event struct {
	Operation string
	Device    uint32
	Object    string
	Property  string
	// Items is the number of batch entries or discovered devices.
	Items    int
	Success  bool
	Category string
	Cause    string
	Started  time.Time
	Duration time.Duration
}

// Observer receives an Event after every operation. Observe is called on the
// request goroutine and must not block.
type Observer interface {
	Observe(Event)
}

type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

type multiObserver []Observer

func (m multiObserver) Observe(e Event) {
	for _, o := range m {
		o.Observe(e)
	}
}

// Observers fans events out to every non-nil observer.
func Observers(observers ...Observer) Observer {
	var m multiObserver
	for _, o := range observers {
		if o != nil {
			m = append(m, o)
		}
	}
	return m
}
