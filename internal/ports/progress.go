package ports

import "github.com/1ikeadragon/subconverge/internal/domain"

// ProgressSink receives progress events. Emit is called from the aggregator
// goroutine and from dispatcher workers, so implementations must be safe for
// concurrent use.
type ProgressSink interface {
	Emit(ev domain.Event)
}
