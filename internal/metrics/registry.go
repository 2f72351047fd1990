package metrics

import (
	"fmt"
	"sync/atomic"
)

// Registry holds the pipeline's counters. All counters are monotonic for
// the lifetime of the process.
type Registry struct {
	eventsReceived     uint64
	eventsDiscarded    uint64
	duplicateOffenders uint64
	scamsConfirmed     uint64
	classifierRetries  uint64
	classifierFailures uint64
	bansExecuted       uint64
	banFailures        uint64
	noticesSent        uint64
	noticeFailures     uint64
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) IncEventsReceived()     { atomic.AddUint64(&r.eventsReceived, 1) }
func (r *Registry) IncEventsDiscarded()    { atomic.AddUint64(&r.eventsDiscarded, 1) }
func (r *Registry) IncDuplicateOffenders() { atomic.AddUint64(&r.duplicateOffenders, 1) }
func (r *Registry) IncScamsConfirmed()     { atomic.AddUint64(&r.scamsConfirmed, 1) }
func (r *Registry) IncClassifierRetries()  { atomic.AddUint64(&r.classifierRetries, 1) }
func (r *Registry) IncClassifierFailures() { atomic.AddUint64(&r.classifierFailures, 1) }
func (r *Registry) AddBansExecuted(n int)  { atomic.AddUint64(&r.bansExecuted, uint64(n)) }
func (r *Registry) AddBanFailures(n int)   { atomic.AddUint64(&r.banFailures, uint64(n)) }
func (r *Registry) AddNoticesSent(n int)   { atomic.AddUint64(&r.noticesSent, uint64(n)) }
func (r *Registry) AddNoticeFailures(n int) {
	atomic.AddUint64(&r.noticeFailures, uint64(n))
}

func (r *Registry) EventsReceived() uint64 { return atomic.LoadUint64(&r.eventsReceived) }
func (r *Registry) ScamsConfirmed() uint64 { return atomic.LoadUint64(&r.scamsConfirmed) }
func (r *Registry) BansExecuted() uint64   { return atomic.LoadUint64(&r.bansExecuted) }

// Export renders the counters in a plain text format for the /metrics
// endpoint.
func (r *Registry) Export() string {
	return fmt.Sprintf(
		"events_received %d\n"+
			"events_discarded %d\n"+
			"duplicate_offenders %d\n"+
			"scams_confirmed %d\n"+
			"classifier_retries %d\n"+
			"classifier_failures %d\n"+
			"bans_executed %d\n"+
			"ban_failures %d\n"+
			"notices_sent %d\n"+
			"notice_failures %d\n",
		atomic.LoadUint64(&r.eventsReceived),
		atomic.LoadUint64(&r.eventsDiscarded),
		atomic.LoadUint64(&r.duplicateOffenders),
		atomic.LoadUint64(&r.scamsConfirmed),
		atomic.LoadUint64(&r.classifierRetries),
		atomic.LoadUint64(&r.classifierFailures),
		atomic.LoadUint64(&r.bansExecuted),
		atomic.LoadUint64(&r.banFailures),
		atomic.LoadUint64(&r.noticesSent),
		atomic.LoadUint64(&r.noticeFailures),
	)
}

var GlobalRegistry *Registry

func InitGlobalRegistry() {
	GlobalRegistry = NewRegistry()
}

func GetRegistry() *Registry {
	if GlobalRegistry == nil {
		InitGlobalRegistry()
	}
	return GlobalRegistry
}
