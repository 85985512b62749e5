// Package dispatch fans out "device status changed" notifications to an
// arbitrary number of subscribers without blocking the connection read
// loops. Each subscription gets its own bounded queue drained by a worker
// goroutine; a slow or failing callback only ever costs that subscriber its
// oldest pending notifications, never frame ingestion.
package dispatch

import (
	"log"
	"sync"

	"github.com/mfreeman451/upsbridge/pkg/models"
)

const defaultQueueSize = 16

// Callback receives one notification. Invoked from the subscription's own
// worker goroutine, in FIFO order per device.
type Callback func(models.Notification)

// LatestFunc looks up the current snapshot for a device, used to prime new
// subscribers. A NotFound error simply skips the prime.
type LatestFunc func(deviceID string) (*models.UpsStatus, error)

// Subscription is the handle held by a consumer. It is removed only by an
// explicit Unsubscribe, never silently.
type Subscription struct {
	deviceID string
	callback Callback
	queue    chan models.Notification
	done     chan struct{}
	once     sync.Once
}

type Dispatcher struct {
	mu        sync.Mutex
	subs      map[string][]*Subscription
	latest    LatestFunc
	queueSize int
	wg        sync.WaitGroup
}

// New creates a Dispatcher. latest may be nil when no prime reads are
// wanted (tests, mostly).
func New(latest LatestFunc) *Dispatcher {
	return &Dispatcher{
		subs:      make(map[string][]*Subscription),
		latest:    latest,
		queueSize: defaultQueueSize,
	}
}

// Subscribe registers a callback for a device. If a snapshot is already
// stored the subscriber receives it as its first notification, with every
// present field marked changed; there is no replay of earlier changes.
//
// The prime read and the registration happen under the same lock Notify
// takes, so the primed snapshot is always queued ahead of any notification
// for a newer one; a subscriber never sees state move backwards.
func (d *Dispatcher) Subscribe(deviceID string, callback Callback) *Subscription {
	sub := &Subscription{
		deviceID: deviceID,
		callback: callback,
		queue:    make(chan models.Notification, d.queueSize),
		done:     make(chan struct{}),
	}

	d.mu.Lock()

	if d.latest != nil {
		if status, err := d.latest(deviceID); err == nil && status != nil {
			sub.enqueue(models.Notification{
				DeviceID: deviceID,
				Status:   status,
				Changed:  status.Diff(nil),
			})
		}
	}

	d.subs[deviceID] = append(d.subs[deviceID], sub)

	d.mu.Unlock()

	d.wg.Add(1)

	go d.run(sub)

	return sub
}

// Unsubscribe removes the subscription and stops its worker. Safe to call
// more than once.
func (d *Dispatcher) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	d.mu.Lock()

	subs := d.subs[sub.deviceID]
	for i, s := range subs {
		if s == sub {
			d.subs[sub.deviceID] = append(subs[:i], subs[i+1:]...)
			break
		}
	}

	if len(d.subs[sub.deviceID]) == 0 {
		delete(d.subs, sub.deviceID)
	}

	d.mu.Unlock()

	sub.once.Do(func() { close(sub.done) })
}

// Notify delivers a change event to every subscriber of the device. Empty
// change sets are suppressed. The subscriber list is copied under the lock;
// callbacks are never invoked while it is held.
func (d *Dispatcher) Notify(deviceID string, status *models.UpsStatus, changed models.ChangeSet) {
	if changed.IsEmpty() {
		return
	}

	d.mu.Lock()
	subs := make([]*Subscription, len(d.subs[deviceID]))
	copy(subs, d.subs[deviceID])
	d.mu.Unlock()

	n := models.Notification{
		DeviceID: deviceID,
		Status:   status,
		Changed:  changed,
	}

	for _, sub := range subs {
		sub.enqueue(n)
	}
}

// Stop unsubscribes everything and waits for the workers to drain.
func (d *Dispatcher) Stop() {
	d.mu.Lock()

	var all []*Subscription
	for _, subs := range d.subs {
		all = append(all, subs...)
	}

	d.subs = make(map[string][]*Subscription)

	d.mu.Unlock()

	for _, sub := range all {
		sub.once.Do(func() { close(sub.done) })
	}

	d.wg.Wait()
}

func (d *Dispatcher) run(sub *Subscription) {
	defer d.wg.Done()

	for {
		select {
		case <-sub.done:
			return
		case n := <-sub.queue:
			d.invoke(sub, n)
		}
	}
}

func (d *Dispatcher) invoke(sub *Subscription, n models.Notification) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Subscriber callback for device %s panicked: %v", sub.deviceID, r)
		}
	}()

	sub.callback(n)
}

// enqueue never blocks: when the queue is full the oldest pending
// notification is discarded so the newest state always gets through and a
// newer snapshot is never shadowed by a stale one.
func (sub *Subscription) enqueue(n models.Notification) {
	for {
		select {
		case sub.queue <- n:
			return
		default:
		}

		select {
		case <-sub.queue:
		default:
		}
	}
}
