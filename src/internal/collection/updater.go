package collection

import (
	"context"
	"sync"
	"time"

	"gitlab.com/smeitner/collserv/src/internal/config"
)

// UpdateNotification is used to inform the caller about updates. It contains a
// function to execute the update and a channel to inform the caller that the
// update was done
type UpdateNotification struct {
	// Update triggers the update
	Update func()
	// Updated provides the info that the update was done and how many bands
	// were added, changed or removed
	Updated chan int
}

// updater is the interface that must be implemented by background updaters
type updater interface {
	// run updater
	run(context.Context, *sync.WaitGroup)

	// communicate errors
	errors() <-chan error

	// inform caller about updates and provide a channel to communicate that
	// the update was done
	updateNotification() <-chan UpdateNotification
}

// updaters maps the update mode to its implementations
var updaters = map[string](func(func(context.Context) (int, error)) updater){
	config.UpdModeNotify: func(scan func(context.Context) (int, error)) updater {
		return newNotifier(scan)
	},
	config.UpdModeScan: func(scan func(context.Context) (int, error)) updater {
		return newRescanner(scan)
	},
}

// newUpdater creates an updater instance based on the update mode
func newUpdater(updMode string, scan func(context.Context) (int, error)) updater {
	upd, ok := updaters[updMode]
	if ok {
		return upd(scan)
	}
	return nil
}

// rescanner implements the updater interface by rescanning the music root in
// regular intervals
type rescanner struct {
	updNotif chan UpdateNotification
	upd      chan struct{}
	errs     chan error
	scan     func(context.Context) (int, error)
}

// newRescanner creates a new rescanner instance
func newRescanner(scan func(context.Context) (int, error)) *rescanner {
	sc := new(rescanner)

	sc.errs = make(chan error)
	sc.updNotif = make(chan UpdateNotification)
	sc.upd = make(chan struct{})
	sc.scan = scan

	return sc
}

// run implements the regular scanning loop
func (me *rescanner) run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	log.Trace("running rescanner ...")

	// extract config from context
	cfg := ctx.Value(config.KeyCfg).(config.Cfg)

	var wg0 sync.WaitGroup
	ticker := time.NewTicker(cfg.UpdateInterval * time.Second)

	// semaphore to ensure that only one scan run is done at any time
	sema := make(chan struct{}, 1)

	defer func() {
		ticker.Stop()
		close(me.errs)
		close(me.updNotif)
		close(me.upd)
		close(sema)
		log.Trace("rescanner stopped")
	}()

	for {
		select {
		// periodic update trigger
		case <-ticker.C:
			wg0.Add(1)
			go func() {
				sema <- struct{}{}
				defer func() {
					<-sema
					wg0.Done()
				}()

				me.execute(ctx)
			}()

		// cancelation from server
		case <-ctx.Done():
			// wait until all changes are processed
			wg0.Wait()
			return
		}
	}
}

// execute asks the server for permission, runs the scan and reports the number
// of touched bands back
func (me *rescanner) execute(ctx context.Context) {
	// channel to notify the server about the finalized update
	updated := make(chan int)
	// close channel after the update is done (this implicitly notifies the
	// server that the update is done)
	defer close(updated)

	// notify server that an update is required and wait for approval before
	// the scan is executed
	me.updNotif <- UpdateNotification{
		Update:  func() { me.upd <- struct{}{} },
		Updated: updated,
	}
	<-me.upd

	count, err := me.scan(ctx)
	if err != nil {
		me.errs <- err
		return
	}
	updated <- count
}

// errors returns a receive-only channel for errors from rescanner
func (me *rescanner) errors() <-chan error {
	return me.errs
}

// updateNotification returns a receive-only channel to notify about updates
func (me *rescanner) updateNotification() <-chan UpdateNotification {
	return me.updNotif
}
