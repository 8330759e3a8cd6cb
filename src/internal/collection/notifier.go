package collection

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rjeczalik/notify"
	"gitlab.com/smeitner/collserv/src/internal/config"
)

// notifier implements the updater interface to enable collection updates
// based on file system changes detected by inotify
type notifier struct {
	changes    []notify.EventInfo
	mutChanges sync.Mutex
	errs       chan error
	updNotif   chan UpdateNotification
	upd        chan struct{}
	scan       func(context.Context) (int, error)
}

// newNotifier creates a new instance of notifier
func newNotifier(scan func(context.Context) (int, error)) *notifier {
	nf := new(notifier)

	nf.errs = make(chan error)
	nf.updNotif = make(chan UpdateNotification)
	nf.upd = make(chan struct{})
	nf.scan = scan

	return nf
}

// run implements the main control loop that listens to events from inotify
// and that regularly triggers a corresponding scan
func (me *notifier) run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	log.Trace("running notifier ...")

	// extract config from context
	cfg := ctx.Value(config.KeyCfg).(config.Cfg)

	// add watcher for inotify events for the music root. Changes can be
	// received via channel chgs.
	chgs := make(chan notify.EventInfo, 1)
	if err := notify.Watch(filepath.Join(cfg.MusicRoot, "..."), chgs, notify.All); err != nil {
		err = errors.Wrapf(err, "cannot add inotify watcher for '%s'", cfg.MusicRoot)
		me.errs <- err
	}

	// main control loop
	var wg0 sync.WaitGroup
	ticker := time.NewTicker(cfg.UpdateInterval * time.Second)

	// semaphore to ensure that only one scan run is done at any time
	sema := make(chan struct{}, 1)

	defer func() {
		notify.Stop(chgs)
		close(chgs)
		ticker.Stop()
		close(me.errs)
		close(me.updNotif)
		close(me.upd)
		close(sema)
		log.Trace("notifier stopped")
	}()

	for {
		select {
		case chg := <-chgs:
			// receive inotify events
			me.mutChanges.Lock()
			me.changes = append(me.changes, chg)
			me.mutChanges.Unlock()

		case <-ticker.C:
			// periodic update trigger
			wg0.Add(1)
			go func() {
				sema <- struct{}{}
				defer func() {
					<-sema
					wg0.Done()
				}()

				me.processChanges(ctx)
			}()

		case <-ctx.Done():
			// stop main control loop after the last changes are processed
			wg0.Wait()
			return
		}
	}
}

// errors returns a receive-only channel for errors from notifier
func (me *notifier) errors() <-chan error {
	return me.errs
}

// updateNotification returns a receive-only channel to notify about updates
func (me *notifier) updateNotification() <-chan UpdateNotification {
	return me.updNotif
}

// processChanges checks if the file system changed since the last run and
// triggers a scan if it did. The sidecar and index files the scan itself
// writes are filtered out so that a scan does not trigger the next one.
func (me *notifier) processChanges(ctx context.Context) {
	log.Trace("processing file system notifications ...")

	// check if there are relevant changes at all. If yes, drop the batch: the
	// scan rereads the whole tree anyway, only the fact that something changed
	// matters.
	relevant := false
	me.mutChanges.Lock()
	for _, chg := range me.changes {
		if !isHidden(filepath.Base(chg.Path())) {
			relevant = true
			break
		}
	}
	me.changes = nil
	me.mutChanges.Unlock()
	if !relevant {
		log.Trace("no changes to process")
		return
	}
	log.Trace("changes occurred: processing ...")

	// channel to notify the server about the finalized update
	updated := make(chan int)
	// close channel after the update is done (this implicitly notifies the
	// server that the update is done)
	defer close(updated)

	// notify server before the scan is executed
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

	log.Trace("file system notifications processed")
}
