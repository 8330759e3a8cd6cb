package server

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/pkg/errors"
	l "github.com/sirupsen/logrus"
	"gitlab.com/smeitner/collserv/src/internal/collection"
	"gitlab.com/smeitner/collserv/src/internal/config"
	"gitlab.com/smeitner/collserv/src/internal/mcp"
)

var log *l.Entry = l.WithFields(l.Fields{"srv": "server"})

// Run implements the main control loop of the server. It scans the collection
// initially, serves the tool interface on stdio and keeps the collection in
// sync with the file system in the background. version is the collserv
// version which is used to build the server info string.
func Run(version string) (err error) {
	// read and validate collserv configuration
	var cfg config.Cfg
	if cfg, err = config.Load(); err != nil {
		err = errors.Wrap(err, "cannot run collserv")
		return
	}
	if err = cfg.Validate(); err != nil {
		err = errors.Wrap(err, "cannot run collserv")
		return
	}

	// set up logging: no log entries possible before this statement!
	if err = setupLogging(cfg.LogDir, cfg.LogLevel); err != nil {
		err = errors.Wrap(err, "cannot run collserv")
		return
	}

	log.Trace("running ...")

	// create root context
	ctx := context.WithValue(context.Background(), config.KeyCfg, cfg)
	ctx = context.WithValue(ctx, config.KeyVersion, version)

	// initialize server attributes (create the collection and the tool
	// adapter). This must be done before the main control loop is started.
	coll, err := collection.New(cfg)
	if err != nil {
		err = errors.Wrap(err, "cannot run collserv")
		return
	}
	adapter := mcp.New(coll, version)

	// create context with cancel
	ctx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup

	// scan the collection initially so that the first request already sees a
	// consistent snapshot
	if _, err = coll.Scan(ctx); err != nil {
		err = errors.Wrap(err, "cannot run collserv")
		cancel()
		return
	}

	// preparation to receive OS signals (e.g. from 'systemctl stop ...'). This
	// must be done before the main control loop is started.
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	// start background collection update
	wg.Add(1)
	go coll.Run(ctx, &wg)

	// serve the tool interface on stdio
	wg.Add(1)
	go adapter.Run(ctx, &wg)

	// main control loop
	wg.Add(1)
	go func(wg *sync.WaitGroup) {
		defer wg.Done()

		for {
			select {
			case sig := <-interrupt:
				// termination signal from OS received: stop processing
				log.Tracef("signal received: %v", sig)
				log.Trace("stopping ...")
				cancel()
				log.Trace("stopped")
				return

			case update := <-coll.UpdateNotification():
				log.Trace("received update notification: executing update ...")
				// execute update and receive the number of touched bands
				update.Update()
				count := <-update.Updated
				if count > 0 {
					log.Infof("collection updated: %d bands touched", count)
				}

			case err := <-adapter.Errors():
				// error received from the tool adapter: stop processing
				log.Tracef("adapter error received: %v", err)
				log.Trace("stopping ...")
				cancel()
				log.Trace("stopped")
				return

			case err := <-coll.Errors():
				// error received from updater: stop processing
				log.Tracef("updater error received: %v", err)
				log.Trace("stopping ...")
				cancel()
				log.Trace("stopped")
				return
			}
		}
	}(&wg)

	wg.Wait()

	return
}
