// Command julea-server runs one julea object and/or KV server process
// (§4.8, §6). It is deliberately minimal: flags pick a backend and an
// address, ConfigFromEnv supplies the remaining sizing knobs, and a
// management CLI (bucket/object listing, cluster admin) is out of scope
// per §1 — that belongs in a separate client-side tool, not this daemon.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/julea-project/julea/backend"
	_ "github.com/julea-project/julea/backend/kvbunt"
	_ "github.com/julea-project/julea/backend/posix"
	"github.com/julea-project/julea/cmn"
	"github.com/julea-project/julea/cmn/nlog"
	"github.com/julea-project/julea/server"
)

func main() {
	var (
		addr       = flag.String("addr", ":8410", "listen address")
		objectName = flag.String("object-backend", "", "object backend name (e.g. posix), empty to disable")
		objectPath = flag.String("object-path", "", "object backend storage path")
		kvName     = flag.String("kv-backend", "", "kv backend name (e.g. kvbunt), empty to disable")
		kvPath     = flag.String("kv-path", "", "kv backend storage path")
		logLevel   = flag.String("log-level", "info", "log level (debug, info, warn, error)")
		logJSON    = flag.Bool("log-json", false, "emit logs as JSON")
	)
	flag.Parse()

	nlog.Init(nlog.Config{Level: *logLevel, JSONOutput: *logJSON})
	log := nlog.WithComponent("julea-server")

	if *objectName == "" && *kvName == "" {
		log.Error().Msg("at least one of -object-backend or -kv-backend is required")
		os.Exit(2)
	}

	cfg := cmn.ConfigFromEnv()

	var objectBackend backend.Object
	if *objectName != "" {
		var err error
		objectBackend, err = backend.NewObject(*objectName, *objectPath)
		if err != nil {
			log.Error().Err(err).Str("backend", *objectName).Msg("object backend init failed")
			os.Exit(1)
		}
		defer objectBackend.Fini()
	}

	var kvBackend backend.KV
	if *kvName != "" {
		var err error
		kvBackend, err = backend.NewKV(*kvName, *kvPath)
		if err != nil {
			log.Error().Err(err).Str("backend", *kvName).Msg("kv backend init failed")
			os.Exit(1)
		}
		defer kvBackend.Fini()
	}

	srv := server.New(objectBackend, kvBackend, cfg.StripeSize)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(*addr); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info().Msg("shutting down")
	case err := <-errCh:
		log.Error().Err(err).Msg("serve failed")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	srv.Shutdown()
}
