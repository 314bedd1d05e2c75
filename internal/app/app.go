// Package app wires the daemon: config, logging, transport, lookup backend,
// tracked-item store, dispatch loop, re-check scheduler and liveness server,
// all supervised under one context.
package app

import (
	"context"
	"strings"
	"time"

	"pricewatch/internal/config"
	"pricewatch/internal/eventbus"
	"pricewatch/internal/health"
	"pricewatch/internal/lookup"
	"pricewatch/internal/notifier"
	"pricewatch/internal/recheck"
	"pricewatch/internal/runtime/supervisor"
	"pricewatch/internal/store"
	kit "pricewatch/internal/transport"
	"pricewatch/internal/transport/telegram"
	"pricewatch/internal/watcher"
	"pricewatch/pkg/logx"
)

type App struct {
	cfgPath string

	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	store     *store.Store
	transport kit.Transport // nil when the chat capability is disabled
	lookup    lookup.Client

	notif   *notifier.Service
	watch   *watcher.Service
	recheck *recheck.Service
	health  *health.Service
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLogConfig(cfg))
	log = log.With(logx.String("comp", "app"))

	if err := validateConfig(context.Background(), cfg); err != nil {
		return nil, err
	}

	bus := eventbus.New()
	st := store.New()

	lkOpts, err := mapLookupOptions(cfg)
	if err != nil {
		return nil, err
	}
	lk, err := lookup.New(lkOpts, logSvc.Logger().With(logx.String("comp", "lookup")))
	if err != nil {
		return nil, err
	}

	a := &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		bus:     bus,
		store:   st,
		lookup:  lk,
	}

	// A missing token disables the chat capability, not the process: the
	// liveness endpoint keeps answering so the deployment stays observable.
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		log.Warn("chat capability disabled", logx.String("reason", config.EnvTelegramToken+" not set"))
	} else {
		tg, err := telegram.New(telegram.Config{Token: cfg.Telegram.Token},
			logSvc.Logger().With(logx.String("comp", "telegram")))
		if err != nil {
			return nil, err
		}
		a.transport = tg

		a.notif = notifier.New(mapNotifierConfig(cfg), tg,
			logSvc.Logger().With(logx.String("comp", "notifier")), bus)

		wcfg, err := mapWatcherConfig(cfg)
		if err != nil {
			return nil, err
		}
		a.watch = watcher.New(wcfg, tg, lk, st, a.notif,
			logSvc.Logger().With(logx.String("comp", "watcher")), bus)

		rcfg, err := mapRecheckConfig(cfg)
		if err != nil {
			return nil, err
		}
		a.recheck = recheck.New(rcfg, lk, st, a.notif,
			logSvc.Logger().With(logx.String("comp", "recheck")), bus)
	}

	a.health = health.New(mapHealthConfig(cfg), st,
		logSvc.Logger().With(logx.String("comp", "health")), bus)

	return a, nil
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log))

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(validateConfig)

	if a.watch != nil {
		a.sup.GoRestart("watcher.dispatch", a.watch.Run)
	}
	if a.recheck != nil && a.recheck.Enabled() {
		a.recheck.Start(a.sup.Context())
	}
	if a.health.Enabled() {
		a.sup.GoRestart("health.server", a.health.Run)
	}

	a.sup.Go("config.watch", a.cfgm.Watch)

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config.
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						goto APPLY
					}
				}
			APPLY:
				a.applyConfig(newCfg)
			}
		}
	})

	a.log.Info("app started")
	return nil
}

func (a *App) applyConfig(cfg *config.Config) {
	a.logs.Apply(mapLogConfig(cfg))

	if a.notif != nil {
		a.notif.Apply(mapNotifierConfig(cfg))
	}
	if a.recheck != nil {
		// Validated before publish, so the mapping cannot fail here.
		if rcfg, err := mapRecheckConfig(cfg); err == nil {
			a.recheck.Apply(rcfg)
		}
	}
	a.log.Info("config reloaded")
}

func (a *App) Stop(ctx context.Context) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping")

	// Cancel first so the long poll and cron loops start unwinding, then
	// give everything a bounded window to finish.
	a.sup.Cancel()

	if a.recheck != nil {
		sctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		a.recheck.Stop(sctx)
		cancel()
	}

	err := a.sup.Wait(ctx)
	_ = a.logs.Close()
	a.log.Info("stopped")
	return err
}
