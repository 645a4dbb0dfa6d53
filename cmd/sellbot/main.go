package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yourneighborhoodchef/sellbot/internal/captcha"
	"github.com/yourneighborhoodchef/sellbot/internal/client"
	"github.com/yourneighborhoodchef/sellbot/internal/config"
	"github.com/yourneighborhoodchef/sellbot/internal/headers"
	"github.com/yourneighborhoodchef/sellbot/internal/logging"
	"github.com/yourneighborhoodchef/sellbot/internal/metrics"
	"github.com/yourneighborhoodchef/sellbot/internal/model"
	"github.com/yourneighborhoodchef/sellbot/internal/monitor"
	"github.com/yourneighborhoodchef/sellbot/internal/notify"
	"github.com/yourneighborhoodchef/sellbot/internal/proxy"
	"github.com/yourneighborhoodchef/sellbot/internal/seen"
	"github.com/yourneighborhoodchef/sellbot/internal/seller"
)

const (
	version = "v1.1"
	seenTTL = 7 * 24 * time.Hour
)

const banner = `
   ____       _ _ _           _
  / ___|  ___| | | |__   ___ | |_
  \___ \ / _ \ | | '_ \ / _ \| __|
   ___) |  __/ | | |_) | (_) | |_
  |____/ \___|_|_|_.__/ \___/ \__|  `

func main() {
	os.Exit(run())
}

func run() int {
	color.New(color.FgCyan, color.Bold).Println(banner + version)
	fmt.Println()

	cfg, err := config.Load(config.DefaultEnvFile)
	if err != nil {
		color.Red("configuration: %v", err)
		return 1
	}

	logger, closer, err := logging.New(logging.Options{Level: cfg.LogLevel, Dir: cfg.LogDir})
	if err != nil {
		color.Red("logging: %v", err)
		return 1
	}
	defer closer.Close()
	log := logging.Component(logger, "main")
	cfg.Log(logging.Component(logger, "config"))

	accounts, err := config.LoadAccounts(cfg.AccountsFile, cfg.PriceDelta)
	if err != nil {
		log.WithError(err).Error("cannot load accounts")
		return 1
	}
	log.Infof("loaded %d accounts from %s", len(accounts), cfg.AccountsFile)

	proxies, err := proxy.Load(cfg.ProxiesFile, logging.Component(logger, "proxy"))
	if err != nil {
		log.WithError(err).Error("cannot load proxies")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// Webhooks and the captcha service are reached directly, not through the pool.
	direct, err := client.New(client.Options{Profile: cfg.ClientProfile, Timeout: cfg.MonitorTimeout})
	if err != nil {
		log.WithError(err).Error("cannot create http client")
		return 1
	}
	defer direct.Close()

	notifier := notify.New(direct, notify.Options{
		Webhooks: notify.Webhooks{
			Success: cfg.WebhookSuccess,
			Refused: cfg.WebhookRefused,
			Monitor: cfg.WebhookMonitor,
		},
	}, m, logging.Component(logger, "notify"))

	var solver captcha.Solver = captcha.Static(cfg.CaptchaToken)
	if cfg.CaptchaServiceURL != "" {
		solver = &captcha.Service{Endpoint: cfg.CaptchaServiceURL, Key: cfg.CaptchaServiceKey, Transport: direct}
	}

	newSeen, closeSeen, err := seenStores(ctx, cfg.RedisAddr, log)
	if err != nil {
		log.WithError(err).Error("cannot connect to redis")
		return 1
	}
	defer closeSeen()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		notifier.Run(gctx)
		return nil
	})
	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			if err := metrics.Serve(gctx, cfg.MetricsAddr, reg, logging.Component(logger, "metrics")); err != nil {
				log.WithError(err).Error("metrics server stopped")
			}
			return nil
		})
	}

	sessions, closeClients, err := newSessions(cfg, accounts, proxies, solver, logger)
	if err != nil {
		log.WithError(err).Error("cannot create seller sessions")
		stop()
		_ = g.Wait()
		return 1
	}
	defer closeClients()

	ready := bootstrap(ctx, sessions, log)
	if len(ready) == 0 {
		log.Error("no seller session could be bootstrapped")
		stop()
		_ = g.Wait()
		return 1
	}
	if ctx.Err() != nil {
		_ = g.Wait()
		return 0
	}

	targets := make([]monitor.Seller, 0, len(ready))
	for _, s := range ready {
		targets = append(targets, s)
	}

	if cfg.Mode.Offers() {
		for _, s := range ready {
			om := monitor.NewOfferMonitor(s, notifier, monitor.OfferOptions{
				Delay:  cfg.MonitorDelay,
				Policy: monitor.OfferPolicy(cfg.OfferPolicy),
				Seen:   newSeen(s.Account().Email),
			}, m, logger)
			g.Go(func() error { return om.Run(gctx) })
		}
	}
	if cfg.Mode.Consigns() {
		for _, cm := range consignMonitors(cfg, targets, notifier, m, logger) {
			cm := cm
			g.Go(func() error { return cm.Run(gctx) })
		}
	}
	log.WithFields(logrus.Fields{"mode": cfg.Mode, "sessions": len(ready)}).Info("monitors started")

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("stopped with error")
		return 1
	}
	log.Info("shutdown complete")
	return 0
}

// consignMonitors builds the consign loops. With CONSIGN_SCOPE=all one loop
// polls the shared slot catalog through the first session and places for every
// session; otherwise each session watches and places for itself.
func consignMonitors(cfg *config.Config, sessions []monitor.Seller, notifier monitor.Notifier, m *metrics.Metrics, logger *logrus.Logger) []*monitor.ConsignMonitor {
	if len(sessions) == 0 {
		return nil
	}

	build := func(s monitor.Seller, targets []monitor.Seller) *monitor.ConsignMonitor {
		email := s.Account().Email
		handler := monitor.NotifyOnly(email, notifier)
		if cfg.ConsignAction == "place" {
			placer := monitor.NewPlacer(targets, notifier, monitor.PlacerOptions{
				DeleteAttempts: cfg.DeleteAttempts,
				DeleteDelay:    cfg.MonitorDelay,
			}, m, logger)
			handler = monitor.NotifyAndPlace(email, notifier, placer)
		}
		return monitor.NewConsignMonitor(s, handler, monitor.ConsignOptions{Delay: cfg.MonitorDelay}, m, logger)
	}

	if cfg.ConsignScope == "all" {
		return []*monitor.ConsignMonitor{build(sessions[0], sessions)}
	}
	out := make([]*monitor.ConsignMonitor, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, build(s, []monitor.Seller{s}))
	}
	return out
}

// seenStores returns a per-account offer seen store factory: Redis backed when
// addr is set, in memory otherwise.
func seenStores(ctx context.Context, addr string, log *logrus.Entry) (func(account string) seen.Store, func(), error) {
	if addr == "" {
		return func(string) seen.Store { return seen.NewMemory() }, func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}
	log.Infof("offer seen store on redis %s", addr)

	stores := func(account string) seen.Store {
		return seen.NewRedis(rdb, account, seenTTL)
	}
	return stores, func() { _ = rdb.Close() }, nil
}

func newSessions(cfg *config.Config, accounts []model.Account, proxies *proxy.Pool, solver captcha.Solver, logger *logrus.Logger) ([]*seller.Session, func(), error) {
	endpoints := seller.DefaultEndpoints()
	major := headers.ChromeMajor(cfg.ClientProfile)

	var clients []*client.Client
	closeAll := func() {
		for _, c := range clients {
			c.Close()
		}
	}

	sessions := make([]*seller.Session, 0, len(accounts))
	for _, acc := range accounts {
		c, err := client.New(client.Options{
			Profile:     cfg.ClientProfile,
			Timeout:     cfg.MonitorTimeout,
			Proxies:     proxies,
			Header:      headers.NewProfile(major).Build(endpoints.Site),
			RequestRate: cfg.RequestRate,
		})
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		clients = append(clients, c)

		sessions = append(sessions, seller.New(acc, c, solver, seller.Options{
			Endpoints: endpoints,
			Attempts:  cfg.BootstrapAttempts,
			Delay:     cfg.MonitorDelay,
		}, logging.Component(logger, "seller")))
	}
	return sessions, closeAll, nil
}

// bootstrap logs every account in concurrently and returns the sessions that
// made it, in account order.
func bootstrap(ctx context.Context, sessions []*seller.Session, log *logrus.Entry) []*seller.Session {
	ok := make([]bool, len(sessions))
	var mu sync.Mutex
	failed := 0

	var g errgroup.Group
	for i, s := range sessions {
		i, s := i, s
		g.Go(func() error {
			if err := s.Bootstrap(ctx); err != nil {
				log.WithError(err).WithField("account", s.Account().Email).Error("bootstrap failed, account disabled")
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			ok[i] = true
			return nil
		})
	}
	_ = g.Wait()

	ready := make([]*seller.Session, 0, len(sessions))
	for i, s := range sessions {
		if ok[i] {
			ready = append(ready, s)
		}
	}
	if failed > 0 {
		log.Warnf("%d of %d accounts failed to bootstrap", failed, len(sessions))
	}
	return ready
}
