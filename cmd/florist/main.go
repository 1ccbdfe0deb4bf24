package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Spok95/florist-stock/internal/bot"
	"github.com/Spok95/florist-stock/internal/config"
	"github.com/Spok95/florist-stock/internal/domain/audits"
	"github.com/Spok95/florist-stock/internal/domain/inventory"
	"github.com/Spok95/florist-stock/internal/domain/materials"
	"github.com/Spok95/florist-stock/internal/domain/products"
	"github.com/Spok95/florist-stock/internal/infra/db"
	httpx "github.com/Spok95/florist-stock/internal/infra/http"
	"github.com/Spok95/florist-stock/internal/infra/logger"
	"github.com/Spok95/florist-stock/internal/infra/metrics"
	"github.com/Spok95/florist-stock/internal/infra/notify"
	"github.com/Spok95/florist-stock/internal/storage/memory"
	"github.com/Spok95/florist-stock/internal/stock"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfgPath := flag.String("config", "config/example.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.App.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, closeStore, err := buildStore(ctx, cfg, log)
	if err != nil {
		log.Error("storage init failed", "driver", cfg.Storage.Driver, "err", err)
		os.Exit(1)
	}
	defer closeStore()

	if cfg.Metrics.Enabled {
		deps.Metrics = metrics.New(prometheus.DefaultRegisterer)
	}
	var tg *tgbotapi.BotAPI
	if cfg.Telegram.Token != "" {
		if tg, err = tgbotapi.NewBotAPI(cfg.Telegram.Token); err != nil {
			log.Error("telegram disabled", "err", err)
			tg = nil
		}
	}
	deps.Notifier = buildNotifier(cfg, tg, log)

	policy := stock.Policy{
		AllowNegativeStock:  cfg.Policy.AllowNegativeStock,
		AllowNonPositiveAdd: cfg.Policy.AllowNonPositiveAdd,
	}
	svc := stock.New(deps, policy, log)

	loc, err := time.LoadLocation(cfg.App.Timezone)
	if err != nil {
		log.Warn("unknown timezone, using UTC", "timezone", cfg.App.Timezone, "err", err)
		loc = time.UTC
	}

	if tg != nil && cfg.Telegram.Commands && cfg.Telegram.AdminChatID != 0 {
		b := bot.New(tg, log.With("component", "bot"), svc, cfg.Telegram.AdminChatID)
		go func() {
			if err := b.Run(ctx, cfg.Telegram.PollTimeout); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("telegram bot stopped", "err", err)
			}
		}()
		log.Info("telegram commands enabled", "admin_chat_id", cfg.Telegram.AdminChatID)
	}

	srv := httpx.New(cfg.HTTP.Addr, cfg.Metrics.Enabled, httpx.NewHandler(svc, log, loc), log)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
			stop()
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr, "storage", cfg.Storage.Driver,
		"allow_negative_stock", policy.AllowNegativeStock)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("graceful shutdown complete")
}

func buildStore(ctx context.Context, cfg config.Config, log *slog.Logger) (stock.Deps, func(), error) {
	if cfg.Storage.Driver == config.DriverMemory {
		st := memory.New()
		log.Warn("using in-memory storage, data is lost on restart")
		return stock.Deps{
			Materials: st.Materials(),
			Products:  st.Products(),
			Audits:    st.Audits(),
			Stock:     st,
		}, func() {}, nil
	}

	if err := db.Migrate(cfg.Postgres.DSN); err != nil {
		return stock.Deps{}, nil, err
	}
	log.Info("migrations applied")

	pool, err := db.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		return stock.Deps{}, nil, err
	}
	log.Info("db connected")

	return stock.Deps{
		Materials: materials.NewRepo(pool),
		Products:  products.NewRepo(pool),
		Audits:    audits.NewRepo(pool),
		Stock:     inventory.NewRepo(pool),
	}, pool.Close, nil
}

func buildNotifier(cfg config.Config, tg *tgbotapi.BotAPI, log *slog.Logger) stock.Notifier {
	var out notify.Multi
	if tg != nil && cfg.Telegram.AdminChatID != 0 {
		out = append(out, notify.NewTelegram(tg, cfg.Telegram.AdminChatID))
	}
	if cfg.SendGrid.APIKey != "" {
		sg, err := notify.NewSendGrid(cfg.SendGrid.APIKey, cfg.SendGrid.From, cfg.SendGrid.To)
		if err != nil {
			log.Error("sendgrid notifier disabled", "err", err)
		} else {
			out = append(out, sg)
		}
	}
	if len(out) == 0 {
		return notify.Nop{}
	}
	return out
}
