package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"insightmarket/payments-service/internal/catalog"
	"insightmarket/payments-service/internal/config"
	"insightmarket/payments-service/internal/gateway"
	"insightmarket/payments-service/internal/httpapi"
	"insightmarket/payments-service/internal/order"
	"insightmarket/payments-service/internal/storage"
	"insightmarket/payments-service/internal/websocket"
	"insightmarket/payments-service/pkg/messaging"
	"insightmarket/payments-service/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

type App struct {
	cfg       config.Config
	logger    *slog.Logger
	store     *storage.Store
	wsHub     *websocket.Hub
	publisher messaging.Publisher
	outbox    *messaging.OutboxDispatcher
	httpSrv   *http.Server
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	store, err := storage.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	paymentMetrics := metrics.NewPaymentMetrics(registry)

	repo := storage.NewOrderRepository(store.Pool())
	solutions := catalog.NewStore(store.Pool())
	portone := gateway.NewClient(cfg.GatewayBaseURL, cfg.GatewaySecret, cfg.GatewayTimeout)

	wsHub := websocket.NewHub()

	prepSvc := order.NewPreparationService(repo, solutions, paymentMetrics, logger)
	verifSvc := order.NewVerificationService(repo, portone, wsHub, paymentMetrics, logger)
	histSvc := order.NewHistoryService(repo, logger)

	publisher, err := messaging.NewRabbitPublisher(cfg.RabbitURL, cfg.OrdersExchange)
	if err != nil {
		store.Close()
		return nil, err
	}

	api := httpapi.NewServer(prepSvc, verifSvc, histSvc, logger)
	wsHandler := websocket.NewHandler(wsHub, repo)
	api.HandleFunc("GET /api/payment/orders/{orderID}/ws", wsHandler.ServeWS)
	api.Handle("GET /metrics", metrics.Handler(registry))

	httpSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: api,
	}

	outbox := messaging.NewOutboxDispatcher(store.Pool(), publisher, "order_outbox", cfg.OutboxInterval, cfg.OutboxBatchSize, logger)

	return &App{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		wsHub:     wsHub,
		publisher: publisher,
		outbox:    outbox,
		httpSrv:   httpSrv,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)

	a.outbox.Start(ctx)

	go a.wsHub.Run(ctx)

	go func() {
		a.logger.Info("payments http server listening", "addr", a.cfg.HTTPAddr)
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func (a *App) Close(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.ShutdownGracePeriod)
	defer cancel()
	_ = a.httpSrv.Shutdown(shutdownCtx)
	a.publisher.Close()
	a.store.Close()
}

func Run() error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer app.Close(ctx)

	return app.Run(ctx)
}
