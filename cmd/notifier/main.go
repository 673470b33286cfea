package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"github.com/joao-fontenele/orderflow-sms/internal/domain"
	"github.com/joao-fontenele/orderflow-sms/internal/firstorder"
	"github.com/joao-fontenele/orderflow-sms/internal/messaging"
	"github.com/joao-fontenele/orderflow-sms/internal/notify"
	"github.com/joao-fontenele/orderflow-sms/internal/orders"
	"github.com/joao-fontenele/orderflow-sms/internal/render"
	"github.com/joao-fontenele/orderflow-sms/internal/sentmarker"
	"github.com/joao-fontenele/orderflow-sms/internal/settings"
	"github.com/joao-fontenele/orderflow-sms/internal/sms"
	"github.com/joao-fontenele/orderflow-sms/internal/telemetry"
)

const consumerGroup = "sms-notifier"

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(logger); err != nil {
		logger.Error("notifier stopped", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "notifier", "0.1.0")
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("notifier", "0.1.0")
	if err != nil {
		return err
	}
	defer func() { _ = shutdownMeter(context.Background()) }()

	postgresURL, err := requireEnv("POSTGRES_URL")
	if err != nil {
		return err
	}
	kafkaBrokers, err := requireEnv("KAFKA_BROKERS")
	if err != nil {
		return err
	}
	ordersServiceURL, err := requireEnv("ORDERS_SERVICE_URL")
	if err != nil {
		return err
	}

	renderer, err := newRenderer()
	if err != nil {
		return err
	}

	db, err := telemetry.OpenDB(postgresURL, "notifier")
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		return err
	}

	httpClient := telemetry.NewHTTPClient(10 * time.Second)

	ordersClient := orders.NewClient(ordersServiceURL, httpClient)
	settingsRepo := settings.NewRepository(db)

	smsClient, err := sms.NewClient(os.Getenv("SMS_GATEWAY_URL"), httpClient, logger)
	if err != nil {
		return err
	}

	notifier, err := notify.NewNotifier(notify.Deps{
		Orders:     ordersClient,
		FirstOrder: firstorder.NewDetector(ordersClient),
		Settings:   settingsRepo,
		Marker:     sentmarker.NewRepository(db),
		Dispatcher: smsClient,
		Renderer:   renderer,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	brokers := strings.Split(kafkaBrokers, ",")
	confirmed := messaging.NewConsumer(brokers, domain.TopicOrderConfirmed, consumerGroup, logger)
	defer func() { _ = confirmed.Close() }()
	statusChanged := messaging.NewConsumer(brokers, domain.TopicOrderStatusChanged, consumerGroup, logger)
	defer func() { _ = statusChanged.Close() }()

	events := notify.NewEventHandler(notifier, logger)
	settingsHandler := settings.NewHandler(settingsRepo, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /settings", telemetry.WithHTTPRoute(settingsHandler.HandleGet))
	mux.HandleFunc("PUT /settings", telemetry.WithHTTPRoute(settingsHandler.HandleUpdate))
	mux.Handle("GET /metrics", metricsHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8082"
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      telemetry.NewHTTPHandler(mux, "notifier"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting notifier", "port", port, "brokers", brokers)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return events.Run(ctx, confirmed, statusChanged)
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newRenderer() (*render.Renderer, error) {
	opts := []render.Option{
		render.WithDateLayout(os.Getenv("DATE_LAYOUT")),
	}

	if pattern := os.Getenv("PRICE_FORMAT"); pattern != "" {
		opts = append(opts, render.WithPriceFormatter(render.NewCurrencyFormatter(pattern, 2)))
	}

	if tz := os.Getenv("TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, err
		}
		opts = append(opts, render.WithLocation(loc))
	}

	return render.NewRenderer(opts...), nil
}

func requireEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", errors.New(key + " environment variable is required")
	}
	return value, nil
}
