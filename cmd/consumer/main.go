package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/example/airport-shuttle/internal/config"
	"github.com/example/airport-shuttle/internal/events"
	"github.com/example/airport-shuttle/internal/inbox"
	"github.com/example/airport-shuttle/internal/logging"
	"github.com/example/airport-shuttle/internal/models"
)

var (
	msgsConsumed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_messages_consumed_total",
		Help: "Total trip event messages consumed",
	})
	msgsInvalid = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_messages_invalid_total",
		Help: "Total invalid messages received",
	})
	inboxWrites = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_inbox_writes_total",
		Help: "Total notifications stored in an inbox",
	})
	inboxErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_inbox_errors_total",
		Help: "Total inbox write failures after retries",
	})
)

func init() {
	prometheus.MustRegister(msgsConsumed, msgsInvalid, inboxWrites, inboxErrors)
}

func main() {
	cfg, err := config.LoadConsumerConfig()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	logger := logging.NewLogger("shuttle-consumer", cfg.LogLevel)

	rc := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	box := inbox.NewRedisInbox(rc, cfg.InboxCapacity, cfg.InboxTTL)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
		mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			if err := rc.Ping(r.Context()).Err(); err != nil {
				http.Error(w, "redis not ready", 503)
				return
			}
			w.WriteHeader(200)
			w.Write([]byte("ready"))
		})
		logger.Info("metrics/health listening", "addr", cfg.MetricsAddr)
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
			logger.Warn("metrics server stopped", "err", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := kafka.NewReader(kafka.ReaderConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic, GroupID: cfg.KafkaGroup, MinBytes: 1, MaxBytes: 10e6})
	defer func() {
		_ = r.Close()
		_ = rc.Close()
	}()

	logger.Info("consumer listening", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers, "group", cfg.KafkaGroup)
	consume(ctx, r, box, logger)
	logger.Info("shutting down consumer")
}

// MessageReader is the part of *kafka.Reader the loop needs.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// InboxPusher is the write side of an inbox.
type InboxPusher interface {
	Push(ctx context.Context, n models.Notification) error
}

// consume runs until ctx is cancelled. Undecodable messages are skipped, and
// a notification that cannot be stored after retries is dropped.
func consume(ctx context.Context, r MessageReader, box InboxPusher, logger *slog.Logger) {
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("kafka read error", "err", err, "backoff", backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = time.Second
		msgsConsumed.Inc()

		ev, err := events.Decode(m.Value)
		if err != nil {
			msgsInvalid.Inc()
			logger.Warn("invalid message", "err", err, "offset", m.Offset)
			continue
		}
		if err := pushWithRetry(ctx, box, ev.Notification, 3, 200*time.Millisecond); err != nil {
			inboxErrors.Inc()
			logger.Error("inbox write failed", "user_id", ev.Notification.UserID, "event_id", ev.ID, "err", err)
			continue
		}
		inboxWrites.Inc()
	}
}

// pushWithRetry stores n, doubling the delay between attempts.
func pushWithRetry(ctx context.Context, box InboxPusher, n models.Notification, attempts int, delay time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = box.Push(ctx, n); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
