package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"skywatch/config"
	eventRepo "skywatch/database/repository/event"
	"skywatch/models"
	"skywatch/services/notification"
	"skywatch/services/tasks"
	"skywatch/utils"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
)

// InitAlertWorker runs the alert dispatch worker in background.
func InitAlertWorker(events eventRepo.EventRepository, notifier notification.AlertNotifier) {
	srv := asynq.NewServer(
		utils.QueueRedisOpt(),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeAlertDispatch, handleAlertDispatch(events, notifier))

	// Start Redis health monitor
	go monitorRedisConnection()

	// Start async worker with retry logic
	go func() {
		log.Println("[AlertWorker] 🚀 Starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[AlertWorker] ❌ Attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[AlertWorker] ❗ Max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()
}

func handleAlertDispatch(events eventRepo.EventRepository, notifier notification.AlertNotifier) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.AlertDispatchPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[AlertDispatch] 🔴 Invalid payload: %v", err)
			return err
		}

		alert, err := events.GetAlertByID(p.AlertID)
		if err != nil {
			log.Printf("[AlertDispatch] ❌ Could not load alert %s: %v", p.AlertID, err)
			return err
		}

		// Retries re-enter here; anything past PENDING was already handled.
		if alert.Status != models.AlertPending {
			log.Printf("[AlertDispatch] ℹ️ Alert %s already %s, skipping", alert.ID, alert.Status)
			return nil
		}
		if alert.ExpiresAt != nil && time.Now().UTC().After(*alert.ExpiresAt) {
			log.Printf("[AlertDispatch] ⚠️ Alert %s expired before dispatch", alert.ID)
			return events.UpdateAlertStatus(alert.ID, models.AlertFailed)
		}

		if err := notifier.DeliverAlert(ctx, alert); err != nil {
			log.Printf("[AlertDispatch] ❌ Delivery failed for alert %s: %v", alert.ID, err)
			return err
		}

		if err := events.UpdateAlertStatus(alert.ID, models.AlertSent); err != nil {
			log.Printf("[AlertDispatch] ⚠️ Alert %s delivered but not marked sent: %v", alert.ID, err)
			return err
		}

		log.Printf("[AlertDispatch] ✅ Alert %s delivered (severity=%s, urgency=%d)", alert.ID, alert.Severity, alert.Urgency)
		return nil
	}
}

// monitorRedisConnection pings Redis periodically to detect failures at runtime.
func monitorRedisConnection() {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})

	ctx := context.Background()

	for {
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("[AlertWorker] ⚠️ Redis connection lost: %v", err)
		}
		time.Sleep(10 * time.Second)
	}
}
