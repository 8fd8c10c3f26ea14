// cmd/matchcore/app.go
// Bootstraps every component from configuration

package main

import (
	"context"
	"fmt"
	"log"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"

	"github.com/imadgeboyega/kiekky-matchcore/internal/common/clock"
	"github.com/imadgeboyega/kiekky-matchcore/internal/common/database"
	"github.com/imadgeboyega/kiekky-matchcore/internal/config"
	"github.com/imadgeboyega/kiekky-matchcore/internal/ghosting"
	"github.com/imadgeboyega/kiekky-matchcore/internal/matchwindow"
	"github.com/imadgeboyega/kiekky-matchcore/internal/messaging"
	"github.com/imadgeboyega/kiekky-matchcore/internal/notification"
	"github.com/imadgeboyega/kiekky-matchcore/internal/reputation"
	"github.com/imadgeboyega/kiekky-matchcore/internal/scheduler"
)

// Scheduled job names
const (
	jobExpireWindows = "expire-windows"
	jobReminders     = "expiry-reminders"
	jobGhosting      = "detect-ghosting"
)

// candidateLimit caps how many hotpicks are read per user
const candidateLimit = 50

type app struct {
	cfg   *config.Config
	db    *sqlx.DB
	redis *redis.Client

	hub        *notification.Hub
	dispatcher *notification.Dispatcher

	ledger    reputation.Ledger
	messages  *messaging.MessageService
	windows   matchwindow.Service
	sweeper   *matchwindow.Sweeper
	detector  *ghosting.Detector
	scheduler *scheduler.Scheduler
}

func bootstrap(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	// 1. PostgreSQL
	log.Println("🗄️  Connecting to PostgreSQL...")
	db, err := database.NewPostgresDBFromURL(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a.db = db
	log.Println("✅ Connected to PostgreSQL successfully")

	// 2. Redis (only needed by the redis flag cache)
	if cfg.FlagCacheBackend == "redis" {
		log.Println("📮 Connecting to Redis...")
		client, err := database.NewRedisClientFromURL(ctx, cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️  Redis unavailable (%v), falling back to the in-memory flag cache", err)
		} else {
			a.redis = client
			log.Println("✅ Connected to Redis successfully")
		}
	}

	// 3. Notifications
	log.Println("🔔 Initializing notification channels...")
	channels, err := a.buildChannels(ctx)
	if err != nil {
		a.close()
		return nil, err
	}
	a.dispatcher = notification.NewDispatcher(cfg.NotificationTimeout, channels...)
	log.Printf("✅ Notifications ready (%d channels)", len(channels))

	clk := clock.NewReal()

	// 4. Reputation
	a.ledger = reputation.NewLedger(
		reputation.NewPostgresRepository(db),
		reputation.NewPostgresAccountDirectory(db),
		clk,
		reputation.Config{
			DecayWindow:  cfg.DecayWindow,
			DecayRate:    cfg.DecayRate,
			DefaultScore: cfg.DefaultScore,
		},
	)
	log.Println("✅ Reputation ledger initialized")

	// 5. Messaging
	a.messages = messaging.NewService(messaging.NewPostgresRepository(db))

	// 6. Match windows
	deps := matchwindow.Dependencies{
		Repo:          matchwindow.NewPostgresRepository(db),
		Clock:         clk,
		Notifier:      a.dispatcher,
		Reputation:    a.ledger,
		Conversations: a.messages,
		Candidates:    matchwindow.NewHotpicksCandidateSource(db, candidateLimit),
		Donations:     matchwindow.NewDonationNotifier(a.dispatcher),
	}
	windowCfg := matchwindow.DefaultConfig()
	windowCfg.WindowDuration = cfg.WindowDuration
	windowCfg.ExtensionDuration = cfg.ExtensionDuration
	windowCfg.ReminderLead = cfg.ReminderLead

	a.windows = matchwindow.NewService(deps, windowCfg)
	a.sweeper = matchwindow.NewSweeper(deps, windowCfg)
	log.Println("✅ Match windows initialized")

	// 7. Ghosting detection
	var flags ghosting.FlagCache
	if a.redis != nil {
		flags = ghosting.NewRedisFlagCache(a.redis, cfg.FlagCacheTTL)
		log.Println("   ✅ Using Redis for ghosting flags")
	} else {
		flags = ghosting.NewMemoryFlagCache(cfg.FlagCacheMaxEntries)
		log.Println("   📝 Using in-memory ghosting flags")
	}
	a.detector = ghosting.NewDetector(a.messages, flags, a.ledger, clk, ghosting.Config{
		Silence:     cfg.GhostingSilence,
		MinMessages: cfg.GhostingMinMessages,
	})
	log.Println("✅ Ghosting detector initialized")

	// 8. Scheduled jobs
	a.scheduler = scheduler.New(cfg.JobTimeout)
	if err := a.registerJobs(); err != nil {
		a.close()
		return nil, err
	}
	log.Printf("✅ Scheduler ready with jobs %v", a.scheduler.Jobs())

	return a, nil
}

func (a *app) buildChannels(ctx context.Context) ([]notification.Channel, error) {
	cfg := a.cfg
	var channels []notification.Channel

	if cfg.EnableWebSocketNotifications {
		a.hub = notification.NewHub()
		channels = append(channels, a.hub)
		log.Println("   ✅ WebSocket hub initialized")
	}

	store := notification.NewPostgresStore(a.db)
	if cfg.EnableInboxNotifications {
		channels = append(channels, notification.NewInboxChannel(store))
		log.Println("   ✅ In-app inbox enabled")
	}

	if cfg.EnablePushNotifications {
		push, err := notification.NewFCMPushChannel(ctx, cfg.FirebaseCredentialsPath, cfg.FirebaseCredentialsJSON, store)
		if err != nil {
			log.Printf("   ⚠️  Warning: Push notifications disabled: %v", err)
		} else {
			channels = append(channels, push)
			log.Println("   ✅ FCM push enabled")
		}
	}

	contacts := notification.NewPostgresContactDirectory(a.db)

	// Email only carries the messages worth leaving the app for
	emailKinds := []notification.Kind{
		notification.KindMatchConfirmed,
		notification.KindExpiryReminder,
		notification.KindDonationPrompt,
	}
	if cfg.EnableEmailNotifications {
		switch cfg.EmailProvider {
		case "sendgrid":
			email, err := notification.NewSendGridEmailChannel(cfg.SendGridAPIKey, cfg.EmailFrom, contacts, emailKinds...)
			if err != nil {
				return nil, fmt.Errorf("failed to initialize SendGrid: %w", err)
			}
			channels = append(channels, email)
			log.Println("   ✅ Using SendGrid for emails")
		default:
			channels = append(channels, notification.NewMockChannel("email", emailKinds...))
			log.Println("   📝 Using mock email channel (development mode)")
		}
	}

	if cfg.EnableSMSNotifications {
		switch cfg.SMSProvider {
		case "twilio":
			sms, err := notification.NewTwilioSMSChannel(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, contacts, notification.KindExpiryReminder)
			if err != nil {
				return nil, fmt.Errorf("failed to initialize Twilio: %w", err)
			}
			channels = append(channels, sms)
			log.Println("   ✅ Using Twilio for SMS")
		default:
			channels = append(channels, notification.NewMockChannel("sms", notification.KindExpiryReminder))
			log.Println("   📝 Using mock SMS channel (development mode)")
		}
	}

	return channels, nil
}

func (a *app) registerJobs() error {
	jobs := []scheduler.Job{
		{
			Name:     jobExpireWindows,
			Interval: a.cfg.ExpirySweepInterval,
			Task: func(ctx context.Context) error {
				res, err := a.sweeper.ExpireWindows(ctx)
				if res.Scanned > 0 {
					log.Printf("Expiry sweep: scanned=%d expired=%d skipped=%d failed=%d",
						res.Scanned, res.Processed, res.Skipped, res.Failed)
				}
				return err
			},
			RunOnStart: true,
		},
		{
			Name:     jobReminders,
			Interval: a.cfg.ReminderInterval,
			Task: func(ctx context.Context) error {
				res, err := a.sweeper.SendExpirationReminders(ctx)
				if res.Processed > 0 {
					log.Printf("Expiry reminders: sent=%d failed=%d", res.Processed, res.Failed)
				}
				return err
			},
		},
		{
			Name:     jobGhosting,
			Interval: a.cfg.GhostingInterval,
			Task: func(ctx context.Context) error {
				res, err := a.detector.Run(ctx)
				log.Printf("Ghosting scan: scanned=%d flagged=%d skipped=%d failed=%d",
					res.Scanned, res.Flagged, res.Skipped, res.Failed)
				return err
			},
		},
	}

	for _, job := range jobs {
		if err := a.scheduler.Add(job); err != nil {
			return err
		}
	}
	return nil
}

// close drains pending notifications before releasing connections
func (a *app) close() {
	if a.scheduler != nil {
		a.scheduler.Wait()
	}
	if a.dispatcher != nil {
		a.dispatcher.Wait()
	}
	if a.hub != nil {
		a.hub.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Printf("Failed to close Redis: %v", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Printf("Failed to close database: %v", err)
		}
	}
}
