// cmd/container.go
//
// Root composition root. Owns infrastructure (DB, Redis, email provider)
// and composes the IAM module. This is the only place that knows about
// all modules.
package main

import (
	"context"
	"fmt"

	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/jmoiron/sqlx"
	"github.com/kyfplatform/kyf-api/pkg/config"
	"github.com/kyfplatform/kyf-api/pkg/iam/iamcontainer"
	"github.com/kyfplatform/kyf-api/pkg/iam/otp/otpinfra"
	"github.com/kyfplatform/kyf-api/pkg/logx"
	"github.com/kyfplatform/kyf-api/pkg/notifx"
	"github.com/kyfplatform/kyf-api/pkg/notifx/notifxconsole"
	"github.com/kyfplatform/kyf-api/pkg/notifx/notifxses"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

// Container holds shared infrastructure and composed module containers.
type Container struct {
	Config *config.Config

	// Infrastructure (shared across all modules)
	DB    *sqlx.DB
	Redis *redis.Client
	Mail  *notifx.Client

	// Bounded-context containers
	IAM *iamcontainer.Container
}

func NewContainer(cfg *config.Config) *Container {
	logx.Info("initializing application container")

	c := &Container{Config: cfg}

	c.initInfrastructure()
	c.initModules()

	logx.Info("application container initialized")
	return c
}

// ---------------------------------------------------------------------------
// Infrastructure — DB, Redis, email delivery
// ---------------------------------------------------------------------------

func (c *Container) initInfrastructure() {
	// 1. Database
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Config.Database.Host,
		c.Config.Database.Port,
		c.Config.Database.User,
		c.Config.Database.Password,
		c.Config.Database.Name,
		c.Config.Database.SSLMode,
	)

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		logx.Fatalf("failed to connect to database: %v", err)
	}
	db.SetMaxOpenConns(c.Config.Database.MaxOpenConns)
	db.SetMaxIdleConns(c.Config.Database.MaxIdleConns)
	db.SetConnMaxLifetime(c.Config.Database.ConnMaxLifetime)
	c.DB = db
	logx.Info("database connected")

	// 2. Redis
	c.Redis = redis.NewClient(&redis.Options{
		Addr:     c.Config.Redis.Address(),
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	})
	if _, err := c.Redis.Ping(context.Background()).Result(); err != nil {
		logx.Fatalf("failed to connect to Redis: %v (Redis is required)", err)
	}
	logx.Info("redis connected")

	// 3. Email delivery
	c.initMailProvider()
}

func (c *Container) initMailProvider() {
	switch c.Config.Notif.Provider {
	case "ses":
		awsCfg, err := awsConfig.LoadDefaultConfig(context.Background(),
			awsConfig.WithRegion(c.Config.Notif.AWSRegion))
		if err != nil {
			logx.Fatalf("unable to load AWS SDK config: %v", err)
		}
		sesClient := ses.NewFromConfig(awsCfg)
		c.Mail = notifx.NewClient(notifxses.NewSESProvider(sesClient, c.Config.Notif.FromAddress))
		logx.Infof("SES email provider configured (region: %s)", c.Config.Notif.AWSRegion)

	case "console":
		c.Mail = notifx.NewClient(notifxconsole.NewConsoleProvider())
		logx.Warn("using console email provider (not for production)")

	default:
		logx.Fatalf("unknown NOTIF_PROVIDER: %s (use 'console' or 'ses')", c.Config.Notif.Provider)
	}
}

// ---------------------------------------------------------------------------
// Module composition
// ---------------------------------------------------------------------------

func (c *Container) initModules() {
	ttlMinutes := int(c.Config.OTP.TTL.Minutes())
	deliverer, err := otpinfra.NewEmailDeliverer(c.Mail, c.Config.Notif.FromAddress, ttlMinutes)
	if err != nil {
		logx.Fatalf("failed to build OTP deliverer: %v", err)
	}

	iam, err := iamcontainer.New(iamcontainer.Deps{
		DB:        c.DB,
		Redis:     c.Redis,
		Cfg:       c.Config,
		Deliverer: deliverer,
	})
	if err != nil {
		logx.Fatalf("failed to initialize IAM module: %v", err)
	}
	c.IAM = iam
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func (c *Container) Cleanup() {
	logx.Info("cleaning up resources")

	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logx.Errorf("error closing database: %v", err)
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logx.Errorf("error closing redis: %v", err)
		}
	}
}
