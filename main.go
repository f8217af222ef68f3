package main

import (
	"context"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"gocloud.dev/blob"
	"gorm.io/gorm"

	"marketplace-backend/config"
	"marketplace-backend/controllers"
	"marketplace-backend/database"
	"marketplace-backend/jobs"
	"marketplace-backend/logger"
	"marketplace-backend/mailer"
	"marketplace-backend/middlewares"
	"marketplace-backend/storage"
)

func main() {
	fx.New(
		options(),
		fx.NopLogger,
	).Run()
}

func options() fx.Option {
	return fx.Options(
		injectInfra(),
		injectHandler(),
		fx.Invoke(
			migrate,
			startMailWorker,
			startServer,
		),
	)
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.Load,
		logger.New,
		database.Connect,
		newQueue,
		fx.Annotate(
			func(q *jobs.Queue) *jobs.Queue { return q },
			fx.As(new(jobs.Submitter)),
		),
		newBucket,
		storage.NewAvatars,
		mailer.New,
		newMailWorker,
	)
}

func injectHandler() fx.Option {
	return fx.Provide(
		middlewares.NewAuth,
		controllers.New,
		newServer,
	)
}

// migrate brings the schema up to date and bootstraps the staff account before serving.
func migrate(db *gorm.DB, cfg *config.Config, log zerolog.Logger) error {
	if err := database.Migrate(db); err != nil {
		return err
	}
	return database.EnsureStaff(db, log, cfg.Admin.Email, cfg.Admin.Password)
}

func newQueue(lc fx.Lifecycle, cfg *config.Config, log zerolog.Logger) (*jobs.Queue, error) {
	q, err := jobs.OpenQueue(context.Background(), cfg.Jobs.MailTopic, cfg.Jobs.ThumbnailTopic, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("closing job topics")
			return q.Shutdown(ctx)
		},
	})
	return q, nil
}

func newBucket(lc fx.Lifecycle, cfg *config.Config) (*blob.Bucket, error) {
	b, err := storage.OpenBucket(context.Background(), cfg.Blob.URL)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return b.Close() },
	})
	return b, nil
}

// newMailWorker takes the queue so in-memory topics exist before the subscription opens.
func newMailWorker(cfg *config.Config, _ *jobs.Queue, sender mailer.Sender, log zerolog.Logger) (*jobs.MailWorker, error) {
	sub, err := jobs.OpenSubscription(context.Background(), cfg.Jobs.MailSubscription)
	if err != nil {
		return nil, err
	}
	return jobs.NewMailWorker(sub, sender, log), nil
}

func startMailWorker(lc fx.Lifecycle, w *jobs.MailWorker) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			w.Start()
			return nil
		},
		OnStop: w.Stop,
	})
}
