// Package jobs submits background work to pubsub topics and runs the in-process mail worker.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gocloud.dev/pubsub"
	_ "gocloud.dev/pubsub/mempubsub"

	"marketplace-backend/mailer"
)

const (
	KindOrderConfirmed = "order_confirmed"
	KindThumbnail      = "avatar_thumbnail"
)

// ThumbnailJob asks the thumbnail worker to render a preview for a stored avatar.
type ThumbnailJob struct {
	UserID string `json:"user_id"`
	Key    string `json:"key"`
}

// Submitter is the fire-and-forget side of the job queue used by handlers.
type Submitter interface {
	SubmitMail(ctx context.Context, kind string, msg mailer.Message) error
	SubmitThumbnail(ctx context.Context, job ThumbnailJob) error
}

// Queue publishes jobs to their topics.
type Queue struct {
	mail       *pubsub.Topic
	thumbnails *pubsub.Topic
	log        zerolog.Logger
}

func NewQueue(mail, thumbnails *pubsub.Topic, log zerolog.Logger) *Queue {
	return &Queue{mail: mail, thumbnails: thumbnails, log: log.With().Str("component", "jobs").Logger()}
}

// OpenQueue opens both topics by URL (mem://, gcppubsub://, awssns:// ... depending on linked drivers).
func OpenQueue(ctx context.Context, mailURL, thumbnailURL string, log zerolog.Logger) (*Queue, error) {
	mail, err := pubsub.OpenTopic(ctx, mailURL)
	if err != nil {
		return nil, errors.Wrapf(err, "open mail topic %s", mailURL)
	}
	thumbs, err := pubsub.OpenTopic(ctx, thumbnailURL)
	if err != nil {
		_ = mail.Shutdown(ctx)
		return nil, errors.Wrapf(err, "open thumbnail topic %s", thumbnailURL)
	}
	return NewQueue(mail, thumbs, log), nil
}

func (q *Queue) SubmitMail(ctx context.Context, kind string, msg mailer.Message) error {
	return q.send(ctx, q.mail, kind, msg)
}

func (q *Queue) SubmitThumbnail(ctx context.Context, job ThumbnailJob) error {
	return q.send(ctx, q.thumbnails, KindThumbnail, job)
}

func (q *Queue) send(ctx context.Context, topic *pubsub.Topic, kind string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.WithStack(err)
	}
	err = topic.Send(ctx, &pubsub.Message{
		Body:     body,
		Metadata: map[string]string{"kind": kind},
	})
	if err != nil {
		return errors.Wrapf(err, "submit %s job", kind)
	}
	q.log.Debug().Str("kind", kind).Msg("job submitted")
	return nil
}

func (q *Queue) Shutdown(ctx context.Context) error {
	errMail := q.mail.Shutdown(ctx)
	errThumbs := q.thumbnails.Shutdown(ctx)
	if errMail != nil {
		return errors.WithStack(errMail)
	}
	return errors.WithStack(errThumbs)
}

// OrderConfirmedMail builds the mail sent when a customer confirms an order.
func OrderConfirmedMail(to string, cartID uint, total float64) mailer.Message {
	return mailer.Message{
		To:      to,
		Subject: fmt.Sprintf("Order #%d received", cartID),
		Body: fmt.Sprintf("Thank you for your order #%d.\n\nTotal: %.2f\n"+
			"We will let you know as soon as the payment is confirmed.\n", cartID, total),
	}
}
