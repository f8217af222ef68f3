package jobs

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gocloud.dev/pubsub"

	"marketplace-backend/mailer"
)

const (
	defaultMailAttempts = 5
	defaultMailBackoff  = time.Second
)

// MailWorker consumes the mail subscription and hands each message to a mailer.Sender.
// A failed send is retried with exponential backoff up to attempts times, then dropped.
type MailWorker struct {
	sub      *pubsub.Subscription
	sender   mailer.Sender
	log      zerolog.Logger
	attempts int
	backoff  time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewMailWorker(sub *pubsub.Subscription, sender mailer.Sender, log zerolog.Logger) *MailWorker {
	return &MailWorker{
		sub:      sub,
		sender:   sender,
		log:      log.With().Str("component", "mail-worker").Logger(),
		attempts: defaultMailAttempts,
		backoff:  defaultMailBackoff,
	}
}

// WithRetry overrides the delivery attempts per message and the first backoff delay.
func (w *MailWorker) WithRetry(attempts int, backoff time.Duration) *MailWorker {
	if attempts > 0 {
		w.attempts = attempts
	}
	if backoff > 0 {
		w.backoff = backoff
	}
	return w
}

func OpenSubscription(ctx context.Context, url string) (*pubsub.Subscription, error) {
	sub, err := pubsub.OpenSubscription(ctx, url)
	return sub, errors.Wrapf(err, "open subscription %s", url)
}

// Start runs the receive loop in its own goroutine until Stop is called.
func (w *MailWorker) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.Run(ctx)
	}()
}

// Stop cancels the receive loop and waits for the message in flight.
func (w *MailWorker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.cancel()
	}
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return errors.WithStack(w.sub.Shutdown(ctx))
}

// Run receives until ctx is done or the subscription fails.
func (w *MailWorker) Run(ctx context.Context) {
	for {
		msg, err := w.sub.Receive(ctx)
		if err != nil {
			if ctx.Err() == nil {
				w.log.Error().Err(err).Msg("receive failed, worker stopped")
			}
			return
		}
		w.handle(ctx, msg)
	}
}

func (w *MailWorker) handle(ctx context.Context, msg *pubsub.Message) {
	kind := msg.Metadata["kind"]

	var mail mailer.Message
	if err := json.Unmarshal(msg.Body, &mail); err != nil {
		// a malformed message will never succeed
		w.log.Error().Err(err).Str("kind", kind).Msg("dropping malformed mail job")
		msg.Ack()
		return
	}

	delay := w.backoff
	for attempt := 1; ; attempt++ {
		err := w.sender.Send(ctx, mail)
		if err == nil {
			msg.Ack()
			return
		}
		if attempt >= w.attempts {
			w.log.Error().Err(err).Str("kind", kind).Str("to", mail.To).Int("attempts", attempt).Msg("mail dropped")
			msg.Ack()
			return
		}
		w.log.Warn().Err(err).Str("kind", kind).Str("to", mail.To).Int("attempt", attempt).Dur("retry_in", delay).Msg("mail delivery failed")

		select {
		case <-ctx.Done():
			// stopping: leave the message to the broker for the next run
			if msg.Nackable() {
				msg.Nack()
			} else {
				msg.Ack()
			}
			return
		case <-time.After(delay):
		}
		delay *= 2
	}
}
