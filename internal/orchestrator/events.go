package orchestrator

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/poems/internal/models"
)

const eventBuffer = 64

// queue stamps ev and hands it to the publishing goroutine without blocking. It is called
// from inside the store write that made the transition, so events leave in transition
// order. A full buffer drops the event.
func (o *Orchestrator) queue(ev models.Event) {
	if o.eventCh == nil {
		return
	}
	ev.SessionID = o.sessionID
	ev.At = time.Now()
	select {
	case o.eventCh <- ev:
	default:
		log.Warn().Str("event", ev.Type).Uint64("epoch", ev.Epoch).Msg("Event buffer full, dropping event")
	}
}

// publishEvents delivers queued events one at a time until the queue is closed.
func (o *Orchestrator) publishEvents() {
	defer close(o.eventsDone)
	dropped := 0
	for ev := range o.eventCh {
		if o.publishCtx.Err() != nil {
			dropped++
			continue
		}
		ctx, cancel := context.WithTimeout(o.publishCtx, o.eventTimeout)
		err := o.events.PublishEvent(ctx, ev)
		cancel()
		if err != nil {
			log.Error().Err(err).Str("event", ev.Type).Uint64("epoch", ev.Epoch).Msg("Failed to publish event")
		}
	}
	if dropped > 0 {
		log.Warn().Int("dropped", dropped).Msg("Dropped unpublished events on close")
	}
}

// drainEvents closes the queue and waits for it to flush. Delivery still running after
// eventTimeout is abandoned. Only called once no goroutine can queue.
func (o *Orchestrator) drainEvents() {
	defer o.publishCancel()
	if o.eventCh == nil {
		return
	}
	close(o.eventCh)

	timer := time.NewTimer(o.eventTimeout)
	defer timer.Stop()
	select {
	case <-o.eventsDone:
	case <-timer.C:
		log.Warn().Dur("timeout", o.eventTimeout).Msg("Event delivery did not finish, abandoning queued events")
		o.publishCancel()
		<-o.eventsDone
	}
}
