package tools

import (
	"context"
	"errors"

	"mzassist/internal/gateway"
	"mzassist/internal/ledger"
	"mzassist/internal/logging"
	"mzassist/internal/poller"
	"mzassist/internal/types"
)

// Progress messages rotated while a video job is in flight.
var videoProgressMessages = []string{
	"جارٍ إعداد المشهد...",
	"الكاميرات تدور الآن...",
	"يتم توليد الإطارات الأولى...",
	"الذكاء الاصطناعي يضيف لمساته السحرية...",
	"وشكنا على الانتهاء، يتم تجميع الفيديو...",
	"قد يستغرق الأمر بضع دقائق، شكرًا لصبرك...",
}

const videoTimeoutMessage = "استغرق توليد الفيديو وقتًا أطول من المتوقع وتم إيقافه. يرجى المحاولة مرة أخرى."

// VideoResult is the outcome of a completed video generation: the raw
// video bytes plus the remote URI recorded in the ledger.
type VideoResult struct {
	URI  string `json:"uri"`
	Data []byte `json:"-"`
}

// CreateVideo runs the full long-running video flow: register the job,
// submit it, poll until it finishes or the deadline passes, then
// download the artifact. onMessage, when non-nil, receives rotating
// progress messages. The ledger entry always ends terminal; a job never
// stays pending past this call.
func (s *Service) CreateVideo(ctx context.Context, prompt string, image *types.InlineImage, onMessage func(string)) (*VideoResult, error) {
	id, err := s.ledger.Register(types.CreationVideo, prompt)
	if err != nil {
		return nil, err
	}

	if onMessage != nil {
		onMessage(videoProgressMessages[0])
	}

	op, err := s.gen.GenerateVideo(ctx, prompt, image)
	if err != nil {
		s.failVideo(id, err)
		return nil, err
	}
	logging.Poller("Video job %s tracking operation %s", id, op.Name)

	if err := s.awaitVideo(ctx, op, onMessage); err != nil {
		s.failVideo(id, err)
		return nil, err
	}

	uri, ok := op.Artifact()
	if !ok {
		err := op.Err()
		s.failVideo(id, err)
		return nil, err
	}

	data, err := s.gen.DownloadVideo(ctx, uri)
	if err != nil {
		s.failVideo(id, err)
		return nil, err
	}

	result := &VideoResult{URI: uri, Data: data}
	if cerr := s.ledger.Complete(id, result); cerr != nil {
		logging.Ledger("Failed to record completion for %s: %v", id, cerr)
	}
	return result, nil
}

// awaitVideo blocks until the operation reaches a terminal state,
// updating op in place through successive status checks.
func (s *Service) awaitVideo(ctx context.Context, op *gateway.VideoOperation, onMessage func(string)) error {
	check := func(ctx context.Context) (bool, error) {
		updated, err := s.gen.PollVideoStatus(ctx, op)
		if err != nil {
			return false, err
		}
		*op = *updated
		if !op.Done {
			return false, nil
		}
		if err := op.Err(); err != nil {
			return false, err
		}
		return true, nil
	}

	cfg := s.pollCfg
	cfg.Messages = videoProgressMessages

	done := make(chan error, 1)
	session := poller.Start(ctx, cfg, check, onMessage, func(err error) { done <- err })
	defer session.Stop()

	err := <-done
	if errors.Is(err, poller.ErrTimedOut) {
		return &gateway.Error{Kind: gateway.KindTransient, Message: videoTimeoutMessage, Err: err}
	}
	return err
}

func (s *Service) failVideo(id string, cause error) {
	if err := s.ledger.Fail(id, gateway.UserMessage(cause)); err != nil {
		logging.Ledger("Failed to record failure for %s: %v", id, err)
	}
}

// ResolveStale force-fails any ledger entries still pending, used at
// startup to clean up jobs orphaned by a previous run.
func ResolveStale(l *ledger.Ledger) {
	for _, entry := range l.Pending() {
		if err := l.Fail(entry.ID, "انقطعت هذه العملية قبل اكتمالها."); err != nil {
			logging.Ledger("Failed to fail stale creation %s: %v", entry.ID, err)
		}
	}
}
