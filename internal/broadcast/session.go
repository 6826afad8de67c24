// Package broadcast stages an administrator message for a user cohort and
// delivers it at a bounded rate.
package broadcast

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"partner-bot/internal/apperr"
	"partner-bot/internal/logger"
	"partner-bot/internal/metrics"
	"partner-bot/internal/models"
)

// progressEvery is how many attempts pass between progress reports.
const progressEvery = 5

var (
	ErrEmptyText      = fmt.Errorf("%w: broadcast text is empty", apperr.ErrValidation)
	ErrNoRecipients   = fmt.Errorf("%w: cohort has no recipients", apperr.ErrValidation)
	ErrInvalidCohort  = fmt.Errorf("%w: unknown cohort", apperr.ErrValidation)
	ErrSendInProgress = fmt.Errorf("%w: broadcast in progress", apperr.ErrConflict)
)

type Store interface {
	ListUsers(ctx context.Context, cohort models.Cohort) ([]models.User, error)
	CountUsers(ctx context.Context, cohort models.Cohort) (int64, error)
	SaveBroadcast(ctx context.Context, record *models.BroadcastRecord) error
}

type Deliverer interface {
	Deliver(ctx context.Context, chatID int64, text string) error
}

type Phase int

const (
	PhaseEmpty Phase = iota
	PhaseCohortSet
	PhaseTextSet
	PhaseStaged
	PhaseSending
)

func (p Phase) String() string {
	switch p {
	case PhaseCohortSet:
		return "cohort_set"
	case PhaseTextSet:
		return "text_set"
	case PhaseStaged:
		return "staged"
	case PhaseSending:
		return "sending"
	default:
		return "empty"
	}
}

type Preview struct {
	Text   string
	Cohort models.Cohort
	Count  int64
}

type Snapshot struct {
	Phase  Phase
	Text   string
	Cohort models.Cohort
	Count  int64
}

type Progress struct {
	Total     int
	Attempted int
	Succeeded int
	Failed    int
}

func (p Progress) Percent() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Attempted) / float64(p.Total) * 100
}

type Result struct {
	Progress
	Failures map[FailureKind]int
	Record   *models.BroadcastRecord
}

// Session is the single broadcast staging area of the bot. All transitions
// are serialized; while a send runs every other transition is refused.
type Session struct {
	store     Store
	perSecond rate.Limit
	now       func() time.Time

	mu      sync.Mutex
	text    string
	cohort  models.Cohort
	count   int64
	sending bool
}

// NewSession paces delivery at messagesPerSecond; zero or less means unpaced.
func NewSession(store Store, messagesPerSecond float64) *Session {
	limit := rate.Inf
	if messagesPerSecond > 0 {
		limit = rate.Limit(messagesPerSecond)
	}
	return &Session{store: store, perSecond: limit, now: time.Now}
}

// SetCohort selects the recipients and caches their current count.
func (s *Session) SetCohort(ctx context.Context, cohort models.Cohort) (int64, error) {
	if !cohort.Valid() {
		return 0, ErrInvalidCohort
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sending {
		return 0, ErrSendInProgress
	}

	n, err := s.store.CountUsers(ctx, cohort)
	if err != nil {
		return 0, err
	}
	s.cohort = cohort
	s.count = n
	return n, nil
}

func (s *Session) SetText(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sending {
		return ErrSendInProgress
	}
	s.text = text
	return nil
}

// RequestSend validates the staged broadcast and returns what would be sent.
func (s *Session) RequestSend() (Preview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sending {
		return Preview{}, ErrSendInProgress
	}
	if s.text == "" {
		return Preview{}, ErrEmptyText
	}
	if s.count == 0 {
		return Preview{}, ErrNoRecipients
	}
	return Preview{Text: s.text, Cohort: s.cohort, Count: s.count}, nil
}

func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sending {
		return ErrSendInProgress
	}
	s.reset()
	return nil
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Phase: s.phase(), Text: s.text, Cohort: s.cohort, Count: s.count}
}

func (s *Session) phase() Phase {
	switch {
	case s.sending:
		return PhaseSending
	case s.cohort != "" && s.text != "":
		return PhaseStaged
	case s.cohort != "":
		return PhaseCohortSet
	case s.text != "":
		return PhaseTextSet
	default:
		return PhaseEmpty
	}
}

func (s *Session) reset() {
	s.text = ""
	s.cohort = ""
	s.count = 0
}

// ConfirmSend resolves the cohort again and delivers the text to every
// recipient in turn. A failed delivery is counted and the run continues.
// Once ctx is done the remaining recipients count as failures and the
// record is still written.
// onProgress, when set, fires after every fifth attempt and after the last.
func (s *Session) ConfirmSend(ctx context.Context, senderID int64, d Deliverer, onProgress func(Progress)) (*Result, error) {
	s.mu.Lock()
	if s.sending {
		s.mu.Unlock()
		return nil, ErrSendInProgress
	}
	if s.text == "" {
		s.mu.Unlock()
		return nil, ErrEmptyText
	}
	if s.cohort == "" {
		s.mu.Unlock()
		return nil, ErrNoRecipients
	}
	text, cohort := s.text, s.cohort
	s.sending = true
	s.mu.Unlock()

	completed := false
	defer func() {
		s.mu.Lock()
		s.sending = false
		if completed {
			s.reset()
		}
		s.mu.Unlock()
	}()

	users, err := s.store.ListUsers(ctx, cohort)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, ErrNoRecipients
	}

	logger.L().Infof("Broadcast to %d %s users started by %d", len(users), cohort, senderID)

	res := &Result{
		Progress: Progress{Total: len(users)},
		Failures: make(map[FailureKind]int),
	}
	limiter := rate.NewLimiter(s.perSecond, 1)

	for i, u := range users {
		err := limiter.Wait(ctx)
		if err == nil {
			err = d.Deliver(ctx, u.TelegramID, text)
		}
		res.Attempted++
		if err != nil {
			kind := Classify(err)
			res.Failed++
			res.Failures[kind]++
			metrics.BroadcastDeliveries.WithLabelValues(string(kind)).Inc()
			logger.L().Warnf("Broadcast to %d failed (%s): %v", u.TelegramID, kind, err)
		} else {
			res.Succeeded++
			metrics.BroadcastDeliveries.WithLabelValues("ok").Inc()
		}

		if onProgress != nil && ((i+1)%progressEvery == 0 || i+1 == len(users)) {
			onProgress(res.Progress)
		}
	}

	completed = true
	record := &models.BroadcastRecord{
		MessageText:     text,
		SentAt:          s.now(),
		SentBy:          senderID,
		RecipientsCount: res.Succeeded,
	}
	if err := s.store.SaveBroadcast(context.WithoutCancel(ctx), record); err != nil {
		logger.L().Errorf("Failed to save broadcast record: %v", err)
		return res, err
	}
	res.Record = record

	logger.L().Infof("Broadcast finished: %d ok, %d failed", res.Succeeded, res.Failed)
	return res, nil
}
