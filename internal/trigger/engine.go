package trigger

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/emersion/go-imap"
	"github.com/sirupsen/logrus"

	"github.com/brandon/mailflow/internal/config"
	"github.com/brandon/mailflow/internal/email"
	"github.com/brandon/mailflow/internal/state"
	"github.com/brandon/mailflow/pkg/types"
)

// safetyNetInterval is how often the push strategy re-synchronizes even
// without a notification, covering missed or coalesced pushes.
const safetyNetInterval = 5 * time.Minute

// idleRestartDelay is the pause before re-establishing a dropped monitoring
// session.
const idleRestartDelay = 10 * time.Second

// WatermarkStore persists the per-trigger high-water mark across restarts.
type WatermarkStore interface {
	GetWatermark(triggerID string) (*state.Watermark, error)
	SetWatermark(w *state.Watermark) error
}

// Engine observes one mailbox for newly arrived messages and emits one
// enriched record per new message. Each Engine owns its own admission gate,
// safety-net timer and monitoring session; independent engines are fully
// concurrent.
type Engine struct {
	cfg    *config.TriggerConfig
	dialer *email.Dialer
	store  WatermarkStore
	binary email.BinaryStore
	logger *logrus.Logger
	emit   func(record map[string]interface{})

	// Single-slot admission gate shared by the interval timer and the
	// push-notification callback. Overlapping entries are skipped, not
	// queued; a skipped cycle's messages are picked up by the next one.
	polling atomic.Bool

	stop chan struct{}
	wg   sync.WaitGroup

	// Protocol seams, replaced in tests
	readStatus func() (*types.MailboxStatus, error)
	process    func(uid uint32) error
}

// NewEngine creates a change-detection engine for one trigger instance
func NewEngine(cfg *config.TriggerConfig, dialer *email.Dialer, store WatermarkStore, binary email.BinaryStore, logger *logrus.Logger, emit func(map[string]interface{})) *Engine {
	e := &Engine{
		cfg:    cfg,
		dialer: dialer,
		store:  store,
		binary: binary,
		logger: logger,
		emit:   emit,
		stop:   make(chan struct{}),
	}
	e.readStatus = e.statusFromServer
	e.process = e.processUID
	return e
}

// Start resolves the trigger mode and launches the chosen strategy.
// auto probes the server's capabilities once on a throwaway connection.
func (e *Engine) Start() error {
	mode := e.cfg.Mode
	if mode == config.ModeAuto {
		supported, err := e.dialer.ProbeCapability("IDLE")
		if err != nil {
			return fmt.Errorf("failed to probe capabilities: %w", err)
		}
		if supported {
			mode = config.ModeIdle
		} else {
			mode = config.ModePoll
		}
		e.logger.WithField("mode", mode).Info("Resolved trigger mode")
	}

	switch mode {
	case config.ModeIdle:
		e.wg.Add(1)
		go e.runIdle()
	case config.ModePoll:
		e.wg.Add(1)
		go e.runPoll()
	default:
		return fmt.Errorf("unknown trigger mode: %s", mode)
	}

	e.logger.WithFields(logrus.Fields{
		"trigger": e.cfg.ID,
		"mailbox": e.cfg.Mailbox,
		"mode":    mode,
	}).Info("Trigger started")
	return nil
}

// Stop tears the engine down: timers are cleared before the monitoring
// session is released, so no poll cycle fires against a closed session.
func (e *Engine) Stop() {
	close(e.stop)
	e.wg.Wait()
	e.logger.WithField("trigger", e.cfg.ID).Info("Trigger stopped")
}

// runPoll drives the guarded poll routine on a fixed interval.
func (e *Engine) runPoll() {
	defer e.wg.Done()

	interval := time.Duration(e.cfg.PollIntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Immediate first cycle so the watermark initializes at activation
	e.Poll()

	for {
		select {
		case <-e.stop:
			return
		case <-ticker.C:
			e.Poll()
		}
	}
}

// runIdle keeps a long-lived monitoring session in IDLE, re-synchronizing
// through the same guarded poll routine on every pushed update and on a
// safety-net timer. The session is re-established if the server drops it.
func (e *Engine) runIdle() {
	defer e.wg.Done()

	ticker := time.NewTicker(safetyNetInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stop:
			return
		default:
		}

		if err := e.monitorOnce(ticker); err != nil {
			e.logger.WithError(err).Warn("Monitoring session ended, restarting")
			select {
			case <-e.stop:
				return
			case <-time.After(idleRestartDelay):
			}
		}
	}
}

// monitorOnce runs one lifetime of the monitoring session.
func (e *Engine) monitorOnce(ticker *time.Ticker) error {
	session := e.dialer.NewSession()
	defer session.Logout()

	if err := session.OpenMailbox(e.cfg.Mailbox); err != nil {
		return err
	}

	// Watermark initialization is identical to poll's first-run behavior
	e.Poll()

	idleStop := make(chan struct{})
	watchDone := make(chan error, 1)
	go func() {
		watchDone <- session.Watch(idleStop, func() {
			// Re-synchronize against the real watermark instead of
			// trusting the notification payload
			e.Poll()
		})
	}()

	for {
		select {
		case <-e.stop:
			// Clear the IDLE loop before the deferred logout releases
			// the session
			close(idleStop)
			<-watchDone
			return nil
		case <-ticker.C:
			e.Poll()
		case err := <-watchDone:
			return err
		}
	}
}

// Poll is the single guarded entry point shared by interval timers and push
// notifications. The loser of the try-acquire race is skipped outright.
func (e *Engine) Poll() {
	if !e.polling.CompareAndSwap(false, true) {
		e.logger.Debug("Poll cycle already in flight, skipping")
		return
	}
	defer e.polling.Store(false)

	if err := e.pollCycle(); err != nil {
		e.logger.WithError(err).Error("Poll cycle failed")
	}
}

// pollCycle compares the mailbox's next-UID watermark against the persisted
// one and emits every newly discovered message in ascending UID order. On
// first run the watermark initializes to the current high-water mark without
// emitting, so only messages arriving after activation are reported.
func (e *Engine) pollCycle() error {
	status, err := e.readStatus()
	if err != nil {
		return err
	}

	var maxUID uint32
	if status.UIDNext > 0 {
		maxUID = status.UIDNext - 1
	}

	w, err := e.store.GetWatermark(e.cfg.ID)
	if err != nil {
		return err
	}

	// A UID-validity change makes every stored UID meaningless: reset and
	// re-initialize as on first run
	if w != nil && status.UIDValidity != 0 && w.UIDValidity != status.UIDValidity {
		e.logger.WithFields(logrus.Fields{
			"trigger": e.cfg.ID,
			"stored":  w.UIDValidity,
			"current": status.UIDValidity,
		}).Warn("UID validity changed, resetting watermark")
		w = nil
	}

	if w == nil {
		w = &state.Watermark{
			TriggerID:   e.cfg.ID,
			Mailbox:     e.cfg.Mailbox,
			LastUID:     maxUID,
			UIDValidity: status.UIDValidity,
		}
		if err := e.store.SetWatermark(w); err != nil {
			return err
		}
		e.logger.WithFields(logrus.Fields{
			"trigger":   e.cfg.ID,
			"watermark": maxUID,
		}).Info("Initialized watermark")
		return nil
	}

	if maxUID <= w.LastUID {
		return nil
	}

	start := w.LastUID + 1
	if start < 1 {
		start = 1
	}
	for uid := start; uid <= maxUID; uid++ {
		if err := e.process(uid); err != nil {
			var notFound *email.NotFoundError
			if errors.As(err, &notFound) {
				// UID gap: the message was expunged before we saw it
				continue
			}
			return err
		}
	}

	w.LastUID = maxUID
	w.UIDValidity = status.UIDValidity
	return e.store.SetWatermark(w)
}

// statusFromServer reads mailbox status on a short-lived session.
func (e *Engine) statusFromServer() (*types.MailboxStatus, error) {
	session := e.dialer.NewSession()
	defer session.Logout()
	return session.Status(e.cfg.Mailbox)
}

// processUID enriches and emits one message, then applies the configured
// post-emission side effects. A distinct short-lived session is used so the
// monitoring session's mailbox-open state stays untouched.
func (e *Engine) processUID(uid uint32) error {
	session := e.dialer.NewSession()
	defer session.Logout()

	msg, err := email.Enrich(session, e.cfg.Mailbox, uid, e.enrichOptions(uid))
	if err != nil {
		return err
	}

	e.emit(FormatRecord(msg, e.cfg.OutputFormat))

	// Side-effect failures are logged but never block the already-produced
	// record
	e.applySideEffects(session, uid)
	return nil
}

// enrichOptions builds the pipeline options for one emission. Every format
// except raw renders the parsed body, so the source is parsed for all of
// them; raw additionally carries the source bytes through to the record.
func (e *Engine) enrichOptions(uid uint32) email.EnrichOptions {
	return email.EnrichOptions{
		IncludeRaw:      e.cfg.OutputFormat == config.FormatRaw,
		ParseBody:       e.cfg.OutputFormat != config.FormatRaw,
		AttachmentMode:  e.cfg.AttachmentMode,
		BinaryKeyPrefix: fmt.Sprintf("%s%d_", e.cfg.BinaryKeyPrefix, uid),
		Filter:          email.FilterFromConfig(e.cfg),
		Binary:          e.binary,
	}
}

// applySideEffects runs the configured post-emission mutations: mark seen,
// add extra flags, move to a target mailbox, in that order.
func (e *Engine) applySideEffects(session *email.Session, uid uint32) {
	uids := []uint32{uid}

	if e.cfg.MarkSeen {
		if _, err := session.UpdateFlags(uids, e.cfg.Mailbox, email.FlagActionAdd, []string{imap.SeenFlag}); err != nil {
			e.logger.WithError(err).WithField("uid", uid).Warn("Failed to mark message seen")
		}
	}

	if flags := splitFlagsCSV(e.cfg.ExtraFlagsCSV); len(flags) > 0 {
		if _, err := session.UpdateFlags(uids, e.cfg.Mailbox, email.FlagActionAdd, flags); err != nil {
			e.logger.WithError(err).WithField("uid", uid).Warn("Failed to add flags")
		}
	}

	if e.cfg.MoveTarget != "" {
		if _, err := session.Move(uids, e.cfg.Mailbox, e.cfg.MoveTarget); err != nil {
			e.logger.WithError(err).WithField("uid", uid).Warn("Failed to move message")
		}
	}
}

func splitFlagsCSV(csv string) []string {
	var flags []string
	for _, f := range strings.Split(csv, ",") {
		f = strings.TrimSpace(f)
		if f != "" {
			flags = append(flags, f)
		}
	}
	return flags
}
