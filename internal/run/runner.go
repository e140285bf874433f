// Package run sequences one monitoring invocation: load state, check the
// send gate, fetch the listing, diff against the baseline, notify, commit.
package run

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"docwatch/internal/config"
	"docwatch/internal/detect"
	"docwatch/internal/gate"
	"docwatch/internal/notify"
	"docwatch/internal/scrape"
	"docwatch/internal/state"
)

var (
	metricRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docwatch_runs_total",
		Help: "The total number of monitoring runs by outcome",
	}, []string{"outcome"})

	metricFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docwatch_fetch_total",
		Help: "The total number of listing fetches",
	}, []string{"status"})

	metricNewDocs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docwatch_new_documents_total",
		Help: "The total number of newly observed documents",
	})

	metricMails = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docwatch_mail_total",
		Help: "The total number of notification mails sent by verdict",
	}, []string{"verdict"})
)

// Notifier delivers a composed notification body.
type Notifier interface {
	Send(ctx context.Context, body string) error
}

// Mirror optionally copies the notification to a secondary channel.
type Mirror interface {
	Post(ctx context.Context, body string) error
}

type Runner struct {
	cfg       *config.Config
	extractor scrape.Extractor
	store     state.Store
	gate      *gate.Gate
	notifier  Notifier
	mirror    Mirror // nil when no webhook configured
	logger    *slog.Logger

	now func() time.Time
}

func New(cfg *config.Config, extractor scrape.Extractor, store state.Store, g *gate.Gate, notifier Notifier, mirror Mirror, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		cfg:       cfg,
		extractor: extractor,
		store:     store,
		gate:      g,
		notifier:  notifier,
		mirror:    mirror,
		logger:    logger,
		now:       time.Now,
	}
}

// Run performs a single invocation. The returned error is only ever a mail
// delivery failure; every other problem degrades to the fail-safe
// "Not updated" notification or a silent skip, because the monitoring
// channel must not go quiet over a transient fetch hiccup.
func (r *Runner) Run(ctx context.Context) error {
	// Operator override: send the supplied verdict as-is, skip everything.
	if v := r.cfg.ForceVerdict; v != "" {
		r.logger.Info("Sending forced verdict", "verdict", v)
		if err := r.send(ctx, v); err != nil {
			metricRuns.WithLabelValues("send_error").Inc()
			return err
		}
		metricRuns.WithLabelValues("forced").Inc()
		return nil
	}

	st := r.store.Load(ctx)
	if r.cfg.ResetBaseline {
		r.logger.Info("Resetting baseline")
		st = state.New()
	}

	// First-ever run seeds the baseline without notifying; everything on
	// the page would otherwise be reported as news.
	if !st.Initialized && !r.cfg.ForceSend {
		return r.seed(ctx, st)
	}

	decision := r.gate.ShouldSend(r.now(), st.Sent, r.cfg.ForceSend)
	if !decision.Allowed {
		r.logger.Debug("Outside send window, skipping")
		metricRuns.WithLabelValues("gated").Inc()
		return nil
	}

	docs, err := r.extractor.Extract(ctx)
	if err != nil {
		r.logger.Error("Fetch failed, sending fail-safe verdict", "error", err)
		metricFetches.WithLabelValues("error").Inc()
		return r.failSafe(ctx, st, decision)
	}
	if len(docs) == 0 {
		// An empty listing almost always means the page broke, not that the
		// municipality withdrew every document. Do not touch the baseline.
		r.logger.Error("Fetch returned no documents, sending fail-safe verdict")
		metricFetches.WithLabelValues("empty").Inc()
		return r.failSafe(ctx, st, decision)
	}
	metricFetches.WithLabelValues("success").Inc()

	fresh := detect.Diff(docs, st.SeenSet())
	metricNewDocs.Add(float64(len(fresh)))

	body := notify.Compose(fresh, r.cfg.Limits.MaxListed)
	if err := r.send(ctx, body); err != nil {
		// No fallback channel. Leave the baseline alone so the same news is
		// reported once mail works again.
		metricRuns.WithLabelValues("send_error").Inc()
		return err
	}

	urls := make([]string, len(docs))
	for i, d := range docs {
		urls[i] = d.URL
	}
	st.Merge(urls, r.cfg.Limits.BaselineCap)
	st.Initialized = true
	st.MarkSent(decision.WindowKey)
	if err := r.store.Save(ctx, st); err != nil {
		r.logger.Error("Failed to persist state", "error", err)
	}

	r.logger.Info("Run complete", "new", len(fresh), "baseline", len(st.Seen))
	metricRuns.WithLabelValues("ok").Inc()
	return nil
}

// seed populates the baseline on the first run without sending anything.
func (r *Runner) seed(ctx context.Context, st *state.State) error {
	r.logger.Info("Baseline not initialized, seeding")

	docs, err := r.extractor.Extract(ctx)
	if err != nil {
		r.logger.Error("Seeding fetch failed, will retry next run", "error", err)
		metricFetches.WithLabelValues("error").Inc()
		metricRuns.WithLabelValues("seed_error").Inc()
		return nil
	}
	if len(docs) == 0 {
		r.logger.Error("Seeding fetch returned no documents, will retry next run")
		metricFetches.WithLabelValues("empty").Inc()
		metricRuns.WithLabelValues("seed_error").Inc()
		return nil
	}
	metricFetches.WithLabelValues("success").Inc()

	urls := make([]string, len(docs))
	for i, d := range docs {
		urls[i] = d.URL
	}
	st.Merge(urls, r.cfg.Limits.BaselineCap)
	st.Initialized = true
	if err := r.store.Save(ctx, st); err != nil {
		r.logger.Error("Failed to persist seeded state", "error", err)
	}

	r.logger.Info("Baseline seeded", "documents", len(st.Seen))
	metricRuns.WithLabelValues("seeded").Inc()
	return nil
}

// failSafe emits "Not updated" when the listing could not be trusted. The
// baseline stays untouched; only the window ledger advances so the same
// window does not fire twice.
func (r *Runner) failSafe(ctx context.Context, st *state.State, decision gate.Decision) error {
	if err := r.send(ctx, notify.VerdictNotUpdated); err != nil {
		metricRuns.WithLabelValues("send_error").Inc()
		return err
	}
	if decision.WindowKey != "" {
		st.MarkSent(decision.WindowKey)
		if err := r.store.Save(ctx, st); err != nil {
			r.logger.Error("Failed to persist send ledger", "error", err)
		}
	}
	metricRuns.WithLabelValues("failsafe").Inc()
	return nil
}

func (r *Runner) send(ctx context.Context, body string) error {
	if err := r.notifier.Send(ctx, body); err != nil {
		return err
	}
	verdict, _, _ := strings.Cut(body, "\n")
	metricMails.WithLabelValues(verdict).Inc()

	if r.mirror != nil {
		if err := r.mirror.Post(ctx, body); err != nil {
			r.logger.Warn("Webhook mirror failed", "error", err)
		}
	}
	return nil
}

// Loop re-runs the monitor on a fixed interval for setups without an
// external scheduler. Errors are logged, never fatal; the next tick gets a
// fresh chance.
func (r *Runner) Loop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	if err := r.Run(ctx); err != nil {
		r.logger.Error("Run failed", "error", err)
	}
}
