// Command session-loadtest drives a goSession engine in-process and reports
// interceptor and create/delete latency percentiles.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

const cookieName = "sid"

type user struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type options struct {
	sessions    int
	concurrency int
	ops         int
	store       string
	redisAddr   string
	unknownPct  int
	missingPct  int
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:           "session-loadtest",
		Short:         "Measure goSession interceptor throughput against a session store",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := o.validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cmd.OutOrStdout(), o)
		},
	}
	f := cmd.Flags()
	f.IntVar(&o.sessions, "sessions", 100000, "number of sessions to seed")
	f.IntVar(&o.concurrency, "concurrency", 256, "number of concurrent workers")
	f.IntVar(&o.ops, "ops", 200000, "requests per phase")
	f.StringVar(&o.store, "store", "memory", "session store: memory or redis")
	f.StringVar(&o.redisAddr, "redis-addr", "", "redis address; REDIS_ADDR or an embedded miniredis when empty")
	f.IntVar(&o.unknownPct, "unknown-pct", 10, "percent of requests presenting an unknown session id")
	f.IntVar(&o.missingPct, "missing-pct", 10, "percent of requests presenting no cookie")
	return cmd
}

func (o options) validate() error {
	if o.sessions <= 0 || o.concurrency <= 0 || o.ops <= 0 {
		return errors.New("sessions, concurrency and ops must be > 0")
	}
	if o.unknownPct < 0 || o.missingPct < 0 || o.unknownPct+o.missingPct > 100 {
		return errors.New("unknown-pct and missing-pct must be >= 0 and sum to at most 100")
	}
	return nil
}

func run(ctx context.Context, out io.Writer, o options) error {
	if ctx == nil {
		ctx = context.Background()
	}

	store, cleanup, err := openStore(out, o.store, o.redisAddr)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer cleanup()

	engine, err := goSession.New[user, user](store).
		WithCookieName(cookieName).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	fmt.Fprintf(out, "seeding %d sessions...\n", o.sessions)
	seedStart := time.Now()
	ids := make([]string, o.sessions)
	for i := range ids {
		if ids[i], err = engine.CreateSession(ctx, user{ID: i, Name: fmt.Sprintf("user-%d", i)}); err != nil {
			return fmt.Errorf("seed session %d: %w", i, err)
		}
	}
	fmt.Fprintf(out, "seeded in %s\n", time.Since(seedStart).Round(time.Millisecond))

	mix := requestMix{ids: ids, unknownPct: o.unknownPct, missingPct: o.missingPct}
	handler := engine.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := goSession.OutcomeFromContext[user](r.Context()); !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	intercept := runPhase(o.ops, o.concurrency, func(i int, r *rand.Rand) error {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, mix.request(r))
		if rec.Code != http.StatusNoContent {
			return fmt.Errorf("status %d", rec.Code)
		}
		return nil
	})
	churn := runPhase(o.ops, o.concurrency, func(i int, _ *rand.Rand) error {
		id, err := engine.CreateSession(ctx, user{ID: -i - 1, Name: "churn"})
		if err != nil {
			return err
		}
		return engine.DeleteSession(ctx, id)
	})

	fmt.Fprintln(out, "---- results ----")
	intercept.print(out, "intercept")
	churn.print(out, "create+delete")

	snap := engine.MetricsSnapshot()
	fmt.Fprintf(out, "outcomes: have_session=%d no_session=%d no_cookie=%d verify_errors=%d\n",
		snap.Counters[goSession.MetricOutcomeHaveSession],
		snap.Counters[goSession.MetricOutcomeNoSession],
		snap.Counters[goSession.MetricOutcomeNoCookie],
		snap.Counters[goSession.MetricVerifyError],
	)
	return nil
}

func openStore(out io.Writer, kind, addr string) (goSession.Store[user, user], func(), error) {
	switch kind {
	case "memory":
		return session.NewMemoryStore(session.Identity[user]), func() {}, nil
	case "redis":
	default:
		return nil, nil, fmt.Errorf("unknown store %q", kind)
	}

	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	var closers []func()
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start miniredis: %w", err)
		}
		closers = append(closers, mr.Close)
		addr = mr.Addr()
		fmt.Fprintf(out, "using miniredis at %s\n", addr)
	} else {
		fmt.Fprintf(out, "using redis at %s\n", addr)
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	cleanup := func() {
		_ = client.Close()
		for _, c := range closers {
			c()
		}
	}
	return session.NewRedisStore(client, session.Identity[user], session.WithTTL(time.Hour)), cleanup, nil
}

// requestMix decides what each synthetic request presents.
type requestMix struct {
	ids        []string
	unknownPct int
	missingPct int
}

func (m requestMix) request(r *rand.Rand) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/session/data", nil)
	roll := r.Intn(100)
	switch {
	case roll < m.missingPct:
	case roll < m.missingPct+m.unknownPct:
		req.AddCookie(&http.Cookie{Name: cookieName, Value: fmt.Sprintf("unknown-%d", r.Int63())})
	default:
		req.AddCookie(&http.Cookie{Name: cookieName, Value: m.ids[r.Intn(len(m.ids))]})
	}
	return req
}

// runPhase calls op ops times across concurrency workers. Each worker keeps
// its own samples; they are merged once the phase ends.
func runPhase(ops, concurrency int, op func(i int, r *rand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    atomic.Int64
		failures  atomic.Int64
		perWorker = make([][]time.Duration, concurrency)
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(w)*7919))
			samples := make([]time.Duration, 0, ops/concurrency+1)
			for {
				i := int(cursor.Add(1)) - 1
				if i >= ops {
					break
				}
				t0 := time.Now()
				if err := op(i, r); err != nil {
					failures.Add(1)
				}
				samples = append(samples, time.Since(t0))
			}
			perWorker[w] = samples
		}(w)
	}
	wg.Wait()
	total := time.Since(start)

	all := make([]time.Duration, 0, ops)
	for _, s := range perWorker {
		all = append(all, s...)
	}
	return newPhaseStats(total, all, failures.Load())
}

type phaseStats struct {
	total         time.Duration
	ops           int
	failures      int64
	p50, p95, p99 time.Duration
	opsPerSec     float64
}

func newPhaseStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	s := phaseStats{total: total, ops: len(samples), failures: failures}
	if len(samples) == 0 {
		return s
	}
	slices.Sort(samples)
	s.p50 = percentile(samples, 50)
	s.p95 = percentile(samples, 95)
	s.p99 = percentile(samples, 99)
	s.opsPerSec = float64(len(samples)) / total.Seconds()
	return s
}

// percentile expects sorted samples.
func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	p = min(max(p, 0), 100)
	return samples[(len(samples)-1)*p/100]
}

func (s phaseStats) print(out io.Writer, name string) {
	fmt.Fprintf(out, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name, s.ops, s.failures,
		s.total.Round(time.Millisecond), s.opsPerSec,
		s.p50.Round(time.Microsecond), s.p95.Round(time.Microsecond), s.p99.Round(time.Microsecond),
	)
}
