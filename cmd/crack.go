package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/lanrat/passcracker"
	"github.com/lanrat/passcracker/config"
	"github.com/lanrat/passcracker/oracle"
)

func newCrackCmd() *cobra.Command {
	var (
		job    jobFlags
		search searchFlags
	)
	cmd := &cobra.Command{
		Use:   "crack [flags] FILE",
		Short: "Search the password of an encrypted archive or a password hash file",
		Long: "Search the password of FILE by testing every candidate of the configured sequence.\n\n" +
			"Exit status is 0 when the password is found, 1 when the sequence is exhausted,\n" +
			"2 when interrupted, 3 on illegal arguments and 5 on any other error.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := cmd.Flags()
			j, err := job.resolve(fs)
			if err != nil {
				return withCode(exitIllegalArgs, err)
			}
			search.apply(fs, &j.Search)
			return crack(cmd.Context(), j, args[0], search.metricsAddr)
		},
	}
	job.register(cmd.Flags())
	search.register(cmd.Flags())
	return cmd
}

func crack(ctx context.Context, job *config.Job, path, metricsAddr string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	seq, err := job.BuildSequence()
	if err != nil {
		return withCode(exitIllegalArgs, err)
	}
	log := l.With().Str(passcracker.FieldRunID, uuid.NewString()).Str(passcracker.FieldPath, path).Logger()

	o, matched, err := oracle.ForFile(ctx, path)
	switch {
	case errors.Is(err, oracle.ErrUnsupportedType):
		return withCode(exitIllegalArgs, fmt.Errorf("%w, supported: %v", err, oracle.Types()))
	case err != nil:
		return withCode(exitError, err)
	}
	log.Info().
		Str("type", matched).
		Str("sequence", seq.Policy().String()).
		Int("alphabet", seq.Alphabet().Size()).
		Str("size", seq.Size().String()).
		Str("start", seq.Start().String()).
		Msg("starting search")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	opts := passcracker.Options{
		Workers:       job.Search.Workers,
		QueueCapacity: job.Search.QueueCapacity,
		Grace:         job.Search.Grace,
		Logger:        log,
		Metrics:       passcracker.NewMetrics(reg),
	}
	if job.Search.RateLimit > 0 {
		opts.Limiter = rate.NewLimiter(rate.Limit(job.Search.RateLimit), 1)
	}
	if job.Search.ProgressInterval > 0 {
		opts.Observers = append(opts.Observers, passcracker.NewMonitor(job.Search.ProgressInterval, func(p passcracker.Progress) {
			fmt.Fprintf(os.Stderr, "\r%s", p)
		}))
	}
	var stores []passcracker.CheckpointStore
	if job.Search.Checkpoint != "" {
		stores = append(stores, passcracker.NewFileCheckpoint(job.Search.Checkpoint))
	}
	if job.Search.ProgressLog != "" {
		stores = append(stores, passcracker.NewProgressLog(job.Search.ProgressLog))
	}
	if len(stores) > 0 {
		opts.Observers = append(opts.Observers, passcracker.NewCheckpointWriter(job.Search.CheckpointInterval, opts.Metrics, stores...))
	}

	s, err := passcracker.NewSearch(seq, o, opts)
	if err != nil {
		return withCode(exitError, err)
	}

	var g errgroup.Group
	var srv *http.Server
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		srv = &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			log.Info().Str("addr", metricsAddr).Msg("serving metrics")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	result, runErr := s.Run(ctx)
	if job.Search.ProgressInterval > 0 {
		fmt.Fprintln(os.Stderr)
	}
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), job.Search.Grace)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}
	if err := g.Wait(); err != nil {
		log.Warn().Err(err).Msg("metrics server failed")
	}

	return outcome(log, result, runErr)
}

// outcome prints a found password and maps the search error to an exit
// status.
func outcome(log zerolog.Logger, result *passcracker.Result, err error) error {
	switch {
	case err == nil:
		fmt.Println(result.Password)
		return nil
	case errors.Is(err, passcracker.ErrExhausted):
		log.Info().Str("last", result.Last.String()).Msg("password not found")
		return withCode(exitNotFound, nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		log.Warn().Str("last", result.Last.String()).Msg("search interrupted, resume with --start-from")
		return withCode(exitInterrupted, nil)
	default:
		return withCode(exitError, err)
	}
}
