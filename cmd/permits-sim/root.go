package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Menelaii/permits"
)

type simOptions struct {
	Capacity uint64
	Window   time.Duration
	Workers  int
	Requests int
	Work     time.Duration
	Verbose  bool
}

func newRootCmd() *cobra.Command {
	opts := simOptions{}

	cmd := &cobra.Command{
		Use:   "permits-sim",
		Short: "Simulate rate limited submissions",
		Long: `permits-sim runs a pool of workers submitting simulated requests
through a fixed-window rate limiter and prints how many requests
were admitted in each window.

Example:
  permits-sim --capacity 10 --window 1s --workers 8 --requests 45 --work 150ms`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runSimulation(ctx, cmd.OutOrStdout(), opts)
		},
	}

	flags := cmd.Flags()
	flags.Uint64Var(&opts.Capacity, "capacity", 10, "permits per window")
	flags.DurationVar(&opts.Window, "window", time.Second, "window period")
	flags.IntVar(&opts.Workers, "workers", 4, "concurrent submitters")
	flags.IntVar(&opts.Requests, "requests", 25, "total submissions")
	flags.DurationVar(&opts.Work, "work", 50*time.Millisecond, "simulated duration of a single submission")
	flags.BoolVar(&opts.Verbose, "verbose", false, "enable limiter logging")

	return cmd
}

func runSimulation(ctx context.Context, out io.Writer, opts simOptions) error {
	if opts.Workers <= 0 {
		return fmt.Errorf("workers should be greater than 0 (given: %d)", opts.Workers)
	}
	if opts.Requests < 0 {
		return fmt.Errorf("requests should not be negative (given: %d)", opts.Requests)
	}

	config := &permits.Config{
		Capacity:     opts.Capacity,
		WindowPeriod: opts.Window,
	}
	if !opts.Verbose {
		config.Logger = permits.NewNoOpLogger()
	}

	limiter, err := permits.New(config)
	if err != nil {
		return fmt.Errorf("could not build rate limiter: %w", err)
	}
	defer limiter.Shutdown()

	startedAt := time.Now()

	jobs := make(chan int)
	go func() {
		defer close(jobs)
		for i := 0; i < opts.Requests; i++ {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	var (
		mu        sync.Mutex
		perWindow = map[uint64]int{}
		failed    int
		wg        sync.WaitGroup
	)

	for w := 0; w < opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				err := limiter.Do(ctx, func(ctx context.Context) error {
					window := limiter.Stats().Windows

					mu.Lock()
					perWindow[window]++
					mu.Unlock()

					select {
					case <-time.After(opts.Work):
						return nil
					case <-ctx.Done():
						return ctx.Err()
					}
				})
				if err != nil {
					mu.Lock()
					failed++
					mu.Unlock()
				}
			}
		}()
	}

	wg.Wait()

	windows := make([]uint64, 0, len(perWindow))
	admitted := 0
	for window, count := range perWindow {
		windows = append(windows, window)
		admitted += count
	}
	sort.Slice(windows, func(i, j int) bool { return windows[i] < windows[j] })

	for _, window := range windows {
		fmt.Fprintf(out, "window %d: %d admitted\n", window, perWindow[window])
	}

	stats := limiter.Stats()
	fmt.Fprintf(out, "admitted %d, failed %d in %v\n", admitted, failed, time.Since(startedAt).Round(time.Millisecond))
	fmt.Fprintf(out, "capacity %d, windows %d, released %d, cancelled %d\n",
		stats.Capacity, stats.Windows, stats.Released, stats.Cancelled)

	return nil
}
