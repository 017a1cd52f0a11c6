// Command benchmark validates one token repeatedly on every CPU and
// prints the rate:
//
//	benchmark [-n 100000] ISSUER TOKEN
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/spf13/pflag"

	"github.com/kbukum/kcoidc/bridge"
	"github.com/kbukum/kcoidc/host"
	"github.com/kbukum/kcoidc/observability"
)

type options struct {
	issuer  string
	token   string
	count   int
	workers int
	timeout time.Duration
}

type stats struct {
	success int
	failed  int
}

func main() {
	opts := options{workers: runtime.NumCPU()}
	flags := pflag.NewFlagSet("benchmark", pflag.ExitOnError)
	flags.IntVarP(&opts.count, "count", "n", 100000, "validations per worker")
	flags.DurationVar(&opts.timeout, "timeout", 10*time.Second, "how long to wait for the issuer")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: benchmark [flags] ISSUER TOKEN\n")
		flags.PrintDefaults()
	}
	_ = flags.Parse(os.Args[1:])
	opts.issuer, opts.token = flags.Arg(0), flags.Arg(1)

	if _, err := run(os.Stdout, opts); err != nil {
		fmt.Fprintf(os.Stderr, "> Error: %v\n", err)
		os.Exit(1)
	}
}

func run(out io.Writer, opts options) (stats, error) {
	settings, err := bridge.LoadSettings()
	if err != nil {
		settings = bridge.DefaultSettings()
	}
	settings.InsecureSkipVerify = true

	providers, err := observability.Setup(context.Background(), settings.Metrics)
	if err != nil {
		fmt.Fprintf(out, "> Warn : metrics export disabled: %v\n", err)
	}
	defer func() { _ = providers.Shutdown(context.Background()) }()
	if settings.MaxConcurrent < opts.workers {
		settings.MaxConcurrent = opts.workers
	}

	c, err := bridge.New(bridge.WithSettings(settings))
	if err != nil {
		return stats{}, err
	}
	m := host.NewModule(c, nil)
	ctx := context.Background()
	defer func() { _ = m.Close(ctx) }()

	if err := m.Initialize(opts.issuer); err != nil {
		return stats{}, err
	}
	if err := m.WaitUntilReady(opts.timeout); err != nil {
		return stats{}, err
	}

	fmt.Fprintf(out, "> Info : using %d workers with %d runs per worker\n", opts.workers, opts.count)
	var mu sync.Mutex
	var total stats
	var wg sync.WaitGroup
	begin := time.Now()
	for id := 1; id <= opts.workers; id++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			s := worker(ctx, m, opts)
			mu.Lock()
			fmt.Fprintf(out, "> Info : worker %d done:%d failed:%d\n", id, s.success, s.failed)
			total.success += s.success
			total.failed += s.failed
			mu.Unlock()
		}(id)
	}
	wg.Wait()
	spent := time.Since(begin)

	fmt.Fprintf(out, "> Time : %fs\n", spent.Seconds())
	fmt.Fprintf(out, "> Rate : %f ops\n", float64(opts.count*opts.workers)/spent.Seconds())
	return total, nil
}

func worker(ctx context.Context, m *host.Module, opts options) stats {
	var s stats
	for i := 0; i < opts.count; i++ {
		if _, err := m.ValidateTokenAsync(ctx, opts.token).Await(ctx); err != nil {
			s.failed++
			continue
		}
		s.success++
	}
	return s
}
