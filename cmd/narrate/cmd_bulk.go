package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/narrative-engine/internal/bulk"
	"github.com/danielpatrickdp/narrative-engine/internal/content"
	"github.com/danielpatrickdp/narrative-engine/internal/metrics"
	"github.com/danielpatrickdp/narrative-engine/internal/orchestrator"
)

var (
	bulkWorkers   int
	bulkKeepGoing bool
	bulkRepeat    int
)

var bulkCmd = &cobra.Command{
	Use:   "bulk <events.json>",
	Short: "Narrate every event independently on parallel engines",
	Long: `Each event (repeated --repeat times) runs on its own engine seeded with
base seed + job index, so output depends only on the seed and job order, not
on the number of workers.`,
	Args: cobra.ExactArgs(1),
	RunE: runBulk,
}

func init() {
	f := bulkCmd.Flags()
	f.IntVarP(&bulkWorkers, "workers", "w", runtime.NumCPU(), "parallel engines")
	f.BoolVar(&bulkKeepGoing, "keep-going", false, "report per-job errors instead of aborting")
	f.IntVar(&bulkRepeat, "repeat", 1, "narrate each event this many times")
}

func runBulk(cmd *cobra.Command, args []string) error {
	events, err := loadEvents(args[0])
	if err != nil {
		return err
	}
	c, err := content.Load(cfg, logger)
	if err != nil {
		return err
	}

	world := events.World()
	var jobs []bulk.Job
	for r := 0; r < bulkRepeat; r++ {
		for _, ev := range events.Events {
			jobs = append(jobs, bulk.Job{Event: ev, World: world})
		}
	}

	m := metrics.New()
	factory := func(seed uint64) (*orchestrator.Engine, error) {
		return c.NewEngine(seed, orchestrator.WithObserver(m)), nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	results, err := bulk.Run(ctx, factory, jobs, bulk.Options{
		BaseSeed:  cfg.Seed,
		Workers:   bulkWorkers,
		KeepGoing: bulkKeepGoing,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	failed, retries := 0, 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Printf("%4d seed=%d error: %v\n", r.Index, r.Seed, r.Err)
			continue
		}
		retries += r.Retries
		fmt.Printf("%4d seed=%d %s\n", r.Index, r.Seed, r.Text)
	}
	elapsed := time.Since(start)
	fmt.Printf("\n%d jobs, %d failed, %d retries in %s\n", len(results), failed, retries, elapsed.Round(time.Millisecond))
	logger.Info("bulk finished",
		zap.Int("jobs", len(results)),
		zap.Int("workers", bulkWorkers),
		zap.Duration("elapsed", elapsed))
	return nil
}
