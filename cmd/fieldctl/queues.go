package main

import (
	"fmt"
	"time"

	"github.com/hugh/fieldops/pkg/config"
	"github.com/hugh/fieldops/pkg/queue"
	"github.com/hugh/fieldops/pkg/util"
	"github.com/spf13/cobra"
)

type queueStats struct {
	Queue     string `json:"queue"`
	Size      int    `json:"size"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"`
	Processed int    `json:"processedToday"`
	Failed    int    `json:"failedToday"`
}

type queuesOutput struct {
	Queues       []queueStats `json:"queues"`
	SweepCron    string       `json:"sweepCron"`
	NextSweepRun time.Time    `json:"nextSweepRun"`
}

func newQueuesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "queues",
		Short: "Show background task queue statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			inspector := queue.NewInspector(&cfg.Redis)
			defer inspector.Close()

			names, err := inspector.Queues()
			if err != nil {
				return fmt.Errorf("listing queues: %w", err)
			}

			out := queuesOutput{Queues: []queueStats{}, SweepCron: cfg.Worker.SLASweepCron}
			for _, name := range names {
				info, err := inspector.GetQueueInfo(name)
				if err != nil {
					return fmt.Errorf("queue %s: %w", name, err)
				}
				out.Queues = append(out.Queues, queueStats{
					Queue:     info.Queue,
					Size:      info.Size,
					Pending:   info.Pending,
					Active:    info.Active,
					Scheduled: info.Scheduled,
					Retry:     info.Retry,
					Archived:  info.Archived,
					Processed: info.Processed,
					Failed:    info.Failed,
				})
			}

			loc, err := cfg.App.Location()
			if err != nil {
				return err
			}
			if next, err := util.NextCronTime(cfg.Worker.SLASweepCron, time.Now().In(loc)); err == nil {
				out.NextSweepRun = next
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
}
