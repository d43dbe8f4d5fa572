package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// Triggerable allows workers to be triggered manually
type Triggerable interface {
	Trigger()
}

type job struct {
	name   string
	spec   string
	worker Triggerable
}

// Scheduler fires background workers on cron schedules
type Scheduler struct {
	cron *cron.Cron
	jobs []job
}

func New() *Scheduler {
	return &Scheduler{cron: cron.New()}
}

// Register adds a worker to trigger on spec. An empty spec disables it.
func (s *Scheduler) Register(name, spec string, worker Triggerable) {
	s.jobs = append(s.jobs, job{name: name, spec: spec, worker: worker})
}

func (s *Scheduler) Start(ctx context.Context) error {
	scheduled := 0
	for _, j := range s.jobs {
		if j.spec == "" {
			log.Printf("No schedule for %s, it will only run when triggered", j.name)
			continue
		}
		worker := j.worker
		if _, err := s.cron.AddFunc(j.spec, worker.Trigger); err != nil {
			return fmt.Errorf("invalid cron expression for %s: %w", j.name, err)
		}
		log.Printf("Scheduled %s with cron: %s", j.name, j.spec)
		scheduled++
	}
	if scheduled > 0 {
		s.cron.Start()
	}

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// TriggerNow fires every registered worker once
func (s *Scheduler) TriggerNow() {
	for _, j := range s.jobs {
		j.worker.Trigger()
	}
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
