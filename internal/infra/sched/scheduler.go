// Package sched runs the bot's periodic jobs.
package sched

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/userbotindo/anjani/internal/config"
	"github.com/userbotindo/anjani/internal/infra/logging"
	"github.com/userbotindo/anjani/internal/infra/mongo"
)

// Scheduler owns the cron runner. Jobs get a bounded context so a stuck
// database cannot wedge the runner.
type Scheduler struct {
	cron *cron.Cron
	log  *zerolog.Logger

	cfg     config.SchedulerConfig
	chats   mongo.ChatRepository
	users   mongo.UserRepository
	session mongo.SessionRepository

	startedAt func() time.Time
}

func New(cfg config.SchedulerConfig, chats mongo.ChatRepository, users mongo.UserRepository, session mongo.SessionRepository, startedAt func() time.Time, base *zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		log:       logging.Component(base, "sched"),
		cfg:       cfg,
		chats:     chats,
		users:     users,
		session:   session,
		startedAt: startedAt,
	}
}

// Start registers the jobs and launches the runner.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.SessionCheckpointCron, s.wrap("session_checkpoint", s.checkpoint)); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.cfg.StatsSnapshotCron, s.wrap("stats_snapshot", s.snapshot)); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info().
		Str("checkpoint", s.cfg.SessionCheckpointCron).
		Str("snapshot", s.cfg.StatsSnapshotCron).
		Msg("scheduler started")
	return nil
}

// Stop halts the runner and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) wrap(name string, job func(ctx context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		start := time.Now()
		if err := job(ctx); err != nil {
			s.log.Error().Err(err).Str("job", name).Msg("job failed")
			return
		}
		s.log.Debug().Str("job", name).Dur("took", time.Since(start)).Msg("job finished")
	}
}

// checkpoint persists a liveness marker so a restarted instance can tell how
// long it was down.
func (s *Scheduler) checkpoint(ctx context.Context) error {
	return s.session.SaveCheckpoint(ctx, bson.M{
		"uptime_seconds": int64(time.Since(s.startedAt()).Seconds()),
	})
}

// snapshot logs the corpus size once per period.
func (s *Scheduler) snapshot(ctx context.Context) error {
	chats, err := s.chats.Count(ctx)
	if err != nil {
		return err
	}
	users, err := s.users.Count(ctx)
	if err != nil {
		return err
	}
	s.log.Info().Int64("chats", chats).Int64("users", users).Msg("stats snapshot")
	return nil
}
