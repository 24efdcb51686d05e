package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/swarmchat-backend/internal/logger"
	"github.com/yungbote/swarmchat-backend/internal/repos"
	"github.com/yungbote/swarmchat-backend/internal/types"
	"github.com/yungbote/swarmchat-backend/internal/utils"
)

const maxInsightsPerDelivery = 3

// Engine runs the periodic coordination cycle across every active session.
// Exactly one process instance drives cycles at a time: each Engine competes
// for the leader lock and only the holder executes work. Followers keep
// retrying so leadership fails over when the holder dies.
type Engine struct {
	log         *logger.Logger
	db          *gorm.DB
	lock        *LeaderLock
	sessions    repos.SessionRepo
	subgroups   repos.SubgroupRepo
	taxonomy    *Taxonomy
	surrogate   *Surrogate
	contributor *Contributor
	instanceID  string
	interval    time.Duration
	concurrency int

	mu       sync.Mutex
	isLeader bool

	cancel context.CancelFunc
	done   chan struct{}
}

func NewEngine(
	log *logger.Logger,
	db *gorm.DB,
	rdb *goredis.Client,
	sessions repos.SessionRepo,
	subgroups repos.SubgroupRepo,
	taxonomy *Taxonomy,
	surrogate *Surrogate,
	contributor *Contributor,
) *Engine {
	interval := time.Duration(utils.GetEnvAsInt("CME_INTERVAL_SECONDS", 20, log)) * time.Second
	concurrency := utils.GetEnvAsInt("CME_CONCURRENCY", 4, log)
	if concurrency < 1 {
		concurrency = 1
	}
	return &Engine{
		log:         log.With("service", "Engine"),
		db:          db,
		lock:        NewLeaderLock(log, rdb, interval),
		sessions:    sessions,
		subgroups:   subgroups,
		taxonomy:    taxonomy,
		surrogate:   surrogate,
		contributor: contributor,
		instanceID:  uuid.New().String(),
		interval:    interval,
		concurrency: concurrency,
	}
}

// Start launches the cycle loop in a background goroutine.
func (e *Engine) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	go e.run(runCtx)
	e.log.Info("engine started", "instanceID", e.instanceID, "interval", e.interval, "concurrency", e.concurrency)
}

// Stop cancels the loop and waits for it to wind down. The lock is released
// on the way out if this instance holds it.
func (e *Engine) Stop() {
	if e.cancel == nil {
		return
	}
	e.cancel()
	<-e.done
}

// IsLeader reports whether this instance currently drives cycles.
func (e *Engine) IsLeader() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isLeader
}

func (e *Engine) setLeader(v bool) {
	e.mu.Lock()
	e.isLeader = v
	e.mu.Unlock()
}

func (e *Engine) run(ctx context.Context) {
	defer close(e.done)
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if e.IsLeader() {
				releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := e.lock.Release(releaseCtx, e.instanceID); err != nil {
					e.log.Warn("lock release on shutdown failed", "error", err)
				}
				cancel()
				e.setLeader(false)
			}
			e.log.Info("engine stopped", "instanceID", e.instanceID)
			return
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

func (e *Engine) tick(ctx context.Context) {
	if !e.IsLeader() {
		ok, err := e.lock.Acquire(ctx, e.instanceID)
		if err != nil {
			e.log.Warn("lock acquire failed", "error", err)
			return
		}
		if !ok {
			return
		}
		e.setLeader(true)
		e.log.Info("became leader", "instanceID", e.instanceID)
	} else {
		ok, err := e.lock.Renew(ctx, e.instanceID)
		if err != nil {
			e.log.Warn("lock renew failed", "error", err)
			e.setLeader(false)
			return
		}
		if !ok {
			e.log.Warn("lost leadership", "instanceID", e.instanceID)
			e.setLeader(false)
			return
		}
	}
	e.runCycle(ctx)
}

// runCycle processes every active session. A failing session never blocks
// the others.
func (e *Engine) runCycle(ctx context.Context) {
	started := time.Now()
	active, err := e.sessions.ListByStatus(ctx, nil, types.SessionStatusActive)
	if err != nil {
		e.log.Error("list active sessions failed", "error", err)
		return
	}
	for _, session := range active {
		if err := e.runSessionCycle(ctx, session); err != nil {
			e.log.Error("session cycle failed", "sessionID", session.ID, "error", err)
		}
	}
	if len(active) > 0 {
		e.log.Info("cycle complete", "sessions", len(active), "elapsed", time.Since(started))
	}
}

func (e *Engine) runSessionCycle(ctx context.Context, session *types.Session) error {
	subgroups, err := e.subgroups.ListBySession(ctx, nil, session.ID)
	if err != nil {
		return fmt.Errorf("list subgroups: %w", err)
	}
	// Relay needs at least two subgroups to exchange anything.
	if len(subgroups) < 2 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for _, subgroup := range subgroups {
		sg := subgroup
		g.Go(func() error {
			e.runSubgroupCycle(gctx, session, sg)
			return nil
		})
	}
	return g.Wait()
}

// runSubgroupCycle runs extract, rank and deliver for one subgroup. Each
// stage gets its own transaction so a late failure cannot roll back the
// ideas already extracted.
func (e *Engine) runSubgroupCycle(ctx context.Context, session *types.Session, subgroup *types.Subgroup) {
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := e.taxonomy.ExtractForSubgroup(ctx, tx, session.ID, subgroup.ID)
		return err
	})
	if err != nil {
		e.log.Error("extraction failed", "subgroup", subgroup.Label, "error", err)
		return
	}

	var insights []string
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ranked, err := e.taxonomy.ForeignIdeas(ctx, tx, session.ID, subgroup.ID)
		if err != nil {
			return err
		}
		for i, idea := range ranked {
			if i >= maxInsightsPerDelivery {
				break
			}
			insights = append(insights, idea.Summary)
		}
		return nil
	})
	if err != nil {
		e.log.Error("ranking failed", "subgroup", subgroup.Label, "error", err)
		return
	}

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(insights) > 0 {
			return e.surrogate.Deliver(ctx, tx, session, subgroup, insights)
		}
		return e.contributor.Deliver(ctx, tx, session, subgroup)
	})
	if err != nil {
		e.log.Error("delivery failed", "subgroup", subgroup.Label, "error", err)
	}
}
