package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/erasrts/server/internal/command"
	"github.com/erasrts/server/internal/config"
	"github.com/erasrts/server/internal/core/ecs"
	"github.com/erasrts/server/internal/data"
	"github.com/erasrts/server/internal/match"
	"github.com/erasrts/server/internal/persist"
	"github.com/erasrts/server/internal/scripting"
	"github.com/erasrts/server/internal/system"
	"github.com/erasrts/server/internal/world"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run hosts N lockstep peers in one process, each driving its own full
// simulation with a scripted bot for its nation. Peers exchange command
// batches and checksums in memory; a desync here means a determinism bug,
// not a network fault, which is exactly what this harness exists to catch.
func run() error {
	cfgPath := "config/match.toml"
	if p := os.Getenv("ERAS_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	content, err := data.LoadContent(cfg.Match.DataDir)
	if err != nil {
		return fmt.Errorf("load content: %w", err)
	}
	log.Info("content loaded",
		zap.Int("nations", content.Nations.Count()),
		zap.Int("unit_types", content.Units.Count()),
		zap.Int("tech_nodes", content.Tech.Count()),
		zap.Int("phases", content.Phases.Count()))

	var scripts *scripting.Engine
	if cfg.Match.ScriptsDir != "" {
		scripts, err = scripting.NewEngine(cfg.Match.ScriptsDir, log)
		if err != nil {
			return fmt.Errorf("lua engine: %w", err)
		}
		defer scripts.Close()
	}

	var archive system.Archive
	var diagRepo *persist.DiagRepo
	matchID := uuid.New()
	if cfg.Diagnostics.DSN != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		db, err := persist.NewDB(ctx, cfg.Diagnostics, log)
		cancel()
		if err != nil {
			return fmt.Errorf("diagnostics db: %w", err)
		}
		defer db.Close()
		migCtx, migCancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = persist.RunMigrations(migCtx, db.Pool)
		migCancel()
		if err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		diagRepo = persist.NewDiagRepo(db, matchID)
		archive = diagRepo
		log.Info("diagnostics archive enabled", zap.String("match", matchID.String()))
	}

	peers := make([]int32, cfg.Lockstep.Peers)
	for i := range peers {
		peers[i] = int32(i + 1)
	}

	sessions := make([]*match.Session, len(peers))
	bots := make([]*bot, len(peers))
	for i, peer := range peers {
		s, err := match.NewSession(cfg, content, peer, peers, log, match.Options{
			Archive: archive,
			Scripts: scripts,
		})
		if err != nil {
			return fmt.Errorf("session peer %d: %w", peer, err)
		}
		defer s.Close()
		sessions[i] = s
		bots[i] = newBot(peer, cfg.Match.Seed)
	}
	log.Info("match started",
		zap.String("match", matchID.String()),
		zap.Int("peers", len(peers)),
		zap.Duration("tick_rate", cfg.Match.TickRate))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Match.TickRate)
	defer ticker.Stop()

	ctx := context.Background()
	var (
		plannedTick  = ^uint64(0) // no batches submitted yet
		stalledSince time.Time
	)
	for {
		select {
		case <-ticker.C:
			tick := sessions[0].State().Tick
			if plannedTick != tick {
				if err := submitBatches(sessions, bots, tick); err != nil {
					return err
				}
				plannedTick = tick
			}

			// Batches all live in-process, so an unresolved tick here means a
			// peer's submission genuinely failed; past the lockstep timeout
			// the configured policy takes over.
			timedOut := !stalledSince.IsZero() && time.Since(stalledSince) >= cfg.Lockstep.Timeout
			advanced, done, err := stepAll(ctx, sessions, timedOut)
			if err != nil {
				return err
			}
			if !advanced {
				if stalledSince.IsZero() {
					stalledSince = time.Now()
				}
				continue
			}
			stalledSince = time.Time{}

			if done || (cfg.Match.MaxTicks > 0 && tick+1 >= cfg.Match.MaxTicks) {
				reportResult(ctx, sessions[0], diagRepo, log)
				return nil
			}
		case sig := <-shutdownCh:
			log.Info("shutdown signal", zap.String("signal", sig.String()))
			reportResult(ctx, sessions[0], diagRepo, log)
			return nil
		}
	}
}

// submitBatches collects each bot's orders for the tick and delivers the
// batch to every session, as the transport would.
func submitBatches(sessions []*match.Session, bots []*bot, tick uint64) error {
	for i, s := range sessions {
		batch := command.Batch{
			Peer:     s.Peer,
			Tick:     tick,
			Commands: bots[i].plan(s.State(), tick),
		}
		for _, dst := range sessions {
			if dst.Sync().Dropped(s.Peer) {
				continue
			}
			if err := dst.Sync().SubmitBatch(batch); err != nil {
				return fmt.Errorf("submit batch: %w", err)
			}
		}
	}
	return nil
}

// stepAll steps every peer once, then cross-checks checksums. Returns false
// for advanced while the tick is still awaiting batches.
func stepAll(ctx context.Context, sessions []*match.Session, timedOut bool) (advanced, done bool, err error) {
	tick := sessions[0].State().Tick

	for _, s := range sessions {
		ok, err := s.Step(ctx, timedOut)
		if err != nil {
			return false, false, err
		}
		if !ok {
			return false, false, nil
		}
	}

	for _, s := range sessions {
		for _, other := range sessions {
			if other.Peer == s.Peer {
				continue
			}
			if err := s.OnPeerChecksum(tick, other.Peer, other.LastChecksum()); err != nil {
				return false, false, err
			}
		}
	}

	return true, sessions[0].Finished(), nil
}

func reportResult(ctx context.Context, s *match.Session, repo *persist.DiagRepo, log *zap.Logger) {
	winner := int32(-1)
	s.State().EachNation(func(n *world.Nation) {
		if n.Alive {
			winner = n.ID
		}
	})
	log.Info("match over",
		zap.Uint64("tick", s.State().Tick),
		zap.Int32("winner", winner),
		zap.Int("nations_alive", s.State().AliveNations()))
	if repo != nil {
		saveCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := repo.SaveResult(saveCtx, s.State().Tick, winner); err != nil {
			log.Warn("save match result", zap.Error(err))
		}
	}
}

// bot issues a simple build-up script for one nation. Its randomness is
// seeded per peer, but since each peer's bot commands enter the canonical
// stream, every session still applies the identical set.
type bot struct {
	nation int32
	rng    *rand.Rand
}

func newBot(nation int32, seed int64) *bot {
	return &bot{
		nation: nation,
		rng:    rand.New(rand.NewSource(seed + int64(nation))),
	}
}

func (b *bot) plan(s *world.State, tick uint64) []command.Command {
	if tick%5 != 0 {
		return nil
	}
	n := s.Nation(b.nation)
	if n == nil || !n.Alive {
		return nil
	}

	var cmds []command.Command
	if tick%25 == 0 && n.Stocks[world.Gold] >= 100 {
		cmds = append(cmds, command.Command{
			Nation: b.nation, Tick: tick, Kind: command.KindTrain, TypeID: "worker",
		})
	}
	if idle := b.idleWorker(s); idle != 0 {
		if node := b.nearestNode(s, idle); node != 0 {
			cmds = append(cmds, command.Command{
				Nation: b.nation, Tick: tick, Kind: command.KindGather,
				Actor: idle, Target: node,
			})
		}
	}
	if b.rng.Intn(4) == 0 && n.Researching == "" {
		if node := b.nextTech(s, n); node != "" {
			cmds = append(cmds, command.Command{
				Nation: b.nation, Tick: tick, Kind: command.KindResearch, TechID: node,
			})
		}
	}
	return cmds
}

func (b *bot) idleWorker(s *world.State) ecs.EntityID {
	var found ecs.EntityID
	s.ECS.Each(func(id ecs.EntityID) {
		if found != 0 {
			return
		}
		a, ok := s.Actors.Get(id)
		if !ok || a.Owner != b.nation {
			return
		}
		tmpl := s.Content.Units.Get(a.TypeID)
		if tmpl == nil || (tmpl.GoldPerTick == 0 && tmpl.LumberPerTick == 0) {
			return
		}
		if act, ok := s.Actions.Get(id); ok && act.State == world.ActionIdle {
			found = id
		}
	})
	return found
}

func (b *bot) nearestNode(s *world.State, from ecs.EntityID) ecs.EntityID {
	var best ecs.EntityID
	bestDist := int32(1 << 30)
	s.ECS.Each(func(id ecs.EntityID) {
		node, ok := s.Nodes.Get(id)
		if !ok || (!node.Infinite && node.Remaining == 0) {
			return
		}
		if node.Kind == data.NodeArcana {
			return
		}
		if d, ok := s.Chebyshev(from, id); ok && d < bestDist {
			bestDist = d
			best = id
		}
	})
	return best
}

func (b *bot) nextTech(s *world.State, n *world.Nation) string {
	for _, id := range s.Content.Tech.IDs() {
		node := s.Content.Tech.Get(id)
		if node.Nation != 0 && node.Nation != n.ID {
			continue
		}
		if n.HasUnlocked(id) {
			continue
		}
		ok := true
		for _, req := range node.Requires {
			if !n.HasUnlocked(req) {
				ok = false
				break
			}
		}
		if ok && n.CanAfford(node.Cost) {
			return id
		}
	}
	return ""
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
