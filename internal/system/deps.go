package system

import (
	"go.uber.org/zap"

	"github.com/erasrts/server/internal/command"
	"github.com/erasrts/server/internal/config"
	"github.com/erasrts/server/internal/core/event"
	"github.com/erasrts/server/internal/scripting"
	"github.com/erasrts/server/internal/world"
)

// DiagSink receives per-command rejection diagnostics. The persist system
// implements it when an archive is configured; a nil sink drops them after
// logging.
type DiagSink interface {
	RecordRejected(command.Rejected)
}

// Injector feeds director-generated spawn commands into the local
// synchronizer for the NEXT tick. Every peer injects the identical set, so
// the canonical command stream stays in lockstep without exchanging AI state.
type Injector interface {
	InjectLocal(tick uint64, cmds []command.Command)
}

// Deps bundles what every pipeline system needs, mirroring a single shared
// wiring struct rather than long constructor parameter lists.
type Deps struct {
	World     *world.State
	Cfg       *config.Config
	Bus       *event.Bus
	Log       *zap.Logger
	Scripting *scripting.Engine // nil = built-in threat policy
	Diag      DiagSink          // may be nil
	Injector  Injector
}
