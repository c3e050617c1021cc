package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM for tunable policy execution.
// Single-goroutine access only (tick pipeline). The VM holds no game state:
// every call passes a full context in and takes a scalar out, so identical
// scripts on every peer produce identical decisions.
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts from the given
// directory tree.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}
	if err := e.loadDir(filepath.Join(scriptsDir, "director")); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load director scripts: %w", err)
	}
	return e, nil
}

func (e *Engine) Close() {
	e.vm.Close()
}

// loadDir loads all .lua files in a directory; a missing directory is fine.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// ThreatContext holds pre-packed inputs for the threat-score policy.
// Aggregates only — the script never sees live entities.
type ThreatContext struct {
	Tick          uint64
	NationsAlive  int64
	TotalStock    int64 // summed gold+lumber across living nations
	TotalTechTier int64 // summed highest tiers
	TotalUnits    int64
	TotalBuild    int64 // buildings standing (territory proxy)
	ZombieKills   int64
}

// ThreatScore calls the Lua threat_score function. The second return is
// false when no script provides one; callers fall back to the built-in
// formula so tests and script-less deployments stay hermetic.
func (e *Engine) ThreatScore(ctx ThreatContext) (int64, bool) {
	fn := e.vm.GetGlobal("threat_score")
	if fn == lua.LNil {
		return 0, false
	}

	tbl := e.vm.NewTable()
	tbl.RawSetString("tick", lua.LNumber(ctx.Tick))
	tbl.RawSetString("nations_alive", lua.LNumber(ctx.NationsAlive))
	tbl.RawSetString("total_stock", lua.LNumber(ctx.TotalStock))
	tbl.RawSetString("total_tech_tier", lua.LNumber(ctx.TotalTechTier))
	tbl.RawSetString("total_units", lua.LNumber(ctx.TotalUnits))
	tbl.RawSetString("total_buildings", lua.LNumber(ctx.TotalBuild))
	tbl.RawSetString("zombie_kills", lua.LNumber(ctx.ZombieKills))

	if err := e.vm.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, tbl); err != nil {
		e.log.Error("lua threat_score failed", zap.Error(err))
		return 0, false
	}
	ret := e.vm.Get(-1)
	e.vm.Pop(1)

	num, ok := ret.(lua.LNumber)
	if !ok {
		e.log.Error("lua threat_score returned non-number")
		return 0, false
	}
	// Floor to int64: peers must agree, so float results never reach state.
	return int64(num), true
}
