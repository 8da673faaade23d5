// file: internal/memory/guard.go
// version: 1.0.0
// guid: 4b26da6c-c7c7-4034-a3c8-a8d6827655c1

package memory

import (
	"fmt"
	"os"
	"runtime"

	"github.com/djordjedjukic/ravendb/internal/units"
)

const (
	// EnvDisableEarlyOOM unconditionally turns the pre-allocation check off.
	EnvDisableEarlyOOM = "MEMORYD_DISABLE_EARLY_OOM"
	// EnvEnableEarlyOOM forces the check on where it defaults to off.
	EnvEnableEarlyOOM = "MEMORYD_ENABLE_EARLY_OOM"

	// DefaultMinimumFreeFraction is the safety margin used when a caller
	// has no specific requirement.
	DefaultMinimumFreeFraction = 0.05
)

// InsufficientMemoryError is returned when the guard refuses an
// allocation. It carries the figures behind the decision so callers can
// log a precise diagnostic.
type InsufficientMemoryError struct {
	CommitCharge  units.Size
	Committable   units.Size
	Used          units.Size
	TotalPhysical units.Size
	FreeFraction  float64
}

func (e *InsufficientMemoryError) Error() string {
	return fmt.Sprintf(
		"insufficient memory to continue: commit charge %s of %s committable, %s used of %s physical (required free fraction %.2f)",
		e.CommitCharge, e.Committable, e.Used, e.TotalPhysical, e.FreeFraction)
}

// Guard is the early-out-of-memory pre-check consulted before risky
// allocations such as spawning a worker. Whether it is active is
// decided once at construction from the run mode, platform, and the
// two environment toggles; the decision is not re-evaluated.
type Guard struct {
	monitor *Monitor
	enabled bool
}

// NewGuard builds a guard over the given monitor. serverMode is true
// for a long-running server process, where the check defaults to on;
// embedded use defaults to off.
func NewGuard(monitor *Monitor, serverMode bool) *Guard {
	return &Guard{
		monitor: monitor,
		enabled: guardEnabled(serverMode, runtime.GOOS),
	}
}

// guardEnabled resolves the activation policy. The disable toggle wins
// over everything; the force toggle wins over platform defaults. The
// check stays off on macOS because the commit figures there are
// approximations.
func guardEnabled(serverMode bool, goos string) bool {
	if os.Getenv(EnvDisableEarlyOOM) != "" {
		return false
	}
	if os.Getenv(EnvEnableEarlyOOM) != "" {
		return true
	}
	if goos == "darwin" {
		return false
	}
	return serverMode
}

// Enabled reports whether the guard performs real checks.
func (g *Guard) Enabled() bool {
	return g.enabled
}

// CheckBeforeAllocation decides whether a risky allocation may proceed
// while keeping at least minimumFreeFraction of the committable bound
// uncommitted. A nil return means go ahead; the only error returned is
// *InsufficientMemoryError.
//
// When the commit charge already exceeds the committable bound, commit
// accounting cannot be trusted (routine on shared or containerized
// hosts) and the decision falls back to physical-memory terms.
func (g *Guard) CheckBeforeAllocation(minimumFreeFraction float64) error {
	if !g.enabled {
		return nil
	}

	info := g.monitor.GetMemoryInfo()
	commitCharge := info.CurrentCommitCharge
	committable := info.TotalCommittableMemory
	total := info.TotalPhysicalMemory
	used := total.Sub(info.AvailableMemory)

	if commitCharge.Greater(committable) {
		overage := total.Scale(minimumFreeFraction).Add(used)
		if overage.GreaterOrEqual(total) {
			return &InsufficientMemoryError{
				CommitCharge:  commitCharge,
				Committable:   committable,
				Used:          used,
				TotalPhysical: total,
				FreeFraction:  minimumFreeFraction,
			}
		}
		return nil
	}

	overage := committable.Scale(minimumFreeFraction).Add(commitCharge)
	if overage.GreaterOrEqual(committable) {
		return &InsufficientMemoryError{
			CommitCharge:  commitCharge,
			Committable:   committable,
			Used:          used,
			TotalPhysical: total,
			FreeFraction:  minimumFreeFraction,
		}
	}
	return nil
}
