package lifeline

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/bloodbridge/lifeline/core"
	"github.com/bloodbridge/lifeline/domain"
)

const (
	// RuntimeGeneration is the generation holding API snapshots. Its lifecycle
	// is independent of asset versioning and it survives activation sweeps.
	RuntimeGeneration = "runtime"

	staticGenerationPrefix = "static-"
)

// ClientClaimer is implemented by the tracking listener. Claiming makes the
// count of live client connections visible to the activation step; requests
// on those connections route through the new generation from that point on.
type ClientClaimer interface {
	Claim() int
}

// Lifecycle governs installation (pre-warming a new generation with the
// manifest), activation (deleting superseded generations), and version
// transition. It is the sole writer of the generation-name set during
// activation; no two versions' static assets are ever served interleaved.
type Lifecycle struct {
	Store    *Store                 // Cache store for generation management and pre-warming
	Repo     domain.StateRepository // Durable lifecycle state
	Version  string                 // Build version tag, injected at process start
	Manifest []string               // Static asset URLs pre-warmed at install
	Claimer  ClientClaimer          // Optional; set when the gateway listener is up
	Log      LogFunc

	mu      sync.Mutex
	state   domain.LifecycleState
	current string // Generation committed as active, "" before first activation
}

// NewLifecycle creates the lifecycle manager, resuming from the persisted
// state when it belongs to the configured version. A persisted state for a
// different version means this version is not yet installed; the prior
// generation keeps serving until activation.
func NewLifecycle(store *Store, repo domain.StateRepository, version string, manifest []string, log LogFunc) (*Lifecycle, error) {
	lc := &Lifecycle{
		Store:    store,
		Repo:     repo,
		Version:  version,
		Manifest: manifest,
		Log:      log,
		state:    domain.StateUninstalled,
	}

	current, err := repo.GetCurrentGeneration()
	if err != nil {
		return nil, fmt.Errorf("loading current generation : %w", err)
	}
	lc.current = current

	persisted, err := repo.GetLifecycleState()
	if err != nil {
		return nil, fmt.Errorf("loading lifecycle state : %w", err)
	}
	if current == lc.StaticGeneration() {
		lc.state = persisted
	}
	return lc, nil
}

// StaticGeneration returns the name of the static generation for the
// configured version.
func (lc *Lifecycle) StaticGeneration() string {
	return staticGenerationPrefix + lc.Version
}

// CurrentGeneration returns the generation static requests should address:
// the committed one when a version has been activated, otherwise this
// version's generation so write-through population lands in the right place.
func (lc *Lifecycle) CurrentGeneration() string {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	if lc.current != "" {
		return lc.current
	}
	return lc.StaticGeneration()
}

// State returns the current lifecycle state.
func (lc *Lifecycle) State() domain.LifecycleState {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.state
}

// Install opens the generation for the configured version and pre-warms it
// with the manifest. A failed pre-warm keeps this version uninstalled; the
// previously active generation, if any, keeps serving unaffected, and the
// next install attempt retries from scratch.
func (lc *Lifecycle) Install(ctx context.Context) error {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if err := lc.setState(domain.StateInstalling); err != nil {
		return err
	}

	generation := lc.StaticGeneration()
	if err := lc.Store.AddAll(ctx, generation, lc.Manifest); err != nil {
		if stateErr := lc.setState(domain.StateUninstalled); stateErr != nil {
			lc.Log("ERROR", "resetting lifecycle state failed: "+stateErr.Error())
		}
		lc.Log("WARN", fmt.Sprintf("install for %s failed: %s", generation, err.Error()))
		return fmt.Errorf("installing generation %s : %w", generation, err)
	}

	if err := lc.setState(domain.StateInstalled); err != nil {
		return err
	}
	lc.Log("INFO", "generation installed", core.LogWithContext(map[string]any{"generation": generation}))
	return nil
}

// Activate commits the installed generation as the sole server of static
// content. Only an installed generation may activate; an active one may
// re-activate to sweep again. All generations other than the current static
// one and the runtime generation are deleted; a failed deletion is logged and
// retried on a later activation rather than blocking the transition. Finally
// any live client connections are claimed.
func (lc *Lifecycle) Activate(ctx context.Context) error {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	switch lc.state {
	case domain.StateInstalled, domain.StateActivating, domain.StateActive:
		// Installed may commit, activating may resume after a crash, and
		// active may re-activate to sweep again.
	default:
		return fmt.Errorf("activating generation %s from state %s : generation is not installed", lc.StaticGeneration(), lc.state)
	}

	if err := lc.setState(domain.StateActivating); err != nil {
		return err
	}

	generation := lc.StaticGeneration()
	retained := []string{generation, RuntimeGeneration}

	if _, err := lc.Store.Open(RuntimeGeneration); err != nil {
		lc.Log("WARN", "opening runtime generation failed: "+err.Error())
	}

	names, err := lc.Store.ListGenerationNames()
	if err != nil {
		return fmt.Errorf("listing generations during activation : %w", err)
	}
	for _, name := range names {
		if slices.Contains(retained, name) {
			continue
		}
		if err := lc.Store.DeleteGeneration(name); err != nil {
			// Stale generations accumulate and are swept on a later activation.
			lc.Log("WARN", "deleting superseded generation failed: "+err.Error(),
				core.LogWithContext(map[string]any{"generation": name}))
			continue
		}
		lc.Log("INFO", "deleted superseded generation", core.LogWithContext(map[string]any{"generation": name}))
	}

	if err := lc.Repo.SetCurrentGeneration(generation); err != nil {
		return fmt.Errorf("committing current generation %s : %w", generation, err)
	}
	lc.current = generation

	if err := lc.setState(domain.StateActive); err != nil {
		return err
	}

	if lc.Claimer != nil {
		claimed := lc.Claimer.Claim()
		lc.Log("INFO", fmt.Sprintf("claimed %d client connections", claimed))
	}
	return nil
}

// SkipWaiting demands immediate takeover, activating without waiting for the
// natural handoff. It is refused like Activate when no generation for this
// version is installed.
func (lc *Lifecycle) SkipWaiting(ctx context.Context) error {
	return lc.Activate(ctx)
}

// setState persists and records a lifecycle transition. Callers hold lc.mu.
func (lc *Lifecycle) setState(state domain.LifecycleState) error {
	if err := lc.Repo.SetLifecycleState(state); err != nil {
		return fmt.Errorf("persisting lifecycle state %s : %w", state, err)
	}
	lc.state = state
	return nil
}
