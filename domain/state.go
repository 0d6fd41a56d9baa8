package domain

// LifecycleState identifies where the gateway is in its install/activate
// lifecycle. The state is persisted so a restarted process resumes from the
// correct point instead of re-warming an already-committed generation.
type LifecycleState string

const (
	// StateUninstalled means no generation for the configured version has
	// been committed. The prior active generation, if any, keeps serving.
	StateUninstalled LifecycleState = "uninstalled"

	// StateInstalling means the manifest pre-warm for a new generation is in
	// progress.
	StateInstalling LifecycleState = "installing"

	// StateInstalled means the new generation holds a complete asset set and
	// is waiting for activation.
	StateInstalled LifecycleState = "installed"

	// StateActivating means superseded generations are being removed and the
	// new generation is taking over.
	StateActivating LifecycleState = "activating"

	// StateActive means the current generation is the sole server of static
	// content.
	StateActive LifecycleState = "active"
)

// StateRepository defines the interface for persisting gateway lifecycle
// state and the name of the generation currently committed as active.
type StateRepository interface {
	// GetLifecycleState returns the persisted lifecycle state.
	GetLifecycleState() (LifecycleState, error)

	// SetLifecycleState persists the lifecycle state.
	SetLifecycleState(state LifecycleState) error

	// GetCurrentGeneration returns the name of the generation committed as
	// active, or an empty string when none has been activated yet.
	GetCurrentGeneration() (string, error)

	// SetCurrentGeneration persists the name of the active generation.
	SetCurrentGeneration(name string) error
}
