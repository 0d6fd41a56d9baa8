package db

import (
	"fmt"

	"github.com/bloodbridge/lifeline/domain"
)

var _ domain.StateRepository = (*Repository)(nil)

// GetLifecycleState implements the domain.StateRepository interface.
func (repo *Repository) GetLifecycleState() (domain.LifecycleState, error) {
	var state string
	query := `SELECT lifecycle_state FROM app LIMIT 1`

	err := repo.dbConn.Get(&state, query)
	if err != nil {
		return "", fmt.Errorf("getting lifecycle state : %w", err)
	}
	return domain.LifecycleState(state), nil
}

// SetLifecycleState implements the domain.StateRepository interface.
func (repo *Repository) SetLifecycleState(state domain.LifecycleState) error {
	query := `UPDATE app SET lifecycle_state = ?`
	_, err := repo.dbConn.Exec(query, string(state))
	if err != nil {
		return fmt.Errorf("setting lifecycle state %s : %w", state, err)
	}
	return nil
}

// GetCurrentGeneration implements the domain.StateRepository interface.
// It returns an empty string when no generation has been activated yet.
func (repo *Repository) GetCurrentGeneration() (string, error) {
	var name string
	query := `SELECT current_generation FROM app LIMIT 1`

	err := repo.dbConn.Get(&name, query)
	if err != nil {
		return "", fmt.Errorf("getting current generation : %w", err)
	}
	return name, nil
}

// SetCurrentGeneration implements the domain.StateRepository interface.
func (repo *Repository) SetCurrentGeneration(name string) error {
	query := `UPDATE app SET current_generation = ?`
	_, err := repo.dbConn.Exec(query, name)
	if err != nil {
		return fmt.Errorf("setting current generation %s : %w", name, err)
	}
	return nil
}
