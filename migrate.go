package formsaver

import (
	"errors"
	"fmt"
)

// MaxMigrationSteps bounds the chain walk so cyclic migration graphs terminate.
const MaxMigrationSteps = 50

// MigrateFunc transforms stored data from one version to the next.
type MigrateFunc func(data any) (any, error)

// Migration is a forward edge from one payload version to another.
type Migration struct {
	From    Version
	To      Version
	Migrate MigrateFunc
}

// Migrate walks steps from the payload version toward target. An unset
// payload version counts as 0. Each round applies the first step whose From
// equals the current version; the walk stops when the target is reached, no
// step matches, or MaxMigrationSteps rounds ran. Stopping early is not an
// error. A step returning an error aborts with a *MigrationError.
func Migrate(p Payload, target Version, steps []Migration) (Payload, error) {
	if target.IsZero() {
		return p, nil
	}
	current := p.Version.orZero()
	for guard := 0; current != target && guard < MaxMigrationSteps; guard++ {
		step, ok := findMigration(steps, current)
		if !ok {
			break
		}
		if step.Migrate == nil {
			return p, &MigrationError{From: step.From, To: step.To, Err: errors.New("migrate func is nil")}
		}
		data, err := step.Migrate(p.Data)
		if err != nil {
			return p, &MigrationError{From: step.From, To: step.To, Err: err}
		}
		p.Data = data
		current = step.To
		p.Version = current
	}
	return p, nil
}

func findMigration(steps []Migration, from Version) (Migration, bool) {
	for _, step := range steps {
		if step.From == from {
			return step, true
		}
	}
	return Migration{}, false
}

// ValidateMigrations reports steps that Migrate would silently skip or
// shadow: duplicate From versions, unset versions and nil funcs.
func ValidateMigrations(steps []Migration) error {
	var errs []error
	seen := make(map[Version]int, len(steps))
	for i, step := range steps {
		if step.From.IsZero() || step.To.IsZero() {
			errs = append(errs, fmt.Errorf("formsaver: migration %d: from and to versions are required", i))
		}
		if step.Migrate == nil {
			errs = append(errs, fmt.Errorf("formsaver: migration %d (%s -> %s): migrate func is nil", i, step.From, step.To))
		}
		if first, ok := seen[step.From]; ok {
			errs = append(errs, fmt.Errorf("%w: steps %d and %d both start at %s", ErrDuplicateMigration, first, i, step.From))
			continue
		}
		seen[step.From] = i
	}
	return errors.Join(errs...)
}
