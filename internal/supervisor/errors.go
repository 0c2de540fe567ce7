package supervisor

import "errors"

// SpawnError means the backend process could not be launched at all.
type SpawnError struct {
	Cmd string
	Err error
}

func (e *SpawnError) Error() string { return "spawn backend (" + e.Cmd + "): " + e.Err.Error() }

func (e *SpawnError) Unwrap() error { return e.Err }

func spawnError(cmd string, err error) error { return &SpawnError{Cmd: cmd, Err: err} }

// IsSpawnError reports whether err came from a failed launch.
func IsSpawnError(err error) bool {
	var se *SpawnError
	return errors.As(err, &se)
}
