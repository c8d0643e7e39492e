package eventstore

import "errors"

// ErrVersionConflict is returned by Append when another writer already
// claimed the (aggregateId, version) slot. Callers resolve it by reloading
// the aggregate and retrying the command.
var ErrVersionConflict = errors.New("version conflict")
