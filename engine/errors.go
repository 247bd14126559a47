package engine

import "errors"

// ErrPayloadTooLarge is the cause attached to a write that returns false
// because the record does not fit in the smaller of the two banks (§4.5
// step 1). The public Write signature mirrors the source's bool return;
// this sentinel lets callers that want a reason use
// errors.Is(e.LastWriteErr(), ErrPayloadTooLarge) instead of just a bare
// false.
var ErrPayloadTooLarge = errors.New("engine: payload exceeds bank capacity")

// ErrUnrecoverable marks a debug-logged structural-corruption recovery.
// It is never returned to callers — reset() silently absorbs it per §7 —
// but it is the error value logged when that happens.
var ErrUnrecoverable = errors.New("engine: unrecoverable flash content, resetting to default")
