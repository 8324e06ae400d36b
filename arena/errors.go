package arena

import "errors"

// ErrOutOfMemory is returned (and recorded via LastError) when the OS
// refuses to grow the arena, a requested size cannot be represented as a
// block size without overflow, or Calloc's n*size multiplication
// overflows.
var ErrOutOfMemory = errors.New("arena: out of memory")

// ErrInvalidArgument is recorded via LastError by Free and Realloc (which
// then returns nil) when ptr can't
// possibly be a pointer this arena handed out, because it doesn't sit
// on the alignUnit boundary every live user pointer is guaranteed to
// land on.
var ErrInvalidArgument = errors.New("arena: invalid argument")
