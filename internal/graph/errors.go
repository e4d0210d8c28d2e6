package graph

import "errors"

// ErrNotFound is returned when a requested node does not exist in the graph.
var ErrNotFound = errors.New("not found")
