package vector

import "fmt"

// IndexError wraps vector backend failures.
type IndexError struct {
	Op  string
	Err error
}

func (e IndexError) Error() string {
	return fmt.Sprintf("vector index %s failed: %v", e.Op, e.Err)
}

func (e IndexError) Unwrap() error {
	return e.Err
}

// DimensionError indicates an embedding whose dimensionality does not
// match the index.
type DimensionError struct {
	Want int
	Got  int
}

func (e DimensionError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch: want %d, got %d", e.Want, e.Got)
}
