package ports

import "context"

// Enumerator discovers candidate items for a single item. It is treated as a
// pure function that may fail or time out per call.
type Enumerator interface {
	Enumerate(ctx context.Context, item string) ([]string, error)
}
