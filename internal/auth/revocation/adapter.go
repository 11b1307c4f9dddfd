package revocation

import "context"

// CheckerAdapter exposes a List through the middleware's revocation-checker
// interface.
type CheckerAdapter struct {
	list List
}

func NewCheckerAdapter(list List) *CheckerAdapter {
	return &CheckerAdapter{list: list}
}

func (a *CheckerAdapter) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	return a.list.IsRevoked(ctx, jti)
}
