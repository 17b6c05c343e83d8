package call

import "context"

// Do starts a callback-shaped vendor operation and waits for its single
// result. The pending result is tracked in g so teardown can release it.
//
//	status, err := call.Do(ctx, m.pending, m.sdk.GetPrivacyStatus)
func Do[T any](ctx context.Context, g *Group, start func(done func(T, error))) (T, error) {
	r := Track(g, NewResult[T]())
	start(r.Callback())
	return r.Await(ctx)
}
