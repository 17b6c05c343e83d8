package bridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/aepbridge/internal/dyn"
)

// VersionMethod is the method every extension module publishes.
const VersionMethod = "extensionVersion"

// ExtensionVersions calls extensionVersion on every module concurrently and
// returns module → version. A version that is not valid SemVer fails the
// whole call.
func (b *Bridge) ExtensionVersions(ctx context.Context) (map[string]string, error) {
	g, ctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	out := make(map[string]string)
	for _, name := range b.Modules() {
		g.Go(func() error {
			v, err := b.Call(ctx, name, VersionMethod, dyn.List{})
			if err != nil {
				return err
			}
			s, ok := v.(dyn.String)
			if !ok {
				return fmt.Errorf("%s.%s: expected string, got %s", name, VersionMethod, dyn.KindName(v))
			}
			if _, err := semver.NewVersion(string(s)); err != nil {
				return fmt.Errorf("%s.%s: invalid version %q: %w", name, VersionMethod, s, err)
			}
			mu.Lock()
			out[name] = string(s)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
