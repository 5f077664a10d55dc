package apitests

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pfrest/api-contract-tests/descriptor"
	"github.com/pfrest/api-contract-tests/framework"
	"github.com/pfrest/api-contract-tests/harness"
)

const defaultParallelism = 4

// SuiteConfig controls one run of the suite.
type SuiteConfig struct {
	// Harness configures sessions against the target system.
	Harness harness.Config

	// Parallel caps the number of descriptor workers running at once. Each
	// worker owns its sessions, so the cap exists to protect a single shared
	// target instance, not the harness.
	Parallel int

	// RunTimeout bounds the whole run. Work still pending when it expires is
	// recorded as an error with a timeout detail; results already recorded are
	// preserved.
	RunTimeout time.Duration

	// DecoyPrivileges are candidates for the near-miss privilege check: the
	// first one not contained in a method's declared set is used. Testing one
	// representative insufficient privilege instead of the whole catalog is a
	// documented approximation.
	DecoyPrivileges []string
}

var defaultDecoyPrivileges = []string{"page-dashboard-all", "page-system-usermanager"}

// RunTestSuite executes every descriptor in the registry: privilege matrix
// first, then the functional sequence, per declared method. Descriptors run
// concurrently up to the configured cap; descriptors sharing a serial group
// run in declaration order on a single worker.
func RunTestSuite(
	ctx context.Context,
	cfg SuiteConfig,
	registry *descriptor.Registry,
	filter framework.Filter,
	testLogger framework.TestLogger,
) framework.Results {
	if cfg.Parallel <= 0 {
		cfg.Parallel = defaultParallelism
	}
	if len(cfg.DecoyPrivileges) == 0 {
		cfg.DecoyPrivileges = defaultDecoyPrivileges
	}
	if cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.RunTimeout)
		defer cancel()
	}

	var mu sync.Mutex
	all := framework.Results{StartTime: time.Now()}

	schedule := func(descriptors []*descriptor.Descriptor) func() error {
		return func() error {
			w := newWorker(cfg)
			res := framework.Run(filter, testLogger, func(c *framework.Context) {
				defer w.close()
				for _, d := range descriptors {
					w.runDescriptor(ctx, c, d)
				}
			})
			mu.Lock()
			all.Merge(res)
			mu.Unlock()
			return nil
		}
	}

	var g errgroup.Group
	g.SetLimit(cfg.Parallel)

	groups, independent := registry.SerialGroups()
	for _, name := range registry.GroupNames() {
		g.Go(schedule(groups[name]))
	}
	for _, d := range independent {
		g.Go(schedule([]*descriptor.Descriptor{d}))
	}
	_ = g.Wait()

	all.EndTime = time.Now()
	return all
}
