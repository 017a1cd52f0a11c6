package testutil

import (
	"context"
	"testing"

	"github.com/kbukum/kcoidc/component"
)

// Fixture is a test dependency with a lifecycle and state that tests can
// rewind.
type Fixture interface {
	component.Component

	// Reset returns the fixture to the state it was started with.
	Reset(ctx context.Context) error
	// Snapshot captures the current state for a later Restore.
	Snapshot(ctx context.Context) (any, error)
	Restore(ctx context.Context, snapshot any) error
}

// Start starts f and stops it when the test ends.
//
//	iss := testutil.NewIssuer(t) // started with Start
func Start(t testing.TB, f Fixture) {
	t.Helper()
	ctx := context.Background()
	if err := f.Start(ctx); err != nil {
		t.Fatalf("testutil: start %s: %v", f.Name(), err)
	}
	t.Cleanup(func() {
		if err := f.Stop(ctx); err != nil {
			t.Errorf("testutil: stop %s: %v", f.Name(), err)
		}
	})
}

// Reset calls f.Reset and fails the test on error.
func Reset(t testing.TB, f Fixture) {
	t.Helper()
	if err := f.Reset(context.Background()); err != nil {
		t.Fatalf("testutil: reset %s: %v", f.Name(), err)
	}
}

// Snapshot calls f.Snapshot and fails the test on error.
func Snapshot(t testing.TB, f Fixture) any {
	t.Helper()
	snap, err := f.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("testutil: snapshot %s: %v", f.Name(), err)
	}
	return snap
}

// Restore calls f.Restore and fails the test on error.
func Restore(t testing.TB, f Fixture, snapshot any) {
	t.Helper()
	if err := f.Restore(context.Background(), snapshot); err != nil {
		t.Fatalf("testutil: restore %s: %v", f.Name(), err)
	}
}
