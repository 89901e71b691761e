package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/eugener/reel/internal/testutil"
)

func TestTiered_BackfillsLocal(t *testing.T) {
	t.Parallel()
	local, remote := testutil.NewFakeCache(), testutil.NewFakeCache()
	tiered := NewTiered(local, remote, 30*time.Second)
	remote.Put("k", []byte(`"v"`), time.Hour)

	val, ok, err := tiered.Get(t.Context(), "k")
	if err != nil || !ok || string(val) != `"v"` {
		t.Fatalf("Get = %q, %v, %v", val, ok, err)
	}
	e, ok := local.Entry("k")
	if !ok {
		t.Fatal("remote hit not copied to local")
	}
	if e.TTL != 30*time.Second {
		t.Errorf("local ttl = %v, want 30s", e.TTL)
	}

	remote.FailGets(errors.New("down"))
	if _, ok, err := tiered.Get(t.Context(), "k"); !ok || err != nil {
		t.Errorf("local copy not served: ok %v err %v", ok, err)
	}
}

func TestTiered_SetWritesBoth(t *testing.T) {
	t.Parallel()
	local, remote := testutil.NewFakeCache(), testutil.NewFakeCache()
	tiered := NewTiered(local, remote, 30*time.Second)

	if err := tiered.Set(t.Context(), "k", []byte("1"), 5*time.Second); err != nil {
		t.Fatal(err)
	}
	if e, _ := remote.Entry("k"); e.TTL != 5*time.Second {
		t.Errorf("remote ttl = %v, want 5s", e.TTL)
	}
	if e, _ := local.Entry("k"); e.TTL != 5*time.Second {
		t.Errorf("local ttl = %v, want min(5s, 30s)", e.TTL)
	}
}

func TestTiered_RemoteFailures(t *testing.T) {
	t.Parallel()
	local, remote := testutil.NewFakeCache(), testutil.NewFakeCache()
	tiered := NewTiered(local, remote, time.Minute)
	boom := errors.New("down")
	remote.FailGets(boom)
	remote.FailSets(boom)

	if _, _, err := tiered.Get(t.Context(), "k"); !errors.Is(err, boom) {
		t.Errorf("Get err = %v, want %v", err, boom)
	}
	if err := tiered.Set(t.Context(), "k", []byte("1"), time.Minute); !errors.Is(err, boom) {
		t.Errorf("Set err = %v, want %v", err, boom)
	}
	if local.Len() != 0 {
		t.Error("local written after remote write failed")
	}
}
