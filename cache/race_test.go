package cache

import (
	"math/rand"
	"runtime"
	"strconv"
	"sync"
	"testing"
	"time"
)

// A mixed workload of concurrent Put/Get/Invalidate/Contains on random keys.
// Should pass under `-race` without detector reports.
func TestRace_Basic(t *testing.T) {
	s := New[[]byte](Options[[]byte]{
		Capacity: 64,
		TTL:      time.Minute,
	})
	t.Cleanup(func() { _ = s.Close() })

	workers := 4 * runtime.GOMAXPROCS(0)
	keyspace := 256
	deadline := time.Now().Add(2 * time.Second)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(id int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)*9973))
			for time.Now().Before(deadline) {
				k := Key{Locator: "https://img.example/" + strconv.Itoa(r.Intn(keyspace)), Label: "PREVIEW"}
				switch r.Intn(100) {
				case 0, 1, 2, 3, 4: // ~5% — Invalidate
					s.Invalidate(k)
				case 5, 6, 7, 8, 9: // ~5% — Contains
					s.Contains(k)
				case 10, 11, 12, 13, 14, 15, 16, 17, 18, 19: // ~10% — Put
					s.Put(k, []byte("x"))
				default: // ~80% — Get
					s.Get(k)
				}
			}
		}(w)
	}
	wg.Wait()

	if s.Len() > 64 {
		t.Fatalf("occupancy %d exceeds capacity", s.Len())
	}
}

// The pressure monitor runs concurrently with a put/get workload.
func TestRace_Monitor(t *testing.T) {
	s := New[[]byte](Options[[]byte]{
		Capacity:        32,
		Constrained:     true,
		MonitorInterval: time.Millisecond,
	})
	t.Cleanup(func() { _ = s.Close() })

	deadline := time.Now().Add(time.Second)
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; time.Now().Before(deadline); i++ {
				k := Key{Locator: strconv.Itoa((id*7 + i) % 64), Label: "L"}
				s.Put(k, []byte("x"))
				s.Get(k)
			}
		}(w)
	}
	wg.Wait()
}
