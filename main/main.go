package main

import (
	"log"
	"log/slog"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/rawbytedev/owned"
	"github.com/rawbytedev/owned/pkg/exclusive"
	"github.com/rawbytedev/owned/pkg/lifetime"
	"github.com/rawbytedev/owned/pkg/shared"
)

type block struct {
	data  []byte
	freed bool
}

func (b *block) Destroy() {
	b.data = nil
	b.freed = true
}

// Churns both pointer families under a tracker, writes a heap profile and
// prints the tracker report.
func main() {
	f, err := os.Create("mem.prof")
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	runtime.MemProfileRate = 1

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	tr := lifetime.NewTracker("churn", lifetime.WithLogger(logger))

	pool := make([]*shared.Ptr[block], 8)
	for i := range pool {
		pool[i] = owned.Shared(block{data: make([]byte, 256)}, shared.WithObserver(tr))
	}
	var scratch exclusive.Ptr[block]
	for i := 0; i < 10000; i++ {
		pool[i%len(pool)].Assign(pool[(i*7)%len(pool)])
		if i%5 == 0 {
			pool[i%len(pool)].Reset(&block{data: make([]byte, 256)})
		}
		scratch.MoveFrom(owned.Exclusive(block{data: make([]byte, 64)}, exclusive.WithObserver(tr)))
	}
	scratch.Destroy()
	for _, p := range pool {
		p.Destroy()
	}

	if err := pprof.WriteHeapProfile(f); err != nil {
		log.Fatal(err)
	}
	if err := tr.WriteYAML(os.Stdout); err != nil {
		log.Fatal(err)
	}
	if err := tr.Check(); err != nil {
		log.Fatal(err)
	}
}
