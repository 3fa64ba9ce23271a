package benchmarks

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/convergio/weave/pkg/weave/checkpoint"
)

// largeState approximates a realistic accumulated run context.
func largeState() []byte {
	state := map[string]any{
		"input":          "benchmark input payload",
		"node_1_result":  "analysis section one with a few sentences of content",
		"node_2_result":  "analysis section two with a few sentences of content",
		"node_3_result":  []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		"approved":       false,
		"iteration_meta": map[string]string{"round": "2", "owner": "reviewer"},
	}
	data, _ := json.Marshal(state)
	return data
}

// BenchmarkMemoryStore_Save measures in-memory checkpoint saves.
func BenchmarkMemoryStore_Save(b *testing.B) {
	store := checkpoint.NewMemoryStore()
	state := largeState()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := store.Save(1, 2, state); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkMemoryStore_Latest measures latest-checkpoint lookup.
func BenchmarkMemoryStore_Latest(b *testing.B) {
	store := checkpoint.NewMemoryStore()
	state := largeState()
	for i := 0; i < 100; i++ {
		if _, err := store.Save(1, i+1, state); err != nil {
			b.Fatal(err)
		}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := store.Latest(1); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkSQLiteStore_Save measures durable checkpoint saves.
func BenchmarkSQLiteStore_Save(b *testing.B) {
	store, err := checkpoint.NewSQLiteStore(filepath.Join(b.TempDir(), "bench.db"))
	if err != nil {
		b.Fatal(err)
	}
	defer store.Close()

	state := largeState()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := store.Save(1, 2, state); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkSQLiteStore_Load measures checkpoint restore reads.
func BenchmarkSQLiteStore_Load(b *testing.B) {
	store, err := checkpoint.NewSQLiteStore(filepath.Join(b.TempDir(), "bench.db"))
	if err != nil {
		b.Fatal(err)
	}
	defer store.Close()

	id, err := store.Save(1, 2, largeState())
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := store.Load(1, id); err != nil {
			b.Fatal(err)
		}
	}
}
