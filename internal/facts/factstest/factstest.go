// Package factstest provides a compiled fixture world for tests.
package factstest

import (
	_ "embed"
	"encoding/json"
	"testing"
	"time"

	"github.com/jward/worldlens/internal/facts"
)

// TavernFile is the file name the fixture spans refer to.
const TavernFile = "tavern.urd.md"

//go:embed tavern.urd.md
var TavernSource string

//go:embed tavern.json
var TavernResultJSON []byte

// TavernResult decodes a fresh copy of the fixture compile result.
func TavernResult(t testing.TB) *facts.Result {
	t.Helper()
	res, err := facts.DecodeResult(TavernResultJSON)
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return res
}

// Tavern returns the fixture as a published snapshot.
func Tavern(t testing.TB) *facts.Snapshot {
	t.Helper()
	snap, dropped, err := facts.NewSnapshot(1, TavernResult(t), time.Unix(0, 0).UTC())
	if err != nil {
		t.Fatalf("build fixture snapshot: %v", err)
	}
	if dropped != 0 {
		t.Fatalf("fixture has %d dangling indices", dropped)
	}
	return snap
}

// ResultJSON marshals res for engines that speak JSON.
func ResultJSON(t testing.TB, res *facts.Result) []byte {
	t.Helper()
	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	return data
}
