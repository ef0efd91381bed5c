package updater

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"feeScope/internal/controller"
	"feeScope/internal/model"
)

type memSink struct {
	records []model.FeeUpdateRecord
}

func (s *memSink) PutUpdateBatch(updates []model.FeeUpdateRecord) error {
	s.records = append(s.records, updates...)
	return nil
}

const testPool = "0x1111111111111111111111111111111111111111"

func testRecord() model.PoolParamsRecord {
	return model.PoolParamsRecord{
		ChainID:         56,
		PoolAddress:     testPool,
		MinFee:          100,
		MaxFee:          10000,
		BaseMaxFeeDelta: 200,
		LookbackDays:    30,
		MinPeriodSecs:   3600,
		RatioTolerance:  "50000000000000000",
		LinearSlope:     "100000000000000000",
		MaxCurrentRatio: "100000000000000000000",
		LowerSideFactor: "1000000000000000000",
		UpperSideFactor: "1000000000000000000",
		MaxAdjRate:      "1000000000000000000",
		InitialFee:      5000,
		InitialTarget:   "1000000000000000000",
	}
}

func writeObservations(t *testing.T, path string, observations []model.RatioObservation) {
	t.Helper()
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create input: %v", err)
	}
	defer file.Close()
	for _, obs := range observations {
		line, err := json.Marshal(obs)
		if err != nil {
			t.Fatalf("marshal observation: %v", err)
		}
		if _, err := file.Write(append(line, '\n')); err != nil {
			t.Fatalf("write observation: %v", err)
		}
	}
}

func TestUpdaterReplay(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "observations.jsonl")
	statePath := filepath.Join(dir, "state.json")

	writeObservations(t, input, []model.RatioObservation{
		{ChainID: 56, PoolAddress: testPool, Ratio: "1200000000000000000", Timestamp: 10000},
		// Inside the 3600s cooldown, skipped.
		{ChainID: 56, PoolAddress: testPool, Ratio: "1300000000000000000", Timestamp: 11800},
		// Unknown pool, skipped.
		{ChainID: 56, PoolAddress: "0x2222222222222222222222222222222222222222", Ratio: "1000000000000000000", Timestamp: 12000},
		// Unparsable ratio, counted as failed.
		{ChainID: 56, PoolAddress: testPool, Ratio: "bogus", Timestamp: 13000},
		{ChainID: 56, PoolAddress: testPool, Ratio: "1300000000000000000", Timestamp: 13600},
	})

	clock := controller.NewManualClock(0)
	registry, err := BuildRegistry([]model.PoolParamsRecord{testRecord()}, nil, controller.DefaultBounds(), clock, nil)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}

	sink := &memSink{}
	u := NewUpdater(Config{
		ChainID:    56,
		BatchSize:  2,
		StateStore: &FileStateStore{Path: statePath},
	}, registry, clock, nil, sink, nil)

	if err := u.Run(context.Background(), input); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(sink.records) != 2 {
		t.Fatalf("committed updates: got %d, want 2", len(sink.records))
	}

	first := sink.records[0]
	if first.OldFee != 5000 || first.NewFee <= 5000 {
		t.Fatalf("first update fees: old=%d new=%d", first.OldFee, first.NewFee)
	}
	if !first.SideUpper || first.Streak != 1 {
		t.Fatalf("first update oob: side_upper=%v streak=%d", first.SideUpper, first.Streak)
	}
	if first.Timestamp != 10000 {
		t.Fatalf("first update ts: %d", first.Timestamp)
	}

	second := sink.records[1]
	if second.OldFee != first.NewFee {
		t.Fatalf("updates not chained: %d != %d", second.OldFee, first.NewFee)
	}
	if second.Streak != 2 {
		t.Fatalf("repeat upper hit should grow streak: %d", second.Streak)
	}

	ts, ok, err := (&FileStateStore{Path: statePath}).Load(context.Background())
	if err != nil || !ok {
		t.Fatalf("load state: %v %v", ok, err)
	}
	if ts != 13600 {
		t.Fatalf("last processed ts: %d", ts)
	}
}

func TestUpdaterResumesFromState(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "observations.jsonl")
	statePath := filepath.Join(dir, "state.json")

	writeObservations(t, input, []model.RatioObservation{
		{ChainID: 56, PoolAddress: testPool, Ratio: "1200000000000000000", Timestamp: 10000},
		{ChainID: 56, PoolAddress: testPool, Ratio: "1200000000000000000", Timestamp: 20000},
	})

	if err := (&FileStateStore{Path: statePath}).Save(context.Background(), 10000); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	clock := controller.NewManualClock(0)
	registry, err := BuildRegistry([]model.PoolParamsRecord{testRecord()}, nil, controller.DefaultBounds(), clock, nil)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}

	sink := &memSink{}
	u := NewUpdater(Config{
		ChainID:    56,
		StateStore: &FileStateStore{Path: statePath},
	}, registry, clock, nil, sink, nil)

	if err := u.Run(context.Background(), input); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(sink.records) != 1 {
		t.Fatalf("committed updates: got %d, want 1", len(sink.records))
	}
	if sink.records[0].Timestamp != 20000 {
		t.Fatalf("resumed from wrong point: ts %d", sink.records[0].Timestamp)
	}
}

func TestBuildRegistryRestoresSnapshots(t *testing.T) {
	clock := controller.NewManualClock(0)
	states := []model.PoolStateRecord{{
		ChainID:      56,
		PoolAddress:  testPool,
		Version:      controller.StateVersion,
		Fee:          7777,
		TargetRatio:  "1100000000000000000",
		SideUpper:    true,
		Streak:       3,
		LastUpdateTS: 9000,
		Active:       true,
	}}

	registry, err := BuildRegistry([]model.PoolParamsRecord{testRecord()}, states, controller.DefaultBounds(), clock, nil)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}

	eng, ok := registry.Get(common.HexToAddress(testPool))
	if !ok {
		t.Fatalf("pool missing from registry")
	}
	if eng.CurrentFee() != 7777 {
		t.Fatalf("restored fee: %d", eng.CurrentFee())
	}
	if got := eng.OOB(); !got.LastSideWasUpper || got.ConsecutiveHits != 3 {
		t.Fatalf("restored oob: %+v", got)
	}
	if eng.NextEligible() != 9000+3600 {
		t.Fatalf("restored next eligible: %d", eng.NextEligible())
	}
}

func TestBuildRegistryRejectsBadParams(t *testing.T) {
	rec := testRecord()
	rec.MinFee = 500
	rec.MaxFee = 100

	_, err := BuildRegistry([]model.PoolParamsRecord{rec}, nil, controller.DefaultBounds(), controller.NewManualClock(0), nil)
	if err == nil {
		t.Fatalf("expected error for inverted fee range")
	}
}
