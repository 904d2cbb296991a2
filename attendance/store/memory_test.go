package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/attendance/store"
	"github.com/warp/attendance-engine/audit"
)

var day = attendance.NewDate(2025, time.March, 10)

func record(employeeID string) attendance.NewRecord {
	return attendance.NewRecord{
		EmployeeID: employeeID,
		Date:       day,
		Status:     attendance.StatusPresent,
		Source:     attendance.SourceHR,
		MarkedBy:   "hr-1",
	}
}

func TestMemory_InsertRespectsUniqueness(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	first, err := mem.InsertRecord(ctx, record("emp-1"))
	if err != nil || first == nil {
		t.Fatalf("first insert failed: %v %v", first, err)
	}

	second, err := mem.InsertRecord(ctx, record("emp-1"))
	if err != nil {
		t.Fatalf("second insert errored instead of returning nil: %v", err)
	}
	if second != nil {
		t.Fatal("second insert for the same pair returned a record")
	}
}

func TestMemory_WithTx_RollsBackOnError(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	boom := errors.New("boom")
	err := mem.WithTx(ctx, func(tx attendance.Store) error {
		rec, err := tx.InsertRecord(ctx, record("emp-1"))
		if err != nil || rec == nil {
			t.Fatalf("insert inside tx failed: %v %v", rec, err)
		}
		if err := tx.AppendAudit(ctx, audit.NewEntry(
			"req", audit.EntityAttendance, rec.ID, audit.ActionMark,
			nil, rec.Snapshot(), "hr-1", "")); err != nil {
			t.Fatalf("audit append failed: %v", err)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if rec, _ := mem.RecordByEmployeeDate(ctx, "emp-1", day); rec != nil {
		t.Error("record survived rollback")
	}
	if len(mem.AuditEntries()) != 0 {
		t.Error("audit entry survived rollback")
	}
}

func TestMemory_WithTx_CommitsOnSuccess(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	err := mem.WithTx(ctx, func(tx attendance.Store) error {
		_, err := tx.InsertRecord(ctx, record("emp-1"))
		return err
	})
	if err != nil {
		t.Fatalf("tx failed: %v", err)
	}

	rec, _ := mem.RecordByEmployeeDate(ctx, "emp-1", day)
	if rec == nil {
		t.Fatal("record missing after commit")
	}
	if rec.Version != 1 {
		t.Errorf("expected version 1, got %d", rec.Version)
	}
}

func TestMemory_UpdateBumpsVersion(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	rec, err := mem.InsertRecord(ctx, record("emp-1"))
	if err != nil || rec == nil {
		t.Fatalf("insert failed: %v %v", rec, err)
	}

	updated, err := mem.UpdateRecord(ctx, rec.ID, attendance.RecordUpdate{
		Status: attendance.StatusLeave, Source: attendance.SourceSystem,
		Note: "sync", MarkedBy: "system",
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Version != 2 || updated.Status != attendance.StatusLeave {
		t.Errorf("unexpected update result: %+v", updated)
	}
}

func TestMemory_ConcurrentReadersAndWriters(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	// Readers race transactional writers on distinct dates; run with -race.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		d := day.AddDays(i)
		wg.Add(2)
		go func() {
			defer wg.Done()
			err := mem.WithTx(ctx, func(tx attendance.Store) error {
				_, err := tx.InsertRecord(ctx, attendance.NewRecord{
					EmployeeID: "emp-1", Date: d,
					Status: attendance.StatusPresent, Source: attendance.SourceHR,
					MarkedBy: "hr-1",
				})
				return err
			})
			if err != nil {
				t.Errorf("tx failed: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := mem.ListRecords(ctx, day, day.AddDays(31), ""); err != nil {
				t.Errorf("list failed: %v", err)
			}
			if _, err := mem.RecordByEmployeeDate(ctx, "emp-1", d); err != nil {
				t.Errorf("lookup failed: %v", err)
			}
		}()
	}
	wg.Wait()

	recs, err := mem.ListRecords(ctx, day, day.AddDays(31), "")
	if err != nil {
		t.Fatalf("final list failed: %v", err)
	}
	if len(recs) != 8 {
		t.Errorf("expected 8 records, got %d", len(recs))
	}
}

func TestMemory_TodayIsPinnable(t *testing.T) {
	mem := store.NewMemory()
	mem.SetToday(day)

	got, err := mem.Today(context.Background())
	if err != nil {
		t.Fatalf("today failed: %v", err)
	}
	if !got.Equal(day) {
		t.Errorf("expected %s, got %s", day, got)
	}
}
