package registry

import (
	"fmt"
	"sync"
	"testing"

	"classroom/pkg/types"
)

func TestRegistry_SeedAndSnapshot(t *testing.T) {
	r := NewRegistry()

	if r.Has("math-101") {
		t.Error("Expected no live entry before seeding")
	}

	r.Seed("math-101", false, types.StatusNotStarted)

	snap, ok := r.Snapshot("math-101")
	if !ok {
		t.Fatal("Expected live entry after seeding")
	}
	if snap.Active || snap.Status != types.StatusNotStarted {
		t.Errorf("Expected inactive NOT_STARTED snapshot, got active=%v status=%s", snap.Active, snap.Status)
	}
	if len(snap.Teachers) != 0 || len(snap.Students) != 0 {
		t.Error("Expected empty membership after seeding")
	}
}

func TestRegistry_SeedDoesNotOverwrite(t *testing.T) {
	r := NewRegistry()
	r.Seed("math-101", false, types.StatusNotStarted)
	r.AddMember("math-101", "teacher-1", types.RoleTeacher)

	// A racing seed must not drop members or reset status.
	r.Seed("math-101", true, types.StatusOngoing)

	snap, _ := r.Snapshot("math-101")
	if len(snap.Teachers) != 1 {
		t.Error("Expected existing membership to survive a re-seed")
	}
	if snap.Status != types.StatusNotStarted {
		t.Error("Expected existing status to survive a re-seed")
	}
}

func TestRegistry_AddMember(t *testing.T) {
	r := NewRegistry()
	r.Seed("math-101", false, types.StatusNotStarted)

	if !r.AddMember("math-101", "teacher-1", types.RoleTeacher) {
		t.Error("Expected first add to report newly added")
	}
	if r.AddMember("math-101", "teacher-1", types.RoleTeacher) {
		t.Error("Expected duplicate add to report not added")
	}
	if r.AddMember("missing-room", "student-1", types.RoleStudent) {
		t.Error("Expected add to a room with no live entry to report not added")
	}

	r.AddMember("math-101", "student-1", types.RoleStudent)
	r.AddMember("math-101", "student-2", types.RoleStudent)

	snap, _ := r.Snapshot("math-101")
	if len(snap.Teachers) != 1 || len(snap.Students) != 2 {
		t.Errorf("Expected 1 teacher and 2 students, got %d/%d", len(snap.Teachers), len(snap.Students))
	}
	if snap.Students[0] != "student-1" || snap.Students[1] != "student-2" {
		t.Error("Expected students in join order")
	}
}

func TestRegistry_RemoveMember(t *testing.T) {
	r := NewRegistry()
	r.Seed("math-101", true, types.StatusOngoing)
	r.AddMember("math-101", "student-1", types.RoleStudent)

	if !r.RemoveMember("math-101", "student-1", types.RoleStudent) {
		t.Error("Expected removal of present member to report removed")
	}
	if r.RemoveMember("math-101", "student-1", types.RoleStudent) {
		t.Error("Expected removal of absent member to report not removed")
	}
	if r.MemberCount("math-101") != 0 {
		t.Error("Expected empty room after removal")
	}
}

func TestRegistry_SetStatus(t *testing.T) {
	r := NewRegistry()
	r.Seed("math-101", false, types.StatusNotStarted)

	r.SetStatus("math-101", true, types.StatusOngoing)

	snap, _ := r.Snapshot("math-101")
	if !snap.Active || snap.Status != types.StatusOngoing {
		t.Errorf("Expected active ONGOING after SetStatus, got active=%v status=%s", snap.Active, snap.Status)
	}
}

func TestRegistry_SnapshotIsolation(t *testing.T) {
	r := NewRegistry()
	r.Seed("math-101", false, types.StatusNotStarted)
	r.AddMember("math-101", "teacher-1", types.RoleTeacher)

	snap, _ := r.Snapshot("math-101")
	snap.Teachers[0] = "mutated"

	fresh, _ := r.Snapshot("math-101")
	if fresh.Teachers[0] != "teacher-1" {
		t.Error("Expected snapshot mutation to not affect registry state")
	}
}

func TestRegistry_Evict(t *testing.T) {
	r := NewRegistry()
	r.Seed("math-101", true, types.StatusOngoing)
	r.AddMember("math-101", "student-1", types.RoleStudent)

	r.Evict("math-101")

	if r.Has("math-101") {
		t.Error("Expected no live entry after eviction")
	}
	if _, ok := r.Snapshot("math-101"); ok {
		t.Error("Expected no snapshot after eviction")
	}
}

func TestRegistry_Stats(t *testing.T) {
	r := NewRegistry()
	r.Seed("math-101", true, types.StatusOngoing)
	r.AddMember("math-101", "teacher-1", types.RoleTeacher)
	r.AddMember("math-101", "student-1", types.RoleStudent)
	r.Seed("physics-2", false, types.StatusNotStarted)

	stats := r.Stats()
	if stats["live_rooms"] != 2 {
		t.Errorf("Expected 2 live rooms, got %d", stats["live_rooms"])
	}
	if stats["participants"] != 2 {
		t.Errorf("Expected 2 participants, got %d", stats["participants"])
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	r.Seed("math-101", true, types.StatusOngoing)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			userID := fmt.Sprintf("student-%d", n)
			r.AddMember("math-101", userID, types.RoleStudent)
			r.Snapshot("math-101")
		}(i)
	}
	wg.Wait()

	snap, _ := r.Snapshot("math-101")
	if len(snap.Students) != 50 {
		t.Errorf("Expected 50 students after concurrent joins, got %d", len(snap.Students))
	}

	seen := make(map[string]bool)
	for _, id := range snap.Students {
		if seen[id] {
			t.Errorf("Duplicate student %s in membership", id)
		}
		seen[id] = true
	}
}
