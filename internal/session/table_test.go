package session

import (
	"testing"

	"classroom/pkg/types"
)

func TestTable_BindAndGet(t *testing.T) {
	table := NewTable()

	binding := Binding{RoomID: "math-101", UserID: "teacher-1", Role: types.RoleTeacher}
	if err := table.Bind("conn-1", binding); err != nil {
		t.Fatalf("Expected bind to succeed, got %v", err)
	}

	got, ok := table.Get("conn-1")
	if !ok {
		t.Fatal("Expected binding to exist after Bind")
	}
	if got != binding {
		t.Errorf("Expected binding %+v, got %+v", binding, got)
	}

	if _, ok := table.Get("conn-2"); ok {
		t.Error("Expected no binding for unknown connection")
	}
}

func TestTable_RebindRejected(t *testing.T) {
	table := NewTable()
	_ = table.Bind("conn-1", Binding{RoomID: "math-101", UserID: "s1", Role: types.RoleStudent})

	err := table.Bind("conn-1", Binding{RoomID: "physics-2", UserID: "s1", Role: types.RoleStudent})
	if err != ErrAlreadyBound {
		t.Errorf("Expected ErrAlreadyBound, got %v", err)
	}

	// The original binding must survive the rejected rebind.
	got, _ := table.Get("conn-1")
	if got.RoomID != "math-101" {
		t.Errorf("Expected original binding to survive, got room %s", got.RoomID)
	}
}

func TestTable_Clear(t *testing.T) {
	table := NewTable()
	_ = table.Bind("conn-1", Binding{RoomID: "math-101", UserID: "s1", Role: types.RoleStudent})

	if !table.Clear("conn-1") {
		t.Error("Expected Clear to report a binding existed")
	}
	if table.Clear("conn-1") {
		t.Error("Expected second Clear to report nothing existed")
	}
	if _, ok := table.Get("conn-1"); ok {
		t.Error("Expected no binding after Clear")
	}
}

func TestTable_ClearRoom(t *testing.T) {
	table := NewTable()
	_ = table.Bind("conn-1", Binding{RoomID: "math-101", UserID: "t1", Role: types.RoleTeacher})
	_ = table.Bind("conn-2", Binding{RoomID: "math-101", UserID: "s1", Role: types.RoleStudent})
	_ = table.Bind("conn-3", Binding{RoomID: "physics-2", UserID: "s2", Role: types.RoleStudent})

	cleared := table.ClearRoom("math-101")
	if len(cleared) != 2 {
		t.Errorf("Expected 2 cleared connections, got %d", len(cleared))
	}
	if table.Count() != 1 {
		t.Errorf("Expected 1 remaining binding, got %d", table.Count())
	}
	if _, ok := table.Get("conn-3"); !ok {
		t.Error("Expected binding in other room to survive ClearRoom")
	}
}
