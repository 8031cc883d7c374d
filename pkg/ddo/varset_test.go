package ddo

import "testing"

func TestVarSetAddRemoveContains(t *testing.T) {
	vs := EmptyVars(5)
	if vs.Len() != 0 {
		t.Fatalf("fresh EmptyVars has len %d, want 0", vs.Len())
	}
	vs.Add(2)
	vs.Add(4)
	if !vs.Contains(2) || !vs.Contains(4) {
		t.Fatalf("expected 2 and 4 to be present")
	}
	if vs.Contains(0) || vs.Contains(3) {
		t.Fatalf("expected 0 and 3 to be absent")
	}
	if vs.Len() != 2 {
		t.Fatalf("len = %d, want 2", vs.Len())
	}
	vs.Remove(2)
	if vs.Contains(2) {
		t.Fatalf("2 should have been removed")
	}
	if vs.Len() != 1 {
		t.Fatalf("len after remove = %d, want 1", vs.Len())
	}
}

func TestAllVarsContainsEveryIndex(t *testing.T) {
	vs := AllVars(70)
	for v := Variable(0); int(v) < 70; v++ {
		if !vs.Contains(v) {
			t.Fatalf("AllVars(70) missing variable %d", v)
		}
	}
	if vs.Len() != 70 {
		t.Fatalf("len = %d, want 70", vs.Len())
	}
}

func TestVarSetForEachVisitsInOrder(t *testing.T) {
	vs := EmptyVars(10)
	vs.Add(7)
	vs.Add(1)
	vs.Add(5)
	var seen []Variable
	vs.ForEach(func(v Variable) { seen = append(seen, v) })
	want := []Variable{1, 5, 7}
	if len(seen) != len(want) {
		t.Fatalf("visited %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("visited %v, want %v", seen, want)
		}
	}
}

func TestVarSetOutOfRangeAddPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected Add of an out-of-range variable to panic")
		}
	}()
	vs := EmptyVars(3)
	vs.Add(5)
}
