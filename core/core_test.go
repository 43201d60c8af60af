package core

import "testing"

func TestDirectionResists(t *testing.T) {
	if !Up.Resists(Up) || Up.Resists(Down) {
		t.Fatal("Up resists only Up")
	}
	if !Both.Resists(Up) || !Both.Resists(Down) {
		t.Fatal("Both resists both")
	}
}

func TestDirectionSigned(t *testing.T) {
	if Up.Signed(1) != Up || Up.Signed(-1) != Down {
		t.Fatal("Signed Up")
	}
	if Down.Signed(-1) != Up {
		t.Fatal("Signed Down")
	}
	if Both.Signed(-1) != Both {
		t.Fatal("Both is its own opposite")
	}
}

func TestDirectionSplitUnion(t *testing.T) {
	if got := Both.Split(); len(got) != 2 || got[0] != Down || got[1] != Up {
		t.Fatalf("Both.Split() = %v", got)
	}
	if got := Up.Split(); len(got) != 1 || got[0] != Up {
		t.Fatalf("Up.Split() = %v", got)
	}
	if Union(Up, Up) != Up || Union(Up, Down) != Both {
		t.Fatal("Union")
	}
}
