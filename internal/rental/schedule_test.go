package rental

import (
	"fmt"
	"testing"
)

func TestAssetSchedule_ConflictNeighbors(t *testing.T) {
	s := newAssetSchedule()
	s.insert(interval{start: 100, end: 200, rentalID: "a"})
	s.insert(interval{start: 300, end: 400, rentalID: "b"})

	cases := []struct {
		name       string
		start, end int64
		want       string
		clash      bool
	}{
		{"before all", 0, 100, "", false},
		{"exact gap", 200, 300, "", false},
		{"after all", 400, 500, "", false},
		{"touching predecessor end", 150, 250, "a", true},
		{"touching successor start", 250, 350, "b", true},
		{"inside existing", 120, 180, "a", true},
		{"covering existing", 50, 450, "a", true},
		{"same start", 100, 150, "a", true},
		{"one second overlap", 199, 300, "a", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id, clash := s.conflict(tc.start, tc.end)
			if clash != tc.clash {
				t.Fatalf("conflict(%d, %d) = %v, want %v", tc.start, tc.end, clash, tc.clash)
			}
			if clash && id != tc.want {
				t.Fatalf("conflict(%d, %d) hit %s, want %s", tc.start, tc.end, id, tc.want)
			}
		})
	}
}

func TestAssetSchedule_RemoveFreesInterval(t *testing.T) {
	s := newAssetSchedule()
	s.insert(interval{start: 100, end: 200, rentalID: "a"})

	if _, clash := s.conflict(150, 250); !clash {
		t.Fatalf("expected conflict before removal")
	}
	s.remove(100)
	if _, clash := s.conflict(150, 250); clash {
		t.Fatalf("expected no conflict after removal")
	}
	if s.len() != 0 {
		t.Fatalf("expected empty schedule, got %d", s.len())
	}
}

func TestAssetSchedule_DenseInsertions(t *testing.T) {
	s := newAssetSchedule()
	for i := int64(0); i < 1_000; i++ {
		start := i * 10
		if id, clash := s.conflict(start, start+10); clash {
			t.Fatalf("unexpected conflict at %d with %s", start, id)
		}
		s.insert(interval{start: start, end: start + 10, rentalID: fmt.Sprintf("r-%d", i)})
	}
	if s.len() != 1_000 {
		t.Fatalf("expected 1000 intervals, got %d", s.len())
	}
	// Every slot is taken, so any candidate interval must clash.
	if _, clash := s.conflict(4_995, 5_005); !clash {
		t.Fatalf("expected conflict in dense schedule")
	}
}
