package roomid

import (
	"strings"
	"testing"
	"time"
)

func TestNewProducesValidIDs(t *testing.T) {
	id := New()
	if len(id) != 26 {
		t.Fatalf("expected 26 characters, got %d", len(id))
	}
	if err := Validate(id); err != nil {
		t.Errorf("generated ID failed validation: %v", err)
	}
}

func TestNewIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := New()
		if seen[id] {
			t.Errorf("duplicate ID generated: %s", id)
		}
		seen[id] = true
	}
}

func TestIDsSortByCreationTime(t *testing.T) {
	var ids []string
	for i := 0; i < 10; i++ {
		ids = append(ids, New())
		time.Sleep(time.Millisecond)
	}
	for i := 1; i < len(ids); i++ {
		if strings.Compare(ids[i-1], ids[i]) >= 0 {
			t.Errorf("IDs not sorted: %s >= %s", ids[i-1], ids[i])
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"valid ID", "01h5n0et5q6mt3v7ms1234abcd", false},
		{"too short", "01h5n0et5q6mt3v7ms123", true},
		{"too long", "01h5n0et5q6mt3v7ms1234abcdef", true},
		{"first char too high", "81h5n0et5q6mt3v7ms1234abcd", true},
		{"invalid character", "01h5n0et5q6mt3v7ms1234abci", true},
		{"uppercase not allowed", "01H5N0ET5Q6MT3V7MS1234ABCD", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

type fixedRandSource struct{ v int }

func (s fixedRandSource) Intn(n int) int { return s.v % n }

func TestGeneratorWithInjectedSource(t *testing.T) {
	gen := NewGenerator(fixedRandSource{v: 42})
	id := gen.Generate()
	if err := Validate(id); err != nil {
		t.Errorf("generated ID failed validation: %v", err)
	}
}
