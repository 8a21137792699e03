package internal

import "testing"

func TestIdentityHash(t *testing.T) {
	tests := []struct {
		name      string
		a         [3]string
		b         [3]string
		wantEqual bool
	}{
		{
			name:      "identical tuples hash identically",
			a:         [3]string{"Alice", "10:01", "hi"},
			b:         [3]string{"Alice", "10:01", "hi"},
			wantEqual: true,
		},
		{
			name:      "different body",
			a:         [3]string{"Alice", "10:01", "hi"},
			b:         [3]string{"Alice", "10:01", "hi there"},
			wantEqual: false,
		},
		{
			name:      "different author",
			a:         [3]string{"Alice", "10:01", "hi"},
			b:         [3]string{"Bob", "10:01", "hi"},
			wantEqual: false,
		},
		{
			name:      "different timestamp",
			a:         [3]string{"Alice", "10:01", "hi"},
			b:         [3]string{"Alice", "10:02", "hi"},
			wantEqual: false,
		},
		{
			name:      "field boundaries are not ambiguous",
			a:         [3]string{"Alice", "10:01x", "y"},
			b:         [3]string{"Alice", "10:01", "xy"},
			wantEqual: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ha := IdentityHash(tt.a[0], tt.a[1], tt.a[2])
			hb := IdentityHash(tt.b[0], tt.b[1], tt.b[2])
			if (ha == hb) != tt.wantEqual {
				t.Errorf("IdentityHash equality = %v, want %v", ha == hb, tt.wantEqual)
			}
		})
	}
}

func TestDeduplicatorAdmit(t *testing.T) {
	d := NewDeduplicator(nil)

	m1 := Message{IdentityHash: IdentityHash("A", "t1", "hi")}
	m2 := Message{IdentityHash: IdentityHash("A", "t1", "hi")}
	m3 := Message{IdentityHash: IdentityHash("B", "t1", "hi")}

	if !d.Admit(&m1) {
		t.Error("first occurrence should be admitted")
	}
	if d.Admit(&m2) {
		t.Error("same (author, timestamp, body) tuple should be rejected as duplicate")
	}
	if !d.Admit(&m3) {
		t.Error("different author should be admitted")
	}
	if got := d.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
}

func TestDeduplicatorSeeded(t *testing.T) {
	known := IdentityHash("Alice", "10:01", "already exported")
	d := NewDeduplicator([]string{known})

	old := Message{IdentityHash: known}
	if d.Admit(&old) {
		t.Error("hash seeded from a previous run should be rejected")
	}

	fresh := Message{IdentityHash: IdentityHash("Alice", "10:02", "new message")}
	if !d.Admit(&fresh) {
		t.Error("unseen message should be admitted despite seeding")
	}
}
