package common

import (
	"strings"
	"sync"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

func TestSyncBufferConcurrentWrites(t *testing.T) {
	var b SyncBuffer
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b.Write([]byte("x"))
				_ = b.Len()
			}
		}()
	}
	wg.Wait()

	if got := b.Len(); got != 800 {
		t.Fatalf("expected 800 bytes, got %d", got)
	}
	if s := b.String(); strings.Trim(s, "x") != "" {
		t.Fatalf("unexpected contents %q", s)
	}
}

func TestNewSafeCommandCapturesStderr(t *testing.T) {
	cmd := NewSafeCommand("python3", "-c", "pass")
	if cmd.Cmd.Stderr != cmd.Stderr {
		t.Fatal("expected stderr to be routed to the SyncBuffer")
	}
	if got := cmd.Args; len(got) != 3 || got[1] != "-c" {
		t.Fatalf("unexpected args %v", got)
	}
}

func TestSyncBufferTail(t *testing.T) {
	b := &SyncBuffer{}
	b.Write([]byte("abcdef"))
	tests := []struct {
		n    int
		want string
	}{
		{n: 3, want: "def"},
		{n: 6, want: "abcdef"},
		{n: 100, want: "abcdef"},
		{n: 0, want: ""},
	}
	for _, tt := range tests {
		if got := b.Tail(tt.n); got != tt.want {
			t.Errorf("Tail(%d): expected %q, got %q", tt.n, tt.want, got)
		}
	}
}

func TestCoalesce(t *testing.T) {
	if got := Coalesce(0, 0, 3, 4); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
	if got := Coalesce("", ""); got != "" {
		t.Fatalf("expected zero value, got %q", got)
	}
	if got := Coalesce(wgpu.AddressMode(0), wgpu.AddressModeClampToEdge); got != wgpu.AddressModeClampToEdge {
		t.Fatalf("expected clamp to edge, got %v", got)
	}
}
