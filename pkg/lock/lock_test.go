package lock

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

func TestManagers(t *testing.T) {
	tests := []struct {
		name    string
		manager func(t *testing.T) Manager
	}{
		{"memory", func(t *testing.T) Manager { return NewMemoryManager() }},
		{"file", func(t *testing.T) Manager { return NewFileManager(zerolog.Nop()) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tt.manager(t)
			key := filepath.Join(t.TempDir(), "site.yml")

			if !m.Acquire(key) {
				t.Fatal("first Acquire() = false, want true")
			}
			if m.Acquire(key) {
				t.Fatal("second Acquire() = true while held")
			}
			m.Release(key)
			if !m.Acquire(key) {
				t.Fatal("Acquire() after Release() = false, want true")
			}
			m.Release(key)

			// Releasing a lock that is not held is a no-op.
			m.Release(key)
			m.Release(filepath.Join(t.TempDir(), "never.yml"))
		})
	}
}

func TestFileManagerContentionAcrossManagers(t *testing.T) {
	key := filepath.Join(t.TempDir(), "site.yml")
	first := NewFileManager(zerolog.Nop())
	second := NewFileManager(zerolog.Nop())

	if !first.Acquire(key) {
		t.Fatal("first.Acquire() = false")
	}
	if second.Acquire(key) {
		t.Fatal("second.Acquire() = true while first holds the lock")
	}
	first.Release(key)
	if !second.Acquire(key) {
		t.Fatal("second.Acquire() = false after release")
	}
	second.Release(key)

	if _, err := os.Stat(Path(key)); err != nil {
		t.Errorf("lock file missing after release: %v", err)
	}
}

func TestFileManagerUnwritableDirectory(t *testing.T) {
	m := NewFileManager(zerolog.Nop())
	if m.Acquire(filepath.Join(t.TempDir(), "missing", "site.yml")) {
		t.Error("Acquire() = true for a lock file that cannot be created")
	}
}

func TestMemoryManagerConcurrentAcquire(t *testing.T) {
	m := NewMemoryManager()
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		acquired int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if m.Acquire("/srv/site.yml") {
				mu.Lock()
				acquired++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if acquired != 1 {
		t.Errorf("acquired = %d, want exactly 1", acquired)
	}
	if !m.Held("/srv/site.yml") {
		t.Error("Held() = false after a successful Acquire")
	}
}

func TestPath(t *testing.T) {
	if got := Path("/srv/site.yml"); got != "/srv/site.yml.lock" {
		t.Errorf("Path() = %q", got)
	}
}
