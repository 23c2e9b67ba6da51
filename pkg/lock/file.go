package lock

import (
	"errors"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// FileManager implements Manager with flock(2) on "<key>.lock". Lock files
// are left in place after release; removing them would race with another
// process that has opened the file but not yet locked it.
type FileManager struct {
	mu     sync.Mutex
	held   map[string]*os.File
	logger zerolog.Logger
}

// NewFileManager creates a file-backed lock manager.
func NewFileManager(logger zerolog.Logger) *FileManager {
	return &FileManager{
		held:   make(map[string]*os.File),
		logger: logger.With().Str("component", "lock-manager").Logger(),
	}
}

// Acquire implements Manager.
func (m *FileManager) Acquire(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	path := Path(key)
	if _, ok := m.held[key]; ok {
		m.logger.Debug().Str("lock", path).Msg("Lock already held by this process")
		return false
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		m.logger.Error().Err(err).Str("lock", path).Msg("Failed to open lock file")
		return false
	}

	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		file.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			m.logger.Debug().Str("lock", path).Msg("Lock held by another process")
		} else {
			m.logger.Error().Err(err).Str("lock", path).Msg("Failed to lock file")
		}
		return false
	}

	m.held[key] = file
	m.logger.Debug().Str("lock", path).Msg("Lock acquired")
	return true
}

// Release implements Manager.
func (m *FileManager) Release(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	file, ok := m.held[key]
	if !ok {
		return
	}
	delete(m.held, key)

	if err := unix.Flock(int(file.Fd()), unix.LOCK_UN); err != nil {
		m.logger.Warn().Err(err).Str("lock", Path(key)).Msg("Failed to unlock file")
	}
	// Closing the descriptor drops the lock even if LOCK_UN failed.
	if err := file.Close(); err != nil {
		m.logger.Warn().Err(err).Str("lock", Path(key)).Msg("Failed to close lock file")
	}
	m.logger.Debug().Str("lock", Path(key)).Msg("Lock released")
}
