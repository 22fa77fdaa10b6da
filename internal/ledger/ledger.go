// Package ledger is the append-only CSV file sink. One file is kept per
// local calendar day; a file removed or renamed underneath the daemon (log
// rotation) is recreated, header included, on the next write.
package ledger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/sweeney/parking-logger/internal/logic"
)

// Header is written as the first line of every new ledger file.
const Header = "Timestamp,Available_Slots,Slot1,Slot2,Slot3,Slot4,Slot5,Change_Type"

const (
	timestampLayout = "2006-01-02 15:04:05"
	fileMode        = 0o644
	dirMode         = 0o755
)

// FileName returns the ledger file name for the local date of t.
func FileName(t time.Time) string {
	return "parking_log_" + t.Local().Format("2006-01-02") + ".csv"
}

// FormatRow renders one ledger line, terminator included. Fields are not
// quoted: the description is written verbatim.
func FormatRow(ev logic.ChangeEvent) string {
	return fmt.Sprintf("%s,%s,%s\n", ev.Timestamp.Local().Format(timestampLayout), ev.Record.String(), ev.Description)
}

// Ledger appends change events to the day's CSV file.
type Ledger struct {
	dir string
	log zerolog.Logger

	mu     sync.Mutex
	file   *os.File
	name   string
	reopen bool

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Open creates dir if needed, prepares the file for now's date (writing the
// header if it is new) and starts watching dir for rotation.
func Open(dir string, now time.Time, log zerolog.Logger) (*Ledger, error) {
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	l := &Ledger{
		dir:  dir,
		log:  log.With().Str("component", "ledger").Logger(),
		done: make(chan struct{}),
	}
	if err := l.ensureOpen(now); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		l.closeFile()
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		l.closeFile()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	l.watcher = watcher
	go l.watch()

	return l, nil
}

// Name identifies the sink in logs.
func (l *Ledger) Name() string { return "file" }

// Path returns the path of the file currently open.
func (l *Ledger) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return filepath.Join(l.dir, l.name)
}

// Write appends ev to the ledger file for its local date.
func (l *Ledger) Write(_ context.Context, ev logic.ChangeEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.ensureOpen(ev.Timestamp); err != nil {
		return err
	}
	if _, err := l.file.WriteString(FormatRow(ev)); err != nil {
		return fmt.Errorf("append ledger row: %w", err)
	}
	return nil
}

// ensureOpen must be called with mu held.
func (l *Ledger) ensureOpen(t time.Time) error {
	name := FileName(t)
	if l.file != nil && !l.reopen && name == l.name {
		return nil
	}
	l.closeFile()

	path := filepath.Join(l.dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, fileMode)
	if err != nil {
		return fmt.Errorf("open ledger %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat ledger %s: %w", path, err)
	}
	if info.Size() == 0 {
		if _, err := f.WriteString(Header + "\n"); err != nil {
			f.Close()
			return fmt.Errorf("write ledger header: %w", err)
		}
	}

	l.file = f
	l.name = name
	l.reopen = false
	l.log.Info().Str("path", path).Msg("ledger open")
	return nil
}

func (l *Ledger) closeFile() {
	if l.file == nil {
		return
	}
	if err := l.file.Close(); err != nil {
		l.log.Warn().Err(err).Msg("close ledger file")
	}
	l.file = nil
}

func (l *Ledger) watch() {
	defer close(l.done)
	for {
		select {
		case ev, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			l.handleEvent(ev)
		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			l.log.Warn().Err(err).Msg("watcher error")
		}
	}
}

func (l *Ledger) handleEvent(ev fsnotify.Event) {
	if ev.Op&(fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if filepath.Base(ev.Name) != l.name {
		return
	}
	l.reopen = true
	l.log.Info().Str("path", ev.Name).Str("op", ev.Op.String()).Msg("ledger file moved, will reopen")
}

func (l *Ledger) needsReopen() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reopen
}

// Close stops the watcher and closes the current file.
func (l *Ledger) Close() error {
	var err error
	if l.watcher != nil {
		err = l.watcher.Close()
		<-l.done
	}
	l.mu.Lock()
	l.closeFile()
	l.mu.Unlock()
	return err
}
