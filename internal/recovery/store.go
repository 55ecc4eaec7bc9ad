package recovery

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"go.uber.org/zap"

	"github.com/temirov/gx/internal/transaction"
)

const (
	applicationDirectoryNameConstant = "gx"
	recoveryDirectoryNameConstant    = "recovery"
	backupsDirectoryNameConstant     = "backups"
	stateFileExtensionConstant       = ".json"
	temporaryFilePatternConstant     = ".state-*.tmp"
	directoryPermissionsConstant     = 0o700
	stateFilePermissionsConstant     = 0o600
	stateFileSkippedMessageConstant  = "Skipping unreadable recovery state"
	stateFileFieldNameConstant       = "state_file"
	jsonIndentConstant               = "  "
	pathSeparatorCharactersConstant  = `/\`
)

// ErrStateNotFound indicates that no state file exists for a transaction id.
var ErrStateNotFound = errors.New("recovery state not found")

// StateParseError describes a state file that could not be decoded.
type StateParseError struct {
	Path  string
	Cause error
}

// Error describes the parse failure.
func (parseError StateParseError) Error() string {
	return fmt.Sprintf("parse recovery state %s: %v", parseError.Path, parseError.Cause)
}

// Unwrap exposes the decoding error.
func (parseError StateParseError) Unwrap() error {
	return parseError.Cause
}

// DefaultDirectory returns $XDG_STATE_HOME/gx/recovery.
func DefaultDirectory() string {
	return filepath.Join(xdg.StateHome, applicationDirectoryNameConstant, recoveryDirectoryNameConstant)
}

// Store keeps one JSON file per transaction in a directory. It implements transaction.Persister.
type Store struct {
	directory string
	logger    *zap.Logger
}

// NewStore constructs a store rooted at directory, or at DefaultDirectory when directory is blank.
func NewStore(directory string, logger *zap.Logger) *Store {
	trimmedDirectory := strings.TrimSpace(directory)
	if len(trimmedDirectory) == 0 {
		trimmedDirectory = DefaultDirectory()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{directory: trimmedDirectory, logger: logger}
}

// Directory returns the store root.
func (store *Store) Directory() string {
	return store.directory
}

// BackupDirectory returns the directory holding file backups for a transaction.
func (store *Store) BackupDirectory(transactionID string) string {
	return filepath.Join(store.directory, backupsDirectoryNameConstant, transactionID)
}

// Save writes the state atomically, replacing any previous version.
func (store *Store) Save(state transaction.State) error {
	if directoryError := os.MkdirAll(store.directory, directoryPermissionsConstant); directoryError != nil {
		return directoryError
	}

	encoded, encodeError := json.MarshalIndent(state, "", jsonIndentConstant)
	if encodeError != nil {
		return encodeError
	}

	temporaryFile, createError := os.CreateTemp(store.directory, temporaryFilePatternConstant)
	if createError != nil {
		return createError
	}
	temporaryPath := temporaryFile.Name()
	_, writeError := temporaryFile.Write(encoded)
	closeError := temporaryFile.Close()
	if writeError = errors.Join(writeError, closeError); writeError != nil {
		_ = os.Remove(temporaryPath)
		return writeError
	}
	if chmodError := os.Chmod(temporaryPath, stateFilePermissionsConstant); chmodError != nil {
		_ = os.Remove(temporaryPath)
		return chmodError
	}
	return os.Rename(temporaryPath, store.statePath(state.TransactionID))
}

// Delete removes a transaction's state file. A missing file is not an error.
func (store *Store) Delete(transactionID string) error {
	removeError := os.Remove(store.statePath(transactionID))
	if removeError == nil || errors.Is(removeError, fs.ErrNotExist) {
		return nil
	}
	return removeError
}

// DeleteBackups removes a transaction's backup directory.
func (store *Store) DeleteBackups(transactionID string) error {
	return os.RemoveAll(store.BackupDirectory(transactionID))
}

// Load reads one transaction state.
func (store *Store) Load(transactionID string) (transaction.State, error) {
	if strings.ContainsAny(transactionID, pathSeparatorCharactersConstant) || len(strings.TrimSpace(transactionID)) == 0 {
		return transaction.State{}, fmt.Errorf("%w: %q", ErrStateNotFound, transactionID)
	}
	return store.loadPath(store.statePath(transactionID))
}

// List returns every readable state, newest first. Corrupt files are skipped with a warning.
func (store *Store) List() ([]transaction.State, error) {
	entries, readError := os.ReadDir(store.directory)
	if errors.Is(readError, fs.ErrNotExist) {
		return nil, nil
	}
	if readError != nil {
		return nil, readError
	}

	states := make([]transaction.State, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != stateFileExtensionConstant {
			continue
		}
		statePath := filepath.Join(store.directory, entry.Name())
		state, loadError := store.loadPath(statePath)
		if loadError != nil {
			store.logger.Warn(stateFileSkippedMessageConstant, zap.String(stateFileFieldNameConstant, statePath), zap.Error(loadError))
			continue
		}
		states = append(states, state)
	}

	sort.SliceStable(states, func(leftIndex int, rightIndex int) bool {
		return states[leftIndex].CreatedAt.After(states[rightIndex].CreatedAt)
	})
	return states, nil
}

// Purge deletes states, and their backups, created before cutoff. It returns the purged ids.
func (store *Store) Purge(cutoff time.Time) ([]string, error) {
	states, listError := store.List()
	if listError != nil {
		return nil, listError
	}

	var purged []string
	var purgeErrors []error
	for _, state := range states {
		if !state.CreatedAt.Before(cutoff) {
			continue
		}
		if deleteError := errors.Join(store.Delete(state.TransactionID), store.DeleteBackups(state.TransactionID)); deleteError != nil {
			purgeErrors = append(purgeErrors, deleteError)
			continue
		}
		purged = append(purged, state.TransactionID)
	}
	return purged, errors.Join(purgeErrors...)
}

func (store *Store) statePath(transactionID string) string {
	return filepath.Join(store.directory, transactionID+stateFileExtensionConstant)
}

func (store *Store) loadPath(statePath string) (transaction.State, error) {
	content, readError := os.ReadFile(statePath)
	if errors.Is(readError, fs.ErrNotExist) {
		return transaction.State{}, fmt.Errorf("%w: %s", ErrStateNotFound, filepath.Base(statePath))
	}
	if readError != nil {
		return transaction.State{}, readError
	}

	var state transaction.State
	if decodeError := json.Unmarshal(content, &state); decodeError != nil {
		return transaction.State{}, StateParseError{Path: statePath, Cause: decodeError}
	}
	if len(strings.TrimSpace(state.TransactionID)) == 0 {
		return transaction.State{}, StateParseError{Path: statePath, Cause: errors.New("missing transaction_id")}
	}
	return state, nil
}
