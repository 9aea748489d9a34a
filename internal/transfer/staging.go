package transfer

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

const (
	stagingRootPatternConstant          = "tabmigrate-"
	stagingRootCreateTemplateConstant   = "unable to create staging root under %s: %w"
	stagingItemCreateTemplateConstant   = "unable to create staging directory for %s: %w"
	stagingDirectoryPermissionsConstant = 0o700
)

// ReleaseFunc removes a scoped staging directory.
type ReleaseFunc func() error

// StagingArea owns the per-run staging root and hands out scoped per-item directories.
type StagingArea struct {
	mutex    sync.Mutex
	rootPath string
	closed   bool
}

// NewStagingArea creates a fresh staging root under parentDirectory, or under the system temporary directory when parentDirectory is empty.
func NewStagingArea(parentDirectory string) (*StagingArea, error) {
	if len(parentDirectory) > 0 {
		if mkdirError := os.MkdirAll(parentDirectory, stagingDirectoryPermissionsConstant); mkdirError != nil {
			return nil, fmt.Errorf(stagingRootCreateTemplateConstant, parentDirectory, mkdirError)
		}
	}
	rootPath, createError := os.MkdirTemp(parentDirectory, stagingRootPatternConstant)
	if createError != nil {
		return nil, fmt.Errorf(stagingRootCreateTemplateConstant, parentDirectory, createError)
	}
	return &StagingArea{rootPath: rootPath}, nil
}

// RootPath returns the staging root.
func (stagingArea *StagingArea) RootPath() string {
	return stagingArea.rootPath
}

// Acquire creates a uniquely named directory for one item.
func (stagingArea *StagingArea) Acquire(itemID string) (string, ReleaseFunc, error) {
	stagingArea.mutex.Lock()
	defer stagingArea.mutex.Unlock()
	if stagingArea.closed {
		return "", nil, ErrStagingAreaClosed
	}

	directory := filepath.Join(stagingArea.rootPath, uuid.NewString())
	if mkdirError := os.Mkdir(directory, stagingDirectoryPermissionsConstant); mkdirError != nil {
		return "", nil, fmt.Errorf(stagingItemCreateTemplateConstant, itemID, mkdirError)
	}

	var releaseOnce sync.Once
	var releaseError error
	release := func() error {
		releaseOnce.Do(func() {
			releaseError = os.RemoveAll(directory)
		})
		return releaseError
	}
	return directory, release, nil
}

// Close removes the staging root and everything beneath it. Subsequent calls are no-ops.
func (stagingArea *StagingArea) Close() error {
	stagingArea.mutex.Lock()
	defer stagingArea.mutex.Unlock()
	if stagingArea.closed {
		return nil
	}
	stagingArea.closed = true
	return os.RemoveAll(stagingArea.rootPath)
}
