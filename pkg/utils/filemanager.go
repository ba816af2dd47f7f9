// =============================================================================
// SAP Delivery Date Robot - File Manager Utility
// =============================================================================
//
// This module provides the file handling around a run:
//   - Directory management (log, archive and history directories)
//   - Result log naming
//   - Input file archival
//
// ARCHIVAL STRATEGY:
//   - The input workbook is copied, not moved: operators usually keep
//     editing the same file on a shared drive
//   - The copy gets the run timestamp appended to its name
//   - With UseTimestampSubdirs, copies are grouped as archive/2025/11/03/
//
// =============================================================================

package utils

import (
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations around a run.
type FileManager struct {
	// LogDir is the directory receiving CSV result logs.
	LogDir string

	// ArchiveDir is the directory for archived input files.
	ArchiveDir string

	// UseTimestampSubdirs creates date-based subdirectories in the archive.
	// Example: archive/2025/11/03/orders_20251103_093000.xlsx
	UseTimestampSubdirs bool

	// Now defaults to time.Now.
	Now func() time.Time
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(logDir, archiveDir string) *FileManager {
	return &FileManager{
		LogDir:     logDir,
		ArchiveDir: archiveDir,
		Now:        time.Now,
	}
}

func (fm *FileManager) now() time.Time {
	if fm.Now == nil {
		return time.Now()
	}
	return fm.Now()
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates the log directory and any extra directories
// (e.g. the parent of the history database or the log file).
func (fm *FileManager) EnsureDirectories(extra ...string) error {
	dirs := append([]string{fm.LogDir}, extra...)

	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile copies an input file to the archive directory.
//
// RETURNS:
//   - The path to the archived copy.
//   - An error if archival fails. The original file is never touched.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	archivePath := fm.getArchivePath(filePath)

	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}
	if err := copyFile(filePath, archivePath); err != nil {
		return "", fmt.Errorf("failed to copy file to archive: %w", err)
	}

	return archivePath, nil
}

// getArchivePath constructs the archive path for a file.
func (fm *FileManager) getArchivePath(filePath string) string {
	now := fm.now()
	ext := filepath.Ext(filePath)
	base := strings.TrimSuffix(filepath.Base(filePath), ext)
	fileName := fmt.Sprintf("%s_%s%s", base, now.Format("20060102_150405"), ext)

	if fm.UseTimestampSubdirs {
		subDir := filepath.Join(
			fm.ArchiveDir,
			fmt.Sprintf("%d", now.Year()),
			fmt.Sprintf("%02d", now.Month()),
			fmt.Sprintf("%02d", now.Day()),
		)
		return filepath.Join(subDir, fileName)
	}

	return filepath.Join(fm.ArchiveDir, fileName)
}

// =============================================================================
// LOG FILE NAMING
// =============================================================================

// GenerateLogFileName builds the result log name.
//
// PARAMETERS:
//   - format: The format string for the file name.
//     Placeholders:
//     {uuid}      - A random UUID
//     {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//     {date}      - Current date (YYYYMMDD)
//     {time}      - Current time (HHMMSS)
//     {user}      - OS user name
//   - params: Extra placeholder values (e.g. {"run": runID}).
//
// EXAMPLE:
//
//	format: "date_changes_{timestamp}.csv"
//	output: "date_changes_20251103_093000.csv"
func (fm *FileManager) GenerateLogFileName(format string, params map[string]string) string {
	now := fm.now()

	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
		"{user}":      currentUser(),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	if !strings.HasSuffix(strings.ToLower(result), ".csv") {
		result += ".csv"
	}

	return result
}

// LogFilePath joins GenerateLogFileName with the log directory.
func (fm *FileManager) LogFilePath(format string, params map[string]string) string {
	return filepath.Join(fm.LogDir, fm.GenerateLogFileName(format, params))
}

// currentUser returns a file-name safe user name.
func currentUser() string {
	name := "unknown"
	if u, err := user.Current(); err == nil && u.Username != "" {
		name = u.Username
	}
	// Windows user names come as DOMAIN\user.
	if i := strings.LastIndexAny(name, `\/`); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}

	return destFile.Sync()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
