package git

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// ExposureStatus describes how a file relates to a surrounding git repository
type ExposureStatus struct {
	IsRepo  bool
	Tracked bool
	Ignored bool
}

// IsGitRepo checks if the working directory is inside a git repository
func IsGitRepo(workDir string) bool {
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = workDir
	err := cmd.Run()
	return err == nil
}

// IsTracked checks if a file is tracked by git
func IsTracked(workDir, path string) bool {
	cmd := exec.Command("git", "ls-files", "--", path)
	cmd.Dir = workDir
	output, err := cmd.Output()

	if err != nil {
		return false
	}

	return len(strings.TrimSpace(string(output))) > 0
}

// IsIgnored checks if a file is ignored by git (handles all .gitignore files)
func IsIgnored(workDir, path string) bool {
	cmd := exec.Command("git", "check-ignore", "-q", "--", path)
	cmd.Dir = workDir
	err := cmd.Run()

	// git check-ignore returns exit code 0 if file is ignored
	return err == nil
}

// CheckExportExposure inspects the directory an export file landed in.
// Failures to run git read as "not a repository"; the check only ever
// produces a warning, never blocks the export.
func CheckExportExposure(path string) ExposureStatus {
	dir := filepath.Dir(path)
	name := filepath.Base(path)

	status := ExposureStatus{}
	if !IsGitRepo(dir) {
		return status
	}
	status.IsRepo = true
	status.Tracked = IsTracked(dir, name)
	status.Ignored = IsIgnored(dir, name)
	return status
}

// FormatExposureWarning renders the warning for an export at risk of
// ending up in version control. Empty when there is nothing to warn about.
func FormatExposureWarning(path string, status ExposureStatus) string {
	if !status.IsRepo {
		return ""
	}

	var result strings.Builder
	if status.Tracked {
		result.WriteString(fmt.Sprintf("warning: %s is tracked by git and contains unencrypted account data\n", path))
		result.WriteString(fmt.Sprintf("   run: git rm --cached %s\n", filepath.Base(path)))
		return result.String()
	}
	if status.Ignored {
		return ""
	}

	result.WriteString(fmt.Sprintf("warning: %s sits inside a git repository\n", path))
	result.WriteString(fmt.Sprintf("   add %s to .gitignore to keep it out of commits\n", filepath.Base(path)))
	return result.String()
}
