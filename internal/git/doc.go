// Package git shells out to git to judge whether a plaintext backup
// written inside a work tree is at risk of being committed.
//
// Checks performed:
//   - Whether the export destination sits inside a git repository
//   - Whether the export file is tracked by git (should not be)
//   - Whether the export file is in .gitignore (should be)
package git
