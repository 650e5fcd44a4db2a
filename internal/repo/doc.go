// Package repo implements the account record repository over the
// in-memory SQLite database of an unlocked session.
//
// Operations:
//   - Add/Update/Delete/MarkRefreshed: single-record mutations
//   - List/Search/ByStatus/Get: queries in stable service-name order
//   - Clear/ImportMany: bulk mutations with one persist each
//   - ImportPending/RefreshBadgeCache: blob-store intake and reminder keys
//
// Every mutation hands the full database to the session's Persister before
// returning. A persist failure does not roll the mutation back; it is
// logged and returned so the caller can warn the user.
//
// The database image (DumpImage/LoadImage) is the serialized form stored
// inside the encrypted blob, including the id counter so deleted ids are
// never handed out again.
package repo
