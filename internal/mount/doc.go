// Package mount loads composition markup into a running player and keeps
// the player in step with later edits.
//
// Three pieces cooperate, all delivering their results onto the driver
// goroutine:
//   - Mounter fetches markup from a file or URL. A new Mount supersedes and
//     cancels any fetch still in flight; superseded results never call back.
//   - Watch reports debounced changes to a file on disk.
//   - Reflector observes a live markup.Document and, at most once per frame,
//     re-serializes, re-resolves and rebinds the player after edits.
package mount
