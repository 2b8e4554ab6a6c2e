package fv

import "iter"

// Scan lazily yields every file under root accepted by filter, each exactly once.
// root must already be resolved (see FilesystemManager.ResolveDir). Unreadable
// subdirectories are passed to warn and skipped. Stopping the iteration stops the walk.
func Scan(fsmgr FilesystemManager, root string, filter *ExtensionFilter, warn func(path string, err error)) iter.Seq[*Candidate] {
	if warn == nil {
		warn = func(string, error) {}
	}
	return func(yield func(*Candidate) bool) {
		fsmgr.Walk(root, func(c *Candidate) bool {
			if !filter.Accepts(c.Name()) {
				return true
			}
			return yield(c)
		}, warn)
	}
}
