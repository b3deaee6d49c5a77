// Package dispatch executes pipeline stages as independent subprocesses in
// isolated runtime profiles. Dependency isolation is preserved by spawning
// and waiting on worker processes with file and exit-code based results,
// never by in-process plugin loading.
package dispatch
