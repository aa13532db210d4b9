// Package pool implements a per-origin connection pool: a bounded set of
// reusable transport connections with LIFO reuse (warmer sockets win),
// FIFO fairness for callers waiting on a saturated pool, and weak
// back-reference bookkeeping to the owning client so the pool never
// keeps its client alive past its last strong reference - grounded on
// the weak-pointer back-reference technique in
// joeycumines-go-utilpkg's eventloop/registry.go, adapted here from a
// promise-GC registry to a connection pool's owner back-pointer.
//
// Pool is parameterized over the connection type C (anything satisfying
// Conn) and the owner reference type R, so this package never imports
// the httpclient package that uses it - avoiding an import cycle while
// still giving every pool a weak handle back to its client for logging
// and auth-config lookups during redirect/auth retries (design note 9).
package pool
