// Package domain contains the core model of the convergent enumerator.
//
// The domain is transport- and process-agnostic: it does not spawn tools, open
// sockets or touch the filesystem. Adapters map external tool output into these types.
package domain
