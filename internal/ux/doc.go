// Package ux keeps the small pieces of presentation state that outlive a
// session: the colour theme and the user mode.
//
// User mode moves through three states:
//
//	anonymous -> guest          first record saved without an identity
//	any       -> authenticated  an identity becomes available
//	authenticated -> guest      sign-out
//
// Both values live in the local key/value medium so every front end sees
// the same state.
package ux
