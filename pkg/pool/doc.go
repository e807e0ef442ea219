// Package pool keeps a bounded set of expensive, stateful resources open
// for reuse. The shell connector uses it to hold logged-in SSH sessions
// between operations so that each operation does not pay for a new login,
// su and sudo handshake.
//
// Usage:
//
//	sessions := pool.New(4, openSession, closeSession)
//	s, err := sessions.Acquire(ctx)
//	if err != nil {
//		return err
//	}
//	err = run(s)
//	sessions.Release(s, err == nil)
package pool
