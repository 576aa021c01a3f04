// Package enginetest provides an in-process engine.Engine for tests.
//
// Its servers bind a real TCP listener, so port collisions behave as they
// would for a real database server, and store each database in a SQLite file
// through modernc.org/sqlite. Failures can be injected per call and every
// interaction is counted.
package enginetest
