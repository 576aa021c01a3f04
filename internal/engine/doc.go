// Package engine defines the boundary between the lifecycle controller and
// the database engine it manages.
//
// An Engine starts a TCP-accepting Server on a port. A Server opens Conns to
// named databases. A Conn lists existing tables and executes SQL scripts.
// Nothing above this package knows which engine runs behind it: production
// uses the dolt package, tests use enginetest.
package engine
