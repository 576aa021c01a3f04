// Package embeddb runs an embedded SQL database server next to a host
// application and provisions its databases from SQL scripts.
//
// The default engine is dolt sql-server, which speaks the MySQL wire
// protocol. On Start the controller negotiates a port, starts the server,
// and for every configured database runs its startup script unless the
// database already has tables.
//
// # Basic Usage
//
//	import "github.com/giantswarm/embeddb"
//
//	ctl := embeddb.NewController(
//	    embeddb.WithPort(9001),
//	    embeddb.WithDatabase("sampledata", "scripts/sampledata.sql"),
//	)
//	running, err := ctl.Start(context.Background())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ctl.Stop()
//
// # Host Hooks
//
// Hosts configured through string parameters use OnInit and OnShutdown and
// keep the returned Handle:
//
//	h := embeddb.OnInit(ctx, map[string]string{
//	    "embeddb-port":      "9001",
//	    "embeddb-databases": "sampledata@scripts/sampledata.sql",
//	})
//	defer embeddb.OnShutdown(h)
//
// # Ports
//
// A requested port outside [0, 65535] or already taken is replaced by the
// failover port when failover is allowed (WithAllowPortFailover). If the
// server loses the race for its port after the check, the controller
// retries on the next port up to WithMaxBindAttempts times.
//
// # Security
//
// The embedded server listens on all interfaces and the provisioning user
// is a superuser with an empty password. Only run it on localhost or a
// trusted network.
package embeddb
