package action

import "fmt"

var (
	// Console
	defaultConsoleAddr       = "127.0.0.1:2137"
	defaultPublicConsoleAddr = fmt.Sprintf("http://%s", defaultConsoleAddr)

	// SQLite config
	defaultDatabasePath = "outpost.sqlite"
	defaultDatabaseType = "memory"
)
