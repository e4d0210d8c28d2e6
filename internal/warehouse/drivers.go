package warehouse

import (
	"fmt"
	"sort"

	_ "github.com/go-sql-driver/mysql"     // mysql
	_ "github.com/jackc/pgx/v5/stdlib"     // pgx
	_ "github.com/snowflakedb/gosnowflake" // snowflake
	_ "modernc.org/sqlite"                 // sqlite
)

// engineDrivers maps the configured engine name to the registered
// database/sql driver.
var engineDrivers = map[string]string{
	"postgres":  "pgx",
	"mysql":     "mysql",
	"snowflake": "snowflake",
	"sqlite":    "sqlite",
}

func driverFor(engine string) (string, error) {
	driver, ok := engineDrivers[engine]
	if !ok {
		return "", fmt.Errorf("unsupported warehouse engine %q (available: %v)", engine, Engines())
	}
	return driver, nil
}

// Engines lists the supported engine names.
func Engines() []string {
	names := make([]string, 0, len(engineDrivers))
	for n := range engineDrivers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
