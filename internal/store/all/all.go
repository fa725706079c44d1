// Package all registers every store backend with the factory. Import it for
// side effects from binaries that select the backend at runtime.
package all

import (
	_ "dsimport/internal/store/clickhouse"
	_ "dsimport/internal/store/postgres"
	_ "dsimport/internal/store/sqlite"
)
