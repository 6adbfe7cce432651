package sqlite

import (
	"database/sql"

	"github.com/glossahq/glossa/internal/settings"
)

// OpenStore opens a settings store at the given path outside the module
// lifecycle. The setup wizard uses it to seed the database before the daemon
// first runs. The caller closes the returned *sql.DB when done.
//
// The database is created with WAL mode, a 5 s busy timeout, and a single
// connection. The schema is migrated automatically.
func OpenStore(path string) (settings.Store, *sql.DB, error) {
	db, err := openDB(path, true, defaultBusyTimeout)
	if err != nil {
		return nil, nil, err
	}
	return newSettingsStore(db), db, nil
}
