// Package db selects a store driver from the server profile.
package db

import (
	"github.com/pkg/errors"

	"github.com/toolhub/toolhub/server/profile"
	"github.com/toolhub/toolhub/store"
	"github.com/toolhub/toolhub/store/db/mysql"
	"github.com/toolhub/toolhub/store/db/postgres"
	"github.com/toolhub/toolhub/store/db/sqlite"
)

// NewDBDriver creates a new DB driver based on the profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	switch profile.Driver {
	case "sqlite":
		return sqlite.NewDB(profile)
	case "mysql":
		return mysql.NewDB(profile)
	case "postgres":
		return postgres.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver %q", profile.Driver)
	}
}
