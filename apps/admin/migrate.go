package main

import (
	"context"
	"errors"

	"github.com/trezcool/academia/storage/database"
)

var migrateFunc = database.RunMigration // mockable

var errNoDatabase = errors.New("migrations need a postgres database, not the in-memory one")

func (cli *commandLine) migrate(ctx context.Context, args []string) error {
	if cli.db == nil {
		return errNoDatabase
	}
	return migrateFunc(ctx, cli.db, args[0], args[1:]...)
}
