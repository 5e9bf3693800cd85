package main

import (
	"fmt"
	"os"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/exam"
	logsvc "github.com/trezcool/academia/services/logger"
	"github.com/trezcool/academia/storage/database"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
	sqlxrepos "github.com/trezcool/academia/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewZapLogger(conf)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := logsvc.NewRollbarLogger(zl.Named("admin"), conf)
	defer logger.Sync()

	cli := commandLine{out: os.Stdout}

	if conf.Database.InMemory {
		mem := inmemdb.Open()
		cli.usrRepo = inmemdb.NewUserRepository(mem)
		cli.examSvc = exam.NewService(inmemdb.NewExamRepository(mem), inmemdb.NewCourseRepository(mem), logger)
	} else {
		if err := database.CreateIfNotExist(conf); err != nil {
			logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
		}
		db, err := database.Open(conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
		}
		defer db.Close()

		cli.db = db.DB
		cli.usrRepo = sqlxrepos.NewUserRepository(db)
		cli.examSvc = exam.NewService(sqlxrepos.NewExamRepository(db), sqlxrepos.NewCourseRepository(db), logger)
	}

	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		logger.Sync()
		os.Exit(1)
	}
}
