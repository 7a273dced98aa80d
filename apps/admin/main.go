package main

import (
	"log"
	"os"

	"github.com/wakahia/baraza/core"
	"github.com/wakahia/baraza/core/profile"
	"github.com/wakahia/baraza/services/logger"
	"github.com/wakahia/baraza/storage/database"
	"github.com/wakahia/baraza/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(db.Ping())

	// start CLI
	cli := commandLine{
		db:      db,
		profSvc: profile.NewService(sqlxrepos.NewProfileRepository(db), conf, logsvc.NewConsoleLogger(logger)),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
