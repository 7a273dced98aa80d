package main

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/wakahia/baraza/apps/api/echo"
	"github.com/wakahia/baraza/core"
	"github.com/wakahia/baraza/core/chat"
	"github.com/wakahia/baraza/core/profile"
	"github.com/wakahia/baraza/realtime"
	"github.com/wakahia/baraza/services/logger"
	"github.com/wakahia/baraza/storage/database"
	"github.com/wakahia/baraza/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	var appLog core.Logger
	if conf.Debug || conf.Rollbar.Token == "" {
		appLog = logsvc.NewConsoleLogger(std)
	} else {
		appLog = logsvc.NewRollbarLogger(std, conf)
	}

	// set up DB
	db, err := setUpDB(conf)
	errAndDie(appLog, err)
	defer db.Close()

	// push surface: Postgres LISTEN/NOTIFY fed by the messages insert trigger
	broker, err := realtime.NewPGBroker(database.URL(conf), conf.Chat.EventBuffer, appLog)
	errAndDie(appLog, err)
	defer broker.Close()

	// set up services
	profSvc := profile.NewService(sqlxrepos.NewProfileRepository(db), conf, appLog)
	chatSvc := chat.NewService(sqlxrepos.NewMessageRepository(db), profSvc, broker, conf, appLog)

	// start API server
	app := echoapi.NewServer(
		&echoapi.Options{
			Addr:       conf.Server.Addr(),
			AppConf:    conf,
			Logger:     appLog,
			ProfileSvc: profSvc,
			ChatSvc:    chatSvc,
		},
	)
	if err := app.Start(); err != nil {
		appLog.Fatal(err.Error())
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func errAndDie(log core.Logger, err error) {
	if err != nil {
		log.Fatal(err.Error())
	}
}
