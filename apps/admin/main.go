package main

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/studyhub/studyhub/core"
	"github.com/studyhub/studyhub/core/session"
	dummyauth "github.com/studyhub/studyhub/services/auth/dummy"
	firebaseauth "github.com/studyhub/studyhub/services/auth/firebase"
	"github.com/studyhub/studyhub/storage/database"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()

	// the notes DB is optional; migrate/createdb require it
	var db *sqlx.DB
	if conf.DatabaseConfigured() {
		var err error
		db, err = database.Open(conf)
		errAndDie(err)
		defer func() { _ = db.Close() }()
	}

	var auth session.AuthProvider
	if conf.Auth.APIKey != "" {
		auth = firebaseauth.NewProvider(conf)
	} else {
		auth = dummyauth.NewProvider()
	}

	cli := commandLine{
		conf: conf,
		db:   db,
		auth: auth,
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
