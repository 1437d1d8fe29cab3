package main

import (
	"context"
	"log"
	"os"

	echoapi "github.com/studyhub/studyhub/apps/api/echo"
	"github.com/studyhub/studyhub/core"
	"github.com/studyhub/studyhub/core/notes"
	"github.com/studyhub/studyhub/core/session"
	dummyauth "github.com/studyhub/studyhub/services/auth/dummy"
	firebaseauth "github.com/studyhub/studyhub/services/auth/firebase"
	logsvc "github.com/studyhub/studyhub/services/logger"
	"github.com/studyhub/studyhub/storage/database"
	sqlxrepos "github.com/studyhub/studyhub/storage/database/sqlx"
	firestoredoc "github.com/studyhub/studyhub/storage/docstore/firestore"
	inmemdoc "github.com/studyhub/studyhub/storage/docstore/inmem"
	ossobj "github.com/studyhub/studyhub/storage/objstore/oss"
)

func main() {
	conf := core.NewConfig()
	std := log.New(os.Stdout, conf.AppName+" - ", log.LstdFlags|log.Lshortfile)

	var logger core.Logger
	if conf.Debug || conf.RollbarToken == "" {
		logger = core.NewStdLogger(std)
	} else {
		logger = logsvc.NewRollbarLogger(std, conf)
	}

	// document store: hosted when configured, in-memory for local development
	var store core.Docstore
	if conf.DocstoreConfigured() {
		db, err := firestoredoc.Open(context.Background(), conf)
		errAndDie(std, err)
		defer func() { _ = db.Close() }()
		store = db
	} else {
		logger.Warn("no docstore credentials; using the in-memory store")
		store = inmemdoc.Open()
	}

	var auth session.AuthProvider
	if conf.Auth.APIKey != "" {
		auth = firebaseauth.NewProvider(conf)
	} else {
		logger.Warn("no auth credentials; using the in-memory provider")
		auth = dummyauth.NewProvider()
	}

	// notes storage is optional; endpoints degrade when unconfigured
	var notesRepo notes.Repository
	if conf.DatabaseConfigured() {
		db, err := database.Open(conf)
		errAndDie(std, err)
		defer func() { _ = db.Close() }()
		notesRepo = sqlxrepos.NewNotesRepository(db)
	}
	var files notes.FileStorage
	if conf.ObjectStorageConfigured() {
		st, err := ossobj.NewStore(conf)
		errAndDie(std, err)
		files = st
	}

	app := echoapi.NewServer(
		&echoapi.Options{
			Addr:      conf.Server.Addr,
			Conf:      conf,
			Logger:    logger,
			Auth:      auth,
			Docstore:  store,
			NotesRepo: notesRepo,
			Files:     files,
		},
	)
	app.Start()
}

func errAndDie(std *log.Logger, err error) {
	if err != nil {
		std.Fatal(err)
	}
}
