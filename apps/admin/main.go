package main

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/admission"
	"github.com/trezcool/admissions/core/session"
	"github.com/trezcool/admissions/core/staff"
	appfs "github.com/trezcool/admissions/fs"
	emailsvc "github.com/trezcool/admissions/services/email"
	logsvc "github.com/trezcool/admissions/services/logger"
	"github.com/trezcool/admissions/storage/database"
	sqlxrepos "github.com/trezcool/admissions/storage/database/sqlx"
	"github.com/trezcool/admissions/storage/files"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up DB & repos
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.OpenX(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	defer func() { _ = db.Close() }()

	docs, err := files.NewLocalStore(conf.Storage.MediaRoot, conf.Storage.PhotoMaxDimension)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up document store: %v", err), err)
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	core.ParseEmailTemplates(appfs.FS, "templates/email", conf, logger)

	sessionSvc := session.NewService(sqlxrepos.NewSessionRepository(db), validate, translator)
	admissionSvc := admission.NewService(
		sqlxrepos.NewApplicationRepository(db),
		sessionSvc,
		docs,
		admission.NewValidator(validate, translator, conf.Admission),
		emailsvc.NewService(conf, logger),
		logger,
		conf.Admission,
	)

	// start CLI
	cli := commandLine{
		db:           db.DB,
		out:          os.Stdout,
		staffSvc:     staff.NewService(sqlxrepos.NewStaffRepository(db), validate, translator),
		sessionSvc:   sessionSvc,
		admissionSvc: admissionSvc,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		_ = db.Close()
		os.Exit(1)
	}
}
