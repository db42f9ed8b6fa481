package main

import (
	"log"

	"gorm.io/gorm"

	"karton/pkg/bootstrap"
)

var db *gorm.DB

func initDB() {
	var err error
	db, err = bootstrap.OpenDB(cfg.Database)
	if err != nil {
		log.Fatal("failed to connect database:", err)
	}
	// DB_AUTO_MIGRATE=false skips schema changes; permission errors are logged and ignored.
	if cfg.Database.AutoMigrate {
		bootstrap.Migrate(db)
	}
	seedDB()
}

func seedDB() {
	if err := bootstrap.Seed(db); err != nil {
		log.Printf("seed warning: %v", err)
	}
	bootstrap.EnsureDirs(cfg.Storage)
}
