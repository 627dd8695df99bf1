package main

import (
	"time"

	"github.com/greenhill/schoolsite/config"
	"github.com/greenhill/schoolsite/models"
	"github.com/greenhill/schoolsite/routes"
	"github.com/greenhill/schoolsite/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.Message{},
		&models.Event{},
		&models.StaffCategory{},
		&models.StaffMember{},
		&models.UploadedFile{},
	)

	r := routes.SetupRouter(db)

	// Background reconciliation of the upload ledger (best-effort)
	cleanupInterval := time.Duration(cfg.UploadCleanupMinutes) * time.Minute
	utils.StartUploadCleaner(cleanupInterval)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
