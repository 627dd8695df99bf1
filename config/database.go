package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/greenhill/schoolsite/models"
)

var db *gorm.DB

// InitDatabase establishes a connection to MySQL using configuration values and performs automatic migrations.
func InitDatabase(modelDefs ...interface{}) *gorm.DB {
	if db != nil {
		return db
	}

	cfg := Get()
	var dsn string
	if cfg.DatabaseURI != "" {
		dsn = cfg.DatabaseURI
	} else {
		dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			cfg.DBUser,
			cfg.DBPassword,
			cfg.DBHost,
			cfg.DBPort,
			cfg.DBName,
		)
	}

	// GORM logger: derive level from app LogLevel and raise slow-sql threshold to reduce noise
	gLogger := logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             2 * time.Second,
			LogLevel:                  toGormLogLevel(cfg.LogLevel),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	gormCfg := &gorm.Config{
		Logger:                                   gLogger,
		DisableForeignKeyConstraintWhenMigrating: true,
	}

	var err error
	db, err = gorm.Open(mysql.Open(dsn), gormCfg)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get sql.DB: %v", err)
	}

	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	// Ping at boot so network/auth problems surface before the first query
	if err := sqlDB.Ping(); err != nil {
		log.Fatalf("database ping failed: %v", err)
	}

	for _, model := range modelDefs {
		if err := db.AutoMigrate(model); err != nil {
			log.Printf("auto migration failed for %T: %v", model, err)
		}
	}

	SeedStaffDirectory(db)
	promoteBootstrapAdmin(db, cfg.BootstrapAdminEmail)

	return db
}

// toGormLogLevel maps application LogLevel to GORM's logger level.
func toGormLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		// GORM 'Info' shows SQL; use with caution
		return logger.Info
	case "info", "":
		return logger.Warn
	case "warn":
		return logger.Warn
	case "error":
		return logger.Error
	case "silent":
		return logger.Silent
	default:
		return logger.Warn
	}
}

// DB provides access to initialized gorm DB instance.
func DB() *gorm.DB {
	if db == nil {
		log.Fatal("database not initialized, call InitDatabase first")
	}
	return db
}

// defaultStaffDirectory is the static seed applied once against an
// empty directory table. Members are editable afterwards; category
// names are fixed by design.
var defaultStaffDirectory = []models.StaffCategory{
	{
		Name:      "Board of Trustees",
		SortOrder: 1,
		Members: []models.StaffMember{
			{Name: "To be announced", Position: "Chair", SortOrder: 1},
		},
	},
	{
		Name:      "School Leadership",
		SortOrder: 2,
		Members: []models.StaffMember{
			{Name: "To be announced", Position: "Principal", SortOrder: 1},
		},
	},
	{
		Name:      "Teaching Staff",
		SortOrder: 3,
	},
	{
		Name:      "Administration",
		SortOrder: 4,
	},
}

// SeedStaffDirectory inserts the default directory categories when the
// table is empty. Reruns are no-ops.
func SeedStaffDirectory(db *gorm.DB) {
	var count int64
	if err := db.Model(&models.StaffCategory{}).Count(&count).Error; err != nil {
		log.Printf("staff directory seed check failed: %v", err)
		return
	}
	if count > 0 {
		return
	}
	for i := range defaultStaffDirectory {
		cat := defaultStaffDirectory[i]
		if err := db.Create(&cat).Error; err != nil {
			log.Printf("failed to seed staff category %q: %v", cat.Name, err)
		}
	}
}

// promoteBootstrapAdmin grants the admin role to the configured
// bootstrap account if it exists and is not already an admin. Without
// this there would be no first admin able to grant roles.
func promoteBootstrapAdmin(db *gorm.DB, email string) {
	if email == "" {
		return
	}
	res := db.Model(&models.User{}).
		Where("email = ? AND role <> ?", email, models.RoleAdmin).
		Update("role", models.RoleAdmin)
	if res.Error != nil {
		log.Printf("bootstrap admin promotion failed: %v", res.Error)
		return
	}
	if res.RowsAffected > 0 {
		log.Printf("promoted bootstrap admin account %s", email)
	}
}
