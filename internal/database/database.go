package database

import (
	"database/sql"
	"log"
	"net/url"
	"strings"

	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/medirx/internal/ledger"
	"github.com/example/medirx/internal/models"
)

// Connect initializes the database connection, runs migrations and seeds
// the built-in reward configuration.
func Connect(dsn string) *gorm.DB {
	if err := ensureDatabase(dsn); err != nil {
		log.Fatalf("failed to ensure database: %v", err)
	}

	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := Migrate(conn); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}

	if err := seedRewardConfig(conn); err != nil {
		log.Fatalf("reward config seeding failed: %v", err)
	}

	return conn
}

// Migrate runs AutoMigrate for every model, in dependency order.
func Migrate(conn *gorm.DB) error {
	migrations := []interface{}{
		&models.User{},
		&models.Role{},
		&models.RefreshToken{},
		&models.DoctorProfile{},
		&models.PrescriptionFolder{},
		&models.Prescription{},
		&models.PrescriptionItem{},
		&models.MedicineComparison{},
		&models.UserActivity{},
		&models.RewardRule{},
		&models.RewardBadge{},
		&models.UserRewardBadge{},
		&models.PatientReward{},
		&models.RewardTransaction{},
		&models.RewardPointConversion{},
		&models.UserBalance{},
	}

	for _, migration := range migrations {
		if err := conn.AutoMigrate(migration); err != nil {
			return err
		}
	}

	return nil
}

// seedRewardConfig creates the built-in rewarded activities and their
// default rules when missing. Admin-created activities get generated codes;
// these two are fixed so handlers can reference them.
func seedRewardConfig(conn *gorm.DB) error {
	seeds := []struct {
		activity models.UserActivity
		rule     models.RewardRule
	}{
		{
			activity: models.UserActivity{
				ActivityCode:  ledger.CodeFolderCreated,
				ActivityName:  "Prescription folder created",
				ActivityPoint: 10,
			},
			rule: models.RewardRule{
				ActivityCode: ledger.CodeFolderCreated,
				DisplayText:  "Created a prescription folder",
				RewardType:   models.RewardNoncashable,
				Points:       10,
				IsActive:     true,
			},
		},
		{
			activity: models.UserActivity{
				ActivityCode:  ledger.CodeMedicineCompared,
				ActivityName:  "Medicines compared",
				ActivityPoint: 5,
			},
			rule: models.RewardRule{
				ActivityCode: ledger.CodeMedicineCompared,
				DisplayText:  "Compared two medicines",
				RewardType:   models.RewardNoncashable,
				Points:       5,
				IsActive:     true,
			},
		},
	}

	for _, seed := range seeds {
		var count int64
		if err := conn.Model(&models.UserActivity{}).
			Where("activity_code = ?", seed.activity.ActivityCode).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := conn.Create(&seed.activity).Error; err != nil {
			return err
		}
		if err := conn.Create(&seed.rule).Error; err != nil {
			return err
		}
	}

	return nil
}

func ensureDatabase(dsn string) error {
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return nil
	}

	parsed, err := url.Parse(dsn)
	if err != nil {
		return err
	}

	dbName := strings.TrimPrefix(parsed.Path, "/")
	if dbName == "" {
		return nil
	}

	parsed.Path = "/postgres"
	masterDSN := parsed.String()

	sqlDB, err := sql.Open("postgres", masterDSN)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		return err
	}

	var exists bool
	if err := sqlDB.QueryRow("SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", dbName).Scan(&exists); err != nil {
		return err
	}

	if exists {
		return nil
	}

	_, err = sqlDB.Exec("CREATE DATABASE " + pq.QuoteIdentifier(dbName))
	return err
}
