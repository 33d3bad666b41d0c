package db

import (
	"database/sql"
	"fmt"
	"log"

	"ScoreRack/config"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

var DB *sql.DB

// ConnectDB establishes a connection to the database.
func ConnectDB(cfg *config.Config) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	var err error
	DB, err = sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	if err = DB.Ping(); err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Successfully connected to the database.")
	return nil
}

// InitDB initializes the database schema, creating tables if they don't exist.
// Catalog tables (pieces, sections, instruments, voices) are migrated by the
// GORM layer; the tables owned here are the sql.DB repositories' ones.
func InitDB() error {
	if err := createUsersTable(); err != nil {
		return err
	}
	if err := createBundlesTable(); err != nil {
		return err
	}
	if err := createScoreFilesTable(); err != nil {
		return err
	}

	log.Println("Database initialization completed.")
	return nil
}

func createUsersTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id INT AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(100) NOT NULL UNIQUE,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		is_manager TINYINT(1) NOT NULL DEFAULT 0,
		instrument_id BIGINT NOT NULL DEFAULT 0,
		voice_id BIGINT NOT NULL DEFAULT 0,
		phone VARCHAR(20),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	);
	`
	_, err := DB.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	log.Println("Users table initialized successfully (or already exists).")
	return nil
}

func createBundlesTable() error {
	// voice_id 0 is the general part; storing 0 instead of NULL keeps the
	// unique key effective for general-part bundles as well.
	query := `
	CREATE TABLE IF NOT EXISTS bundles (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		piece_id BIGINT NOT NULL,
		instrument_id BIGINT NOT NULL,
		voice_id BIGINT NOT NULL DEFAULT 0,
		audio_guide_path VARCHAR(767) NOT NULL DEFAULT '',
		audio_guide_name VARCHAR(255) NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		CONSTRAINT uq_piece_instrument_voice UNIQUE (piece_id, instrument_id, voice_id),
		INDEX idx_bundles_piece (piece_id)
	);
	`
	_, err := DB.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create bundles table: %w", err)
	}
	log.Println("Bundles table initialized successfully (or already exists).")
	return nil
}

func createScoreFilesTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS score_files (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		bundle_id BIGINT NOT NULL,
		object_path VARCHAR(767) NOT NULL,
		original_name VARCHAR(255) NOT NULL,
		kind VARCHAR(20) NOT NULL DEFAULT 'document',
		position INT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		CONSTRAINT fk_bundle_files FOREIGN KEY (bundle_id) REFERENCES bundles(id) ON DELETE CASCADE,
		INDEX idx_score_files_bundle (bundle_id, position)
	);
	`
	_, err := DB.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create score_files table: %w", err)
	}
	log.Println("Score files table initialized successfully (or already exists).")
	return nil
}
