package main

import (
	"database/sql"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// Load .env file
	if err := godotenv.Load("../../.env"); err != nil {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("No .env file found")
		}
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	migrationPath := os.Getenv("MIGRATION_PATH")
	if migrationPath == "" {
		migrationPath = "migrations/schema.sql"
	}
	content, err := os.ReadFile(migrationPath)
	if err != nil {
		cwd, _ := os.Getwd()
		log.Printf("Current working directory: %s", cwd)
		log.Fatalf("Failed to read migration file: %v", err)
	}

	log.Println("Running migration...")
	if _, err := db.Exec(string(content)); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Migration applied successfully!")

	seedAdmin(db)
}

// seedAdmin creates the initial admin account with module-wide grants
// on every registered module, unless a user already exists.
func seedAdmin(db *sql.DB) {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		log.Fatalf("Failed to check users table: %v", err)
	}
	if count > 0 {
		log.Println("Users already present, skipping admin seed")
		return
	}

	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		log.Println("ADMIN_EMAIL/ADMIN_PASSWORD not set, skipping admin seed")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash admin password: %v", err)
	}

	adminID := uuid.New().String()
	_, err = db.Exec(`
		INSERT INTO users (id, email, password_hash, name)
		VALUES ($1, $2, $3, 'Admin')`,
		adminID, email, string(hash))
	if err != nil {
		log.Fatalf("Failed to create admin user: %v", err)
	}

	for _, module := range []string{"posts", "posts.comments", "categories"} {
		for _, capability := range []string{"access-list", "edit"} {
			_, err = db.Exec(`
				INSERT INTO permissions (user_id, capability, module, record_id)
				VALUES ($1, $2, $3, NULL)`,
				adminID, capability, module)
			if err != nil {
				log.Fatalf("Failed to grant %s on %s: %v", capability, module, err)
			}
		}
	}

	log.Printf("Admin user %s created", email)
}
