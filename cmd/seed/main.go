package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"pawhaven/internal/config"
	"pawhaven/internal/db"
	"pawhaven/internal/model"
	"pawhaven/internal/repository"
)

// SeedPetData is the catalog entry shape accepted from a file or URL.
type SeedPetData struct {
	Name        string `json:"name"`
	Breed       string `json:"breed"`
	AgeYears    int    `json:"age_years"`
	AgeMonths   int    `json:"age_months"`
	Gender      string `json:"gender"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	Price       string `json:"price"`
}

func main() {
	source := flag.String("source", "seed/pets.json", "path or URL of the pet catalog JSON")
	flag.Parse()

	log.Println("Starting seed script...")

	// Load configuration
	cfg := config.Load()

	// Connect to database
	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Connected to database")

	// Run migrations to ensure schema is up to date
	if err := gormDB.AutoMigrate(&model.Pet{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	log.Printf("Loading pets from: %s", *source)
	pets, err := loadPets(*source)
	if err != nil {
		log.Fatalf("Failed to load pets: %v", err)
	}
	log.Printf("Loaded %d pets", len(pets))

	// Convert to model.Pet
	modelPets := make([]model.Pet, 0, len(pets))
	skipped := 0
	for _, item := range pets {
		if item.Name == "" || item.Breed == "" {
			log.Printf("Skipping pet with missing name or breed: %+v", item)
			skipped++
			continue
		}

		price, err := decimal.NewFromString(item.Price)
		if err != nil {
			log.Printf("Skipping pet %s with invalid price: %s", item.Name, item.Price)
			skipped++
			continue
		}

		pet := model.Pet{
			Name:        item.Name,
			Breed:       item.Breed,
			AgeYears:    item.AgeYears,
			AgeMonths:   item.AgeMonths,
			Gender:      item.Gender,
			Description: item.Description,
			ImageURL:    item.ImageURL,
			Status:      model.PetStatusAvailable,
			Price:       price,
		}
		modelPets = append(modelPets, pet)
	}

	if skipped > 0 {
		log.Printf("Skipped %d invalid pets", skipped)
	}

	petRepo := repository.NewPetRepository(gormDB)
	ctx := context.Background()

	log.Println("Seeding pets into database...")
	seeded, updated, err := seedPets(ctx, petRepo, modelPets)
	if err != nil {
		log.Fatalf("Failed to seed pets: %v", err)
	}

	log.Printf("Seed completed successfully!")
	log.Printf("  - New pets created: %d", seeded)
	log.Printf("  - Existing pets updated: %d", updated)
	log.Printf("  - Total pets processed: %d", seeded+updated)
}

// loadPets reads the catalog JSON from a local file or an http(s) URL.
func loadPets(source string) ([]SeedPetData, error) {
	var body []byte
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		resp, err := http.Get(source)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch from URL: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("URL returned status code: %d", resp.StatusCode)
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}
	} else {
		var err error
		body, err = os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
	}

	var pets []SeedPetData
	if err := json.Unmarshal(body, &pets); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	return pets, nil
}

// seedPets inserts pets, matching existing rows by name and breed so the
// script can be re-run without duplicating the catalog.
func seedPets(ctx context.Context, repo repository.PetRepository, pets []model.Pet) (seeded int, updated int, err error) {
	existing, err := repo.ListAll(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("error listing pets: %w", err)
	}

	byKey := make(map[string]*model.Pet, len(existing))
	for i := range existing {
		key := existing[i].Name + "|" + existing[i].Breed
		byKey[key] = &existing[i]
	}

	for _, pet := range pets {
		key := pet.Name + "|" + pet.Breed
		if current, ok := byKey[key]; ok {
			// Update catalog fields but never touch adoption status; that
			// belongs to the payment flow.
			current.AgeYears = pet.AgeYears
			current.AgeMonths = pet.AgeMonths
			current.Gender = pet.Gender
			current.Description = pet.Description
			current.ImageURL = pet.ImageURL
			current.Price = pet.Price
			if err := repo.Update(ctx, current); err != nil {
				return seeded, updated, fmt.Errorf("error updating pet %s: %w", pet.Name, err)
			}
			updated++
		} else {
			pet := pet
			if err := repo.Create(ctx, &pet); err != nil {
				return seeded, updated, fmt.Errorf("error creating pet %s: %w", pet.Name, err)
			}
			seeded++
		}
	}

	return seeded, updated, nil
}
