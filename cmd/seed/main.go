package main

import (
	"context"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/vetdesk/appointment-service/internal/db"
)

var log = zerolog.New(os.Stdout).With().Timestamp().Str("app", "seed").Logger()

func main() {
	log.Info().Msg("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal().Msg("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedVeterinarians(context.Background(), pool, 30); err != nil {
		log.Fatal().Err(err).Msg("seed veterinarians")
	}
	if err := seedClientsWithAnimals(context.Background(), pool, 2000); err != nil {
		log.Fatal().Err(err).Msg("seed clients")
	}

	log.Info().Msg("seed complete")
}

func seedVeterinarians(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Info().Int("count", count).Msg("seeding veterinarians")

	specialties := []string{
		"General Practice",
		"Surgery",
		"Dermatology",
		"Cardiology",
		"Dentistry",
		"Exotic Animals",
		"Ophthalmology",
		"Orthopedics",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO veterinarians (id, name, specialty, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, id, name, spec)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Info().Msg("veterinarians seeded")
	return nil
}

func seedClientsWithAnimals(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Info().Int("count", count).Msg("seeding clients with animals")

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			clientID := uuid.New()

			_, err := tx.Exec(ctx, `
				INSERT INTO clients (id, name, email, phone, created_at, updated_at)
				VALUES ($1, $2, $3, $4, now(), now())
			`, clientID, gofakeit.Name(), gofakeit.Email(), gofakeit.Phone())
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}

			// Each client owns one to three animals.
			for n := 0; n < gofakeit.Number(1, 3); n++ {
				species := gofakeit.RandomString([]string{"dog", "cat", "rabbit", "bird"})
				_, err := tx.Exec(ctx, `
					INSERT INTO animals (id, client_id, name, species, breed, created_at, updated_at)
					VALUES ($1, $2, $3, $4, $5, now(), now())
				`, uuid.New(), clientID, gofakeit.PetName(), species, gofakeit.Adjective())
				if err != nil {
					_ = tx.Rollback(ctx)
					return err
				}
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Info().Int("seeded", end).Int("total", count).Msg("clients seeded")
	}

	log.Info().Msg("clients seeded")
	return nil
}
