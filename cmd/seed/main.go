package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/clinicore/scheduling/internal/db"
)

var specialties = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	doctorCount := flag.Int("doctors", 100, "doctors to seed per tenant")
	patientCount := flag.Int("patients", 9000, "patients to seed per tenant")
	tenantCount := flag.Int("tenants", 2, "tenants to seed")
	flag.Parse()

	log.Println("seed starting")

	_ = godotenv.Load()
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	for i := 0; i < *tenantCount; i++ {
		tenantID := uuid.New()
		log.Printf("seeding tenant %s", tenantID)

		doctors, err := seedDoctors(context.Background(), pool, tenantID, *doctorCount)
		if err != nil {
			log.Fatalf("seed doctors: %v", err)
		}
		if err := seedPatients(context.Background(), pool, tenantID, *patientCount); err != nil {
			log.Fatalf("seed patients: %v", err)
		}
		if err := seedWeeklySchedules(context.Background(), pool, tenantID, doctors); err != nil {
			log.Fatalf("seed weekly schedules: %v", err)
		}
	}

	log.Println("seed complete")
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, tenantID uuid.UUID, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d doctors", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, tenant_id, name, specialty, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
		`, id, tenantID, name, spec)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("doctors seeded")
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, tenantID uuid.UUID, count int) error {
	log.Printf("seeding %d patients", count)

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
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, tenant_id, name, email, created_at, updated_at)
				VALUES ($1, $2, $3, $4, now(), now())
			`, id, tenantID, name, email)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return nil
}

// seedWeeklySchedules gives every doctor a plausible working week: a morning
// block on weekdays, plus an afternoon block most days.
func seedWeeklySchedules(ctx context.Context, pool *pgxpool.Pool, tenantID uuid.UUID, doctors []uuid.UUID) error {
	log.Printf("seeding weekly schedules for %d doctors", len(doctors))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, doctorID := range doctors {
		for day := 1; day <= 5; day++ { // Monday through Friday
			morningStart := gofakeit.Number(8, 9) * 60
			_, err := tx.Exec(ctx, `
				INSERT INTO weekly_availability (id, tenant_id, doctor_id, day_of_week, start_minute, end_minute, active, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, TRUE, now(), now())
			`, uuid.New(), tenantID, doctorID, day, morningStart, 12*60)
			if err != nil {
				return err
			}

			if gofakeit.Number(0, 9) < 8 { // most weekdays get an afternoon block
				_, err := tx.Exec(ctx, `
					INSERT INTO weekly_availability (id, tenant_id, doctor_id, day_of_week, start_minute, end_minute, active, created_at, updated_at)
					VALUES ($1, $2, $3, $4, $5, $6, TRUE, now(), now())
				`, uuid.New(), tenantID, doctorID, day, 13*60, gofakeit.Number(17, 18)*60)
				if err != nil {
					return err
				}
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("weekly schedules seeded")
	return nil
}
