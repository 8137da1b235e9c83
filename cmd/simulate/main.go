package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/scheduling/internal/config"
	"github.com/clinicore/scheduling/internal/db"
	"github.com/clinicore/scheduling/internal/timerange"
)

// simulate hammers the booking API with deliberately colliding requests to
// measure throughput and verify that no doctor slot is ever double-booked.

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	BookingRatio float64
	BrowseRatio  float64
	ReadRatio    float64
	PatientLimit int
	DoctorLimit  int
	PostgresDSN  string
}

type DataPool struct {
	TenantID uuid.UUID
	Doctors  []uuid.UUID
	Patients []uuid.UUID

	mu           sync.RWMutex
	appointments []uuid.UUID
}

func (dp *DataPool) AddAppointment(id uuid.UUID) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, id)
}

func (dp *DataPool) RandomAppointment(rng *rand.Rand) (uuid.UUID, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return uuid.Nil, false
	}
	return dp.appointments[rng.Intn(len(dp.appointments))], true
}

type OperationMetrics struct {
	Total    int64
	Success  int64
	Conflict int64
	Error    int64

	mu        sync.Mutex
	latencies []time.Duration
}

func (om *OperationMetrics) Record(latency time.Duration, success, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case success:
		atomic.AddInt64(&om.Success, 1)
	case conflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.latencies = append(om.latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.latencies) == 0 {
		return 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.latencies))
	copy(latencies, om.latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	avg = sum / time.Duration(len(latencies))

	idx := func(p int) int {
		i := len(latencies) * p / 100
		if i >= len(latencies) {
			i = len(latencies) - 1
		}
		return i
	}
	return avg, latencies[idx(50)], latencies[idx(95)]
}

type Metrics struct {
	Booking OperationMetrics
	Browse  OperationMetrics
	Read    OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	metrics Metrics
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	log.Printf("config: duration=%s workers=%d booking=%.2f browse=%.2f read=%.2f",
		cfg.Duration, cfg.Workers, cfg.BookingRatio, cfg.BrowseRatio, cfg.ReadRatio)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pgPool.Close()

	dataPool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		log.Fatalf("load data pool: %v", err)
	}

	log.Printf("loaded: tenant=%s %d doctors, %d patients",
		dataPool.TenantID, len(dataPool.Doctors), len(dataPool.Patients))

	sim := &Simulator{
		config: cfg,
		pool:   dataPool,
		client: &http.Client{Timeout: 10 * time.Second},
	}

	sim.Run()
	sim.PrintReport(pgPool)
}

func loadConfig() SimConfig {
	baseCfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load base config: %v", err)
	}

	cfg := SimConfig{
		APIBaseURL:   getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:     getDuration("SIM_DURATION", 30*time.Second),
		Workers:      getInt("SIM_WORKERS", 10),
		BookingRatio: getFloat("SIM_BOOKING_RATIO", 0.5),
		BrowseRatio:  getFloat("SIM_BROWSE_RATIO", 0.3),
		ReadRatio:    getFloat("SIM_READ_RATIO", 0.2),
		PatientLimit: getInt("SIM_PATIENT_LIMIT", 4000),
		DoctorLimit:  getInt("SIM_DOCTOR_LIMIT", 20),
		PostgresDSN:  baseCfg.PostgresDSN,
	}

	// Normalize ratios
	total := cfg.BookingRatio + cfg.BrowseRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.BrowseRatio /= total
		cfg.ReadRatio /= total
	}

	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required (set in .env or environment)")
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	return nil
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	dataPool := &DataPool{}

	err := pool.QueryRow(ctx, `SELECT tenant_id FROM doctors LIMIT 1`).Scan(&dataPool.TenantID)
	if err != nil {
		return nil, fmt.Errorf("load tenant: %w (run cmd/seed first)", err)
	}

	// A small doctor pool maximizes collisions on the same calendar days.
	rows, err := pool.Query(ctx, `
		SELECT id FROM doctors WHERE tenant_id = $1 LIMIT $2
	`, dataPool.TenantID, cfg.DoctorLimit)
	if err != nil {
		return nil, fmt.Errorf("load doctors: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		dataPool.Doctors = append(dataPool.Doctors, id)
	}

	rows, err = pool.Query(ctx, `
		SELECT id FROM patients WHERE tenant_id = $1 LIMIT $2
	`, dataPool.TenantID, cfg.PatientLimit)
	if err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		dataPool.Patients = append(dataPool.Patients, id)
	}

	if len(dataPool.Doctors) == 0 {
		return nil, fmt.Errorf("no doctors loaded")
	}
	if len(dataPool.Patients) == 0 {
		return nil, fmt.Errorf("no patients loaded")
	}

	return dataPool, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	log.Printf("starting simulation for %s with %d workers", s.config.Duration, s.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	log.Println("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		roll := rng.Float64()
		switch {
		case roll < s.config.BookingRatio:
			s.doBooking(ctx, rng)
		case roll < s.config.BookingRatio+s.config.BrowseRatio:
			s.doBrowse(ctx, rng)
		default:
			s.doRead(ctx, rng)
		}
	}
}

// bookingWindow picks a weekday within the next two weeks and a 30-minute
// window in the 09:00-12:00 morning block. The narrow window set is the point:
// it forces workers onto the same slots so the conflict path gets exercised.
func bookingWindow(rng *rand.Rand) (date string, start, end int) {
	day := time.Now().UTC().AddDate(0, 0, 2+rng.Intn(14))
	for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
		day = day.AddDate(0, 0, 1)
	}
	start = (9 + rng.Intn(3)) * 60
	if rng.Intn(2) == 1 {
		start += 30
	}
	return day.Format(timerange.DateLayout), start, start + 30
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	doctorID := s.pool.Doctors[rng.Intn(len(s.pool.Doctors))]
	patientID := s.pool.Patients[rng.Intn(len(s.pool.Patients))]
	date, start, end := bookingWindow(rng)

	body, _ := json.Marshal(map[string]any{
		"doctor_id":  doctorID.String(),
		"patient_id": patientID.String(),
		"date":       date,
		"start":      minuteString(start),
		"end":        minuteString(end),
	})

	began := time.Now()
	resp, err := s.post(ctx, "/appointments", body)
	latency := time.Since(began)
	if err != nil {
		s.metrics.Booking.Record(latency, false, false)
		return
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusCreated:
		var created struct {
			ID uuid.UUID `json:"id"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&created); err == nil {
			s.pool.AddAppointment(created.ID)
		}
		s.metrics.Booking.Record(latency, true, false)
	case http.StatusConflict:
		s.metrics.Booking.Record(latency, false, true)
	default:
		s.metrics.Booking.Record(latency, false, false)
	}
}

func (s *Simulator) doBrowse(ctx context.Context, rng *rand.Rand) {
	doctorID := s.pool.Doctors[rng.Intn(len(s.pool.Doctors))]
	date, _, _ := bookingWindow(rng)

	began := time.Now()
	resp, err := s.get(ctx, "/doctors/"+doctorID.String()+"/slots?date="+date+"&duration=30")
	latency := time.Since(began)
	if err != nil {
		s.metrics.Browse.Record(latency, false, false)
		return
	}
	defer drain(resp)
	s.metrics.Browse.Record(latency, resp.StatusCode == http.StatusOK, false)
}

func (s *Simulator) doRead(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.RandomAppointment(rng)
	if !ok {
		return
	}

	began := time.Now()
	resp, err := s.get(ctx, "/appointments/"+id.String())
	latency := time.Since(began)
	if err != nil {
		s.metrics.Read.Record(latency, false, false)
		return
	}
	defer drain(resp)
	s.metrics.Read.Record(latency, resp.StatusCode == http.StatusOK, false)
}

func (s *Simulator) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIBaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", s.pool.TenantID.String())
	return s.client.Do(req)
}

func (s *Simulator) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.APIBaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Tenant-ID", s.pool.TenantID.String())
	return s.client.Do(req)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

func (s *Simulator) PrintReport(pgPool *pgxpool.Pool) {
	printOp := func(name string, om *OperationMetrics) {
		avg, p50, p95 := om.Stats()
		log.Printf("%-8s total=%d success=%d conflict=%d error=%d avg=%s p50=%s p95=%s",
			name,
			atomic.LoadInt64(&om.Total),
			atomic.LoadInt64(&om.Success),
			atomic.LoadInt64(&om.Conflict),
			atomic.LoadInt64(&om.Error),
			avg, p50, p95,
		)
	}

	log.Println("---- simulation report ----")
	printOp("booking", &s.metrics.Booking)
	printOp("browse", &s.metrics.Browse)
	printOp("read", &s.metrics.Read)

	// The invariant check: no doctor may hold two overlapping active
	// appointments, no matter how hard the workers collided.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var doubles int
	err := pgPool.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments a
		JOIN appointments b
		  ON a.tenant_id = b.tenant_id
		 AND a.doctor_id = b.doctor_id
		 AND a.date = b.date
		 AND a.id < b.id
		 AND a.start_minute < b.end_minute
		 AND b.start_minute < a.end_minute
		WHERE a.status IN ('scheduled', 'confirmed', 'in_progress')
		  AND b.status IN ('scheduled', 'confirmed', 'in_progress')
	`).Scan(&doubles)
	if err != nil {
		log.Printf("double-booking check failed: %v", err)
		return
	}
	if doubles > 0 {
		log.Printf("INVARIANT VIOLATED: %d overlapping active appointment pairs found", doubles)
	} else {
		log.Println("no double-bookings detected")
	}
}

func minuteString(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
