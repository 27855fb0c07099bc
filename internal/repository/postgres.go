// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/MuhammadIbneRafiq/rehome-backend-sub001/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrCityNotFound возвращается, если город отсутствует в таблице тарифов.
var (
	ErrCityNotFound = errors.New("city not found")
	// ErrConfigNotFound возвращается, если конфигурация расчёта отсутствует в БД.
	ErrConfigNotFound = errors.New("pricing config not found")
)

// PostgresRepository предоставляет доступ к данным расписания, блокировок,
// тарифов городов и конфигурации расчёта в PostgreSQL. Записи создаёт
// и обновляет внешний CRUD-слой; ядро расчёта их только читает,
// за исключением административной записи конфигурации.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		// Если ошибка контекста — выходим сразу
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		// Ретраи полезны для Serialization Failure и Deadlock;
		// переподключение pgxpool берёт на себя.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				if i < len(delays) {
					time.Sleep(delays[i])
					continue
				}
			}
		}

		if isConnectionError(err) {
			if i < len(delays) {
				time.Sleep(delays[i])
				continue
			}
		}

		break
	}
	return err
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// IsCityScheduled сообщает, входит ли город в маршрут на указанную дату.
// Отсутствие записи — штатная ситуация, а не ошибка.
func (r *PostgresRepository) IsCityScheduled(ctx context.Context, city string, day time.Time) (bool, error) {
	var scheduled bool
	err := r.withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM schedules WHERE lower(city) = lower($1) AND day = $2)`,
			city, day,
		).Scan(&scheduled)
	})
	if err != nil {
		return false, fmt.Errorf("select schedule: %w", err)
	}
	return scheduled, nil
}

// HasAnySchedule сообщает, запланирован ли хотя бы один город на указанную дату.
func (r *PostgresRepository) HasAnySchedule(ctx context.Context, day time.Time) (bool, error) {
	var any bool
	err := r.withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM schedules WHERE day = $1)`,
			day,
		).Scan(&any)
	})
	if err != nil {
		return false, fmt.Errorf("select day schedule: %w", err)
	}
	return any, nil
}

// BlockedEntries возвращает записи блокировок в диапазоне дат включительно.
func (r *PostgresRepository) BlockedEntries(ctx context.Context, from, to time.Time) ([]model.BlockedEntry, error) {
	var entries []model.BlockedEntry

	err := r.withRetry(ctx, func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT day, cities
			 FROM blocked_dates
			 WHERE day BETWEEN $1 AND $2
			 ORDER BY day`,
			from, to,
		)
		if err != nil {
			return fmt.Errorf("select blocked dates: %w", err)
		}
		defer rows.Close()

		entries = entries[:0]
		for rows.Next() {
			var (
				day    time.Time
				cities []string
			)
			if err := rows.Scan(&day, &cities); err != nil {
				return fmt.Errorf("scan blocked date: %w", err)
			}
			entries = append(entries, model.BlockedEntry{Date: day, Cities: cities})
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows error: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// CityCharge возвращает тарифы города. Суммы хранятся в центах
// и конвертируются на границе репозитория.
func (r *PostgresRepository) CityCharge(ctx context.Context, city string) (model.CityCharge, error) {
	var (
		name                     string
		cheapCents, standardCents int64
	)
	err := r.withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx,
			`SELECT city, cheap_rate, standard_rate FROM city_charges WHERE lower(city) = lower($1)`,
			city,
		).Scan(&name, &cheapCents, &standardCents)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.CityCharge{}, fmt.Errorf("%w: %s", ErrCityNotFound, city)
		}
		return model.CityCharge{}, fmt.Errorf("select city charge: %w", err)
	}

	return model.CityCharge{
		City:         name,
		CheapRate:    float64(cheapCents) / 100,
		StandardRate: float64(standardCents) / 100,
	}, nil
}

// Cities возвращает список всех городов с тарифами.
func (r *PostgresRepository) Cities(ctx context.Context) ([]string, error) {
	var cities []string

	err := r.withRetry(ctx, func() error {
		rows, err := r.pool.Query(ctx, `SELECT city FROM city_charges ORDER BY city`)
		if err != nil {
			return fmt.Errorf("select cities: %w", err)
		}
		defer rows.Close()

		cities = cities[:0]
		for rows.Next() {
			var city string
			if err := rows.Scan(&city); err != nil {
				return fmt.Errorf("scan city: %w", err)
			}
			cities = append(cities, city)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows error: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return cities, nil
}

// PricingConfig возвращает активную конфигурацию расчёта стоимости.
func (r *PostgresRepository) PricingConfig(ctx context.Context) (model.PricingConfig, error) {
	var (
		cfg                       model.PricingConfig
		floorCents, assemblyCents int64
		helperCents, distanceCents int64
		minimumCents              int64
	)
	err := r.withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx,
			`SELECT weekend_multiplier, city_day_multiplier, floor_charge_per_level,
			        elevator_discount, assembly_charge_per_item, extra_helper_charge_per_item,
			        student_discount, early_booking_discount, distance_rate_per_km, minimum_charge
			 FROM pricing_config
			 WHERE id = 1`,
		).Scan(
			&cfg.WeekendMultiplier, &cfg.CityDayMultiplier, &floorCents,
			&cfg.ElevatorDiscount, &assemblyCents, &helperCents,
			&cfg.StudentDiscount, &cfg.EarlyBookingDiscount, &distanceCents, &minimumCents,
		)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PricingConfig{}, ErrConfigNotFound
		}
		return model.PricingConfig{}, fmt.Errorf("select pricing config: %w", err)
	}

	cfg.FloorChargePerLevel = float64(floorCents) / 100
	cfg.AssemblyChargePerItem = float64(assemblyCents) / 100
	cfg.ExtraHelperChargePerItem = float64(helperCents) / 100
	cfg.DistanceRatePerKm = float64(distanceCents) / 100
	cfg.MinimumCharge = float64(minimumCents) / 100

	return cfg, nil
}

// UpdatePricingConfig сохраняет конфигурацию расчёта, заменяя действующую.
func (r *PostgresRepository) UpdatePricingConfig(ctx context.Context, cfg model.PricingConfig) error {
	err := r.withRetry(ctx, func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO pricing_config (
			    id, weekend_multiplier, city_day_multiplier, floor_charge_per_level,
			    elevator_discount, assembly_charge_per_item, extra_helper_charge_per_item,
			    student_discount, early_booking_discount, distance_rate_per_km, minimum_charge, updated_at
			 ) VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
			 ON CONFLICT (id) DO UPDATE SET
			    weekend_multiplier = EXCLUDED.weekend_multiplier,
			    city_day_multiplier = EXCLUDED.city_day_multiplier,
			    floor_charge_per_level = EXCLUDED.floor_charge_per_level,
			    elevator_discount = EXCLUDED.elevator_discount,
			    assembly_charge_per_item = EXCLUDED.assembly_charge_per_item,
			    extra_helper_charge_per_item = EXCLUDED.extra_helper_charge_per_item,
			    student_discount = EXCLUDED.student_discount,
			    early_booking_discount = EXCLUDED.early_booking_discount,
			    distance_rate_per_km = EXCLUDED.distance_rate_per_km,
			    minimum_charge = EXCLUDED.minimum_charge,
			    updated_at = now()`,
			cfg.WeekendMultiplier, cfg.CityDayMultiplier, cents(cfg.FloorChargePerLevel),
			cfg.ElevatorDiscount, cents(cfg.AssemblyChargePerItem), cents(cfg.ExtraHelperChargePerItem),
			cfg.StudentDiscount, cfg.EarlyBookingDiscount, cents(cfg.DistanceRatePerKm), cents(cfg.MinimumCharge),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("update pricing config: %w", err)
	}
	return nil
}

func cents(v float64) int64 {
	return int64(v*100 + 0.5)
}
