package repository

import (
	"context"
	"database/sql"
	"log"
	"time"

	"onec-api/internal/model"
)

// ClickhouseRepo реализует пакетную запись событий аудита заданий в ClickHouse
type ClickhouseRepo struct {
	db *sql.DB
}

// NewClickhouseRepo создаёт новый репозиторий для ClickHouse
func NewClickhouseRepo(db *sql.DB) *ClickhouseRepo {
	return &ClickhouseRepo{db: db}
}

// BatchInsertEvents записывает пакет событий жизненного цикла заданий в таблицу events_log
// Время события фиксируется в момент вставки
func (r *ClickhouseRepo) BatchInsertEvents(ctx context.Context, events []model.TaskEvent) error {
	// начинаем 'транзакцию' для batch insert (clickhouse-go собирает блок при PrepareContext)
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	// логируем количество событий для вставки
	log.Printf("Начало пакетной вставки %d событий в ClickHouse", len(events))
	// PrepareContext для одной строки; clickhouse-go будет собирать несколько Exec в один блок
	query := `INSERT INTO events_log (Action, TaskId, UserBin, DocumentType, CounterpartyBin, Name, Quantity, Price, ErrorReason, EventTime) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer func() { _ = stmt.Close() }()
	// выполняем ExecContext для каждого события; драйвер соберёт весь пакет
	for _, e := range events {
		_, err := stmt.ExecContext(ctx,
			e.Action, e.TaskID, e.UserBin, e.DocumentType, e.CounterpartyBin,
			e.Name, e.Quantity, e.Price, e.ErrorReason,
			time.Now(),
		)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	// коммитим транзакцию
	if err := tx.Commit(); err != nil {
		return err
	}
	// логируем успешную вставку
	log.Printf("Успешно вставлено %d событий в ClickHouse", len(events))
	return nil
}
