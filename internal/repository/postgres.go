package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"onec-api/internal/model"
)

// ErrNotFound возвращается при отсутствии записи
var ErrNotFound = errors.New("record not found")

// TaskRepository реализует доступ к таблицам tasks и error_tasks
// Переходы жизненного цикла (активное -> ошибочное -> восстановленное)
// выполняются как удаление+вставка в одной транзакции, записи никогда не обновляются на месте
type TaskRepository struct {
	db *sql.DB
}

// NewTaskRepository создает новый репозиторий заданий
func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// CreateTask добавляет новое задание в таблицу tasks
func (r *TaskRepository) CreateTask(ctx context.Context, f model.TaskFields) (*model.Task, error) {
	// вставляем запись, id и created_at выдаются базой
	query := `INSERT INTO tasks(user_bin, document_type, counterparty_bin, name, quantity, price)
		VALUES($1, $2, $3, $4, $5, $6) RETURNING id, created_at`
	task := model.Task{
		UserBin:         f.UserBin,
		DocumentType:    f.DocumentType,
		CounterpartyBin: f.CounterpartyBin,
		Name:            f.Name,
		Quantity:        f.Quantity,
		Price:           f.Price,
	}
	err := r.db.QueryRowContext(ctx, query,
		f.UserBin, f.DocumentType, f.CounterpartyBin, f.Name, f.Quantity, f.Price).
		Scan(&task.ID, &task.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert task: %w", err)
	}
	return &task, nil
}

// GetTask возвращает задание по id
func (r *TaskRepository) GetTask(ctx context.Context, id int) (*model.Task, error) {
	query := `SELECT id, user_bin, document_type, counterparty_bin, name, quantity, price, created_at
		FROM tasks WHERE id=$1`
	row := r.db.QueryRowContext(ctx, query, id)
	var t model.Task
	err := row.Scan(&t.ID, &t.UserBin, &t.DocumentType, &t.CounterpartyBin, &t.Name, &t.Quantity, &t.Price, &t.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &t, nil
}

// CompleteTask удаляет успешно обработанное задание
// История успешных заданий не ведётся, запись удаляется безвозвратно
func (r *TaskRepository) CompleteTask(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// MoveTaskToError переносит задание в таблицу ошибочных, с блокировкой и транзакцией
// Вставка в error_tasks и удаление из tasks выполняются атомарно
func (r *TaskRepository) MoveTaskToError(ctx context.Context, id int, reason string) (*model.ErrorTask, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	// проверка существования с блокировкой
	row := tx.QueryRowContext(ctx, `SELECT id FROM tasks WHERE id=$1 FOR UPDATE`, id)
	var existingID int
	if err := row.Scan(&existingID); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to select task for move: %w", err)
	}
	// вставляем ошибочную запись с сохранением исходного task_id
	et := model.ErrorTask{TaskID: id, ErrorReason: reason}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO error_tasks(task_id, error_reason) VALUES($1, $2) RETURNING id, created_at`,
		id, reason).Scan(&et.ID, &et.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert error task: %w", err)
	}
	// удаляем активное задание
	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id=$1`, id); err != nil {
		return nil, fmt.Errorf("failed to delete moved task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &et, nil
}

// RestoreTaskFromError восстанавливает задание из таблицы ошибочных, с блокировкой и транзакцией
// Новая запись tasks получает id, равный исходному task_id, поля берутся из запроса,
// из ошибочной записи не переносится ничего, кроме идентификатора
func (r *TaskRepository) RestoreTaskFromError(ctx context.Context, taskID int, f model.TaskFields) (*model.Task, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	// проверка существования ошибочной записи с блокировкой
	row := tx.QueryRowContext(ctx, `SELECT id FROM error_tasks WHERE task_id=$1 FOR UPDATE`, taskID)
	var errorID int
	if err := row.Scan(&errorID); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to select error task for restore: %w", err)
	}
	// вставляем задание с явным id; последовательность tasks_id_seq при этом не продвигается
	task := model.Task{
		ID:              taskID,
		UserBin:         f.UserBin,
		DocumentType:    f.DocumentType,
		CounterpartyBin: f.CounterpartyBin,
		Name:            f.Name,
		Quantity:        f.Quantity,
		Price:           f.Price,
	}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO tasks(id, user_bin, document_type, counterparty_bin, name, quantity, price)
		VALUES($1, $2, $3, $4, $5, $6, $7) RETURNING created_at`,
		taskID, f.UserBin, f.DocumentType, f.CounterpartyBin, f.Name, f.Quantity, f.Price).
		Scan(&task.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert restored task: %w", err)
	}
	// удаляем ошибочную запись
	if _, err := tx.ExecContext(ctx, `DELETE FROM error_tasks WHERE task_id=$1`, taskID); err != nil {
		return nil, fmt.Errorf("failed to delete error task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &task, nil
}

// ShipmentRepository реализует доступ к таблицам shipments и shipment_products
type ShipmentRepository struct {
	db *sql.DB
}

// NewShipmentRepository создает новый репозиторий отгрузок
func NewShipmentRepository(db *sql.DB) *ShipmentRepository {
	return &ShipmentRepository{db: db}
}

// CreateShipment создаёт отгрузку вместе с товарными позициями в одной транзакции
// Пустой список товаров допустим, в этом случае создаётся только запись отгрузки
func (r *ShipmentRepository) CreateShipment(ctx context.Context, userBin, contragentBin, dctType string, products []model.ShipmentProduct) (*model.Shipment, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	sh := model.Shipment{
		UserBin:       userBin,
		ContragentBin: contragentBin,
		DctType:       dctType,
	}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO shipments(user_bin, contragent_bin, dct_type) VALUES($1, $2, $3) RETURNING id, created_at`,
		userBin, contragentBin, dctType).Scan(&sh.ID, &sh.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert shipment: %w", err)
	}
	// вставляем товарные позиции со ссылкой на созданную отгрузку
	for _, p := range products {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO shipment_products(shipment_id, tovar_name, tovar_count, tovar_price) VALUES($1, $2, $3, $4)`,
			sh.ID, p.TovarName, p.TovarCount, p.TovarPrice)
		if err != nil {
			return nil, fmt.Errorf("failed to insert shipment product: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &sh, nil
}
