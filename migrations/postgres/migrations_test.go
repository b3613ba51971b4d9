// Пакет postgres_test содержит интеграционные тесты для проверки корректного выполнения SQL миграций PostgreSQL
package postgres_test

import (
	"database/sql" // пакет взаимодействия с базой данных через стандартный интерфейс
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"                 // PostgreSQL драйвер, регистрируется анонимным импортом через side-effects
	"github.com/stretchr/testify/require" // библиотека удобных утверждений для упрощения проверок в тестах
	"os"
	"testing"
)

// TestPostgresMigrations проверяет, что все миграции выполняются корректно и оставляют базу в ожидаемом состоянии
func TestPostgresMigrations(t *testing.T) {
	// Подготовка строки подключения (DSN): сначала пробуем прочитать из переменной окружения MIGRATION_TEST_DSN
	// пропускаем тест, если не задана переменная окружения для тестовой БД
	env := os.Getenv("MIGRATION_TEST_DSN")
	if env == "" {
		t.Skip("MIGRATION_TEST_DSN env var not set; skipping Postgres migration tests")
	}
	dsn := env

	// Открываем соединение с базой данных через драйвер lib/pq
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err, "ошибка при открытии соединения с базой данных")
	// Гарантируем закрытие соединения по завершению теста, проверяем отсутствие ошибок при закрытии
	defer func() {
		require.NoError(t, db.Close(), "ошибка при закрытии соединения с базой данных")
	}()

	// Применяем миграции Postgres с помощью golang-migrate
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	require.NoError(t, err, "failed to create migrate driver")
	m, err := migrate.NewWithDatabaseInstance(
		"file://.", "postgres", driver,
	)
	require.NoError(t, err, "failed to create migrate instance")
	// Откат предыдущих миграций, чтобы обеспечить чистое состояние
	if err := m.Down(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("failed to rollback migrations: %v", err)
	}
	// Применяем все up миграции
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("failed to apply migrations: %v", err)
	}

	// ------------------------- Проверки структуры базы данных -------------------------

	// Проверяем, что созданы все четыре таблицы
	var exists bool
	for _, table := range []string{"tasks", "error_tasks", "shipments", "shipment_products"} {
		err = db.QueryRow(
			`SELECT EXISTS (SELECT FROM information_schema.tables WHERE table_name=$1)`, table,
		).Scan(&exists)
		require.NoError(t, err, "ошибка при проверке существования таблицы %s", table)
		require.True(t, exists, "таблица %s должна существовать после миграций", table)
	}

	// ------------------------- Проверки ограничений первичных ключей -------------------------

	var pkCount int
	for _, table := range []string{"tasks", "error_tasks", "shipments", "shipment_products"} {
		err = db.QueryRow(
			`SELECT count(*) FROM information_schema.table_constraints WHERE table_name=$1 AND constraint_type='PRIMARY KEY'`, table,
		).Scan(&pkCount)
		require.NoError(t, err, "ошибка при проверке первичного ключа в %s", table)
		require.Equal(t, 1, pkCount, "в таблице %s должен быть ровно один первичный ключ", table)
	}

	// ------------------------- Проверка внешнего ключа shipment_id в shipment_products -------------------------

	var fkExists bool
	err = db.QueryRow(
		`SELECT EXISTS (
		   SELECT 1 FROM information_schema.table_constraints tc
		   JOIN information_schema.key_column_usage kcu ON tc.constraint_name=kcu.constraint_name
		   WHERE tc.table_name='shipment_products' AND tc.constraint_type='FOREIGN KEY' AND kcu.column_name='shipment_id'
		)`,
	).Scan(&fkExists)
	require.NoError(t, err, "ошибка при проверке внешнего ключа shipment_id в таблице shipment_products")
	require.True(t, fkExists, "в таблице shipment_products должен быть внешний ключ shipment_id, ссылающийся на shipments(id)")

	// ------------------------- Проверка индексов -------------------------

	var indexExists bool
	// Индекс по полю task_id в error_tasks
	err = db.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM pg_indexes WHERE tablename='error_tasks' AND indexname='idx_error_tasks_task_id')`,
	).Scan(&indexExists)
	require.NoError(t, err, "ошибка при проверке индекса idx_error_tasks_task_id")
	require.True(t, indexExists, "индекс idx_error_tasks_task_id должен существовать")

	// Индекс по полю shipment_id в shipment_products
	err = db.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM pg_indexes WHERE tablename='shipment_products' AND indexname='idx_shipment_products_shipment_id')`,
	).Scan(&indexExists)
	require.NoError(t, err, "ошибка при проверке индекса idx_shipment_products_shipment_id")
	require.True(t, indexExists, "индекс idx_shipment_products_shipment_id должен существовать")

	// ------------------------- Проверка свойств столбцов created_at -------------------------

	var colDefault, dataType, isNullable string
	for _, table := range []string{"tasks", "error_tasks", "shipments"} {
		err = db.QueryRow(
			`SELECT column_default, data_type, is_nullable FROM information_schema.columns WHERE table_name=$1 AND column_name='created_at'`, table,
		).Scan(&colDefault, &dataType, &isNullable)
		require.NoError(t, err, "ошибка при проверке свойства столбца %s.created_at", table)
		require.Contains(t, colDefault, "now()", "DEFAULT для %s.created_at должен быть now()", table)
		require.Equal(t, "timestamp with time zone", dataType, "тип %s.created_at должен быть TIMESTAMPTZ", table)
		require.Equal(t, "NO", isNullable, "%s.created_at не должен быть NULL", table)
	}

	// ------------------------- Проверка каскадного удаления товарных позиций -------------------------

	var shipmentID int
	err = db.QueryRow(
		`INSERT INTO shipments (user_bin, contragent_bin, dct_type) VALUES ($1, $2, $3) RETURNING id`,
		"123456789012", "987654321098", "shipment",
	).Scan(&shipmentID)
	require.NoError(t, err, "ошибка при вставке отгрузки для проверки каскада")
	_, err = db.Exec(
		`INSERT INTO shipment_products (shipment_id, tovar_name, tovar_count, tovar_price) VALUES ($1, $2, $3, $4)`,
		shipmentID, "Ноутбук", 2, 1500.0,
	)
	require.NoError(t, err, "ошибка при вставке товарной позиции для проверки каскада")
	_, err = db.Exec(`DELETE FROM shipments WHERE id = $1`, shipmentID)
	require.NoError(t, err, "ошибка при удалении отгрузки")
	var productCount int
	err = db.QueryRow(`SELECT count(*) FROM shipment_products WHERE shipment_id = $1`, shipmentID).Scan(&productCount)
	require.NoError(t, err, "ошибка при подсчёте товарных позиций после удаления отгрузки")
	require.Equal(t, 0, productCount, "товарные позиции должны удаляться каскадно вместе с отгрузкой")

	// ------------------------- Проверка явной вставки id при восстановлении задания -------------------------

	// Восстановление ошибочного задания вставляет строку с исходным id, минуя sequence
	_, err = db.Exec(
		`INSERT INTO tasks (id, user_bin, document_type, counterparty_bin, name, quantity, price) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		42, "123456789012", "invoice", "987654321098", "Ноутбук", 10.0, 5.5,
	)
	require.NoError(t, err, "ошибка при вставке задания с явным id")
	var restoredID int
	err = db.QueryRow(`SELECT id FROM tasks WHERE id = $1`, 42).Scan(&restoredID)
	require.NoError(t, err, "ошибка при чтении восстановленного задания")
	require.Equal(t, 42, restoredID, "задание должно сохранять исходный id при явной вставке")

	// ------------------------- Проверка отката (down migrations) -------------------------
	// Откат всех миграций назад
	if err := m.Steps(-2); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("failed to rollback all migrations: %v", err)
	}
	// Проверяем, что таблицы удалены
	for _, table := range []string{"tasks", "error_tasks", "shipments", "shipment_products"} {
		exists = false
		err = db.QueryRow(
			`SELECT EXISTS (SELECT FROM information_schema.tables WHERE table_name=$1)`, table,
		).Scan(&exists)
		require.NoError(t, err, "ошибка при проверке удаления таблицы %s после отката", table)
		require.False(t, exists, "таблица %s должна быть удалена после отката", table)
	}
}
