package model

import "time"

// Task представляет активное задание на обработку документа (таблица tasks)
type Task struct {
	ID              int       `db:"id" json:"id"`
	UserBin         string    `db:"user_bin" json:"user_bin"`
	DocumentType    string    `db:"document_type" json:"document_type"`
	CounterpartyBin string    `db:"counterparty_bin" json:"counterparty_bin"`
	Name            string    `db:"name" json:"name"`
	Quantity        float64   `db:"quantity" json:"quantity"`
	Price           float64   `db:"price" json:"price"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// ErrorTask представляет задание, завершившееся ошибкой (таблица error_tasks)
// TaskID хранит идентификатор исходного задания и используется при восстановлении
type ErrorTask struct {
	ID          int       `db:"id" json:"id"`
	TaskID      int       `db:"task_id" json:"task_id"`
	ErrorReason string    `db:"error_reason" json:"error_reason"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Shipment представляет отгрузку (таблица shipments)
type Shipment struct {
	ID            int       `db:"id" json:"id"`
	UserBin       string    `db:"user_bin" json:"user_bin"`
	ContragentBin string    `db:"contragent_bin" json:"contragent_bin"`
	DctType       string    `db:"dct_type" json:"dct_type"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// ShipmentProduct представляет одну товарную позицию отгрузки (таблица shipment_products)
type ShipmentProduct struct {
	ID         int     `db:"id" json:"id"`
	ShipmentID int     `db:"shipment_id" json:"shipment_id"`
	TovarName  string  `db:"tovar_name" json:"tovar_name"`
	TovarCount int     `db:"tovar_count" json:"tovar_count"`
	TovarPrice float64 `db:"tovar_price" json:"tovar_price"`
}

// TaskFields содержит входные поля задания, задаваемые вызывающей стороной
// Используется при создании задания и при повторной отправке исправленных данных
type TaskFields struct {
	UserBin         string
	DocumentType    string
	CounterpartyBin string
	Name            string
	Quantity        float64
	Price           float64
}

// Действия жизненного цикла задания для событий аудита
const (
	EventTaskCreated   = "created"
	EventTaskCompleted = "completed"
	EventTaskFailed    = "failed"
	EventTaskRestored  = "restored"
)

// TaskEvent представляет событие аудита жизненного цикла задания
// Публикуется сервисом в NATS и пишется консьюмером в ClickHouse (таблица events_log)
type TaskEvent struct {
	Action          string  `json:"action"`
	TaskID          int     `json:"task_id"`
	UserBin         string  `json:"user_bin,omitempty"`
	DocumentType    string  `json:"document_type,omitempty"`
	CounterpartyBin string  `json:"counterparty_bin,omitempty"`
	Name            string  `json:"name,omitempty"`
	Quantity        float64 `json:"quantity,omitempty"`
	Price           float64 `json:"price,omitempty"`
	ErrorReason     string  `json:"error_reason,omitempty"`
}
