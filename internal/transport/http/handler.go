package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"onec-api/internal/model"
	"onec-api/internal/repository"
)

// TasksService задаёт интерфейс бизнес-логики заданий для HTTP-слоя
// Методы соответствуют операциям жизненного цикла задания
type TasksService interface {
	Create(ctx context.Context, f model.TaskFields) (*model.Task, error)
	Get(ctx context.Context, id int) (*model.Task, error)
	Complete(ctx context.Context, id int) error
	Fail(ctx context.Context, id int, reason string) (*model.ErrorTask, error)
	Retry(ctx context.Context, taskID int, f model.TaskFields) (*model.Task, error)
}

// ShipmentsService задаёт интерфейс бизнес-логики отгрузок для HTTP-слоя
type ShipmentsService interface {
	Create(ctx context.Context, userBin, contragentBin, dctType string, products []model.ShipmentProduct) (*model.Shipment, error)
}

// Handler содержит зависимости и реализует HTTP-эндпоинты интеграции с 1С
type Handler struct {
	tasks     TasksService
	shipments ShipmentsService
}

// NewHandler создаёт новый HTTP Handler
func NewHandler(tasks TasksService, shipments ShipmentsService) *Handler {
	return &Handler{tasks: tasks, shipments: shipments}
}

// RegisterRoutes регистрирует маршруты API
// Эндпоинты здоровья доступны без авторизации, все остальные защищены auth-middleware
func (h *Handler) RegisterRoutes(r *mux.Router, auth mux.MiddlewareFunc) {
	// Эндпоинты для проверки здоровья и готовности сервиса
	r.HandleFunc("/healthz", h.Healthz).Methods("GET")
	r.HandleFunc("/readyz", h.Readyz).Methods("GET")
	api := r.PathPrefix("/").Subrouter()
	api.Use(auth)
	api.HandleFunc("/tasks", h.CreateTask).Methods("POST")
	api.HandleFunc("/tasks/result", h.TaskResult).Methods("POST")
	api.HandleFunc("/tasks/retry", h.RetryTask).Methods("POST")
	api.HandleFunc("/tasks/{id:[0-9]+}", h.GetTask).Methods("GET")
	api.HandleFunc("/shipments", h.CreateShipment).Methods("POST")
	api.HandleFunc("/invoices/{id}", h.GetInvoice).Methods("GET")
}

// ErrorResponse модель ошибки API
type ErrorResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

func writeError(w http.ResponseWriter, status int, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func writeJSON(w http.ResponseWriter, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

// writeServiceError переводит ошибку операции в HTTP-ответ:
// ErrNotFound отдаётся как 404, всё остальное логируется и скрывается за общим 500
func writeServiceError(w http.ResponseWriter, op string, err error) {
	if err == repository.ErrNotFound {
		writeError(w, http.StatusNotFound, ErrorResponse{3, "Задание не найдено", map[string]interface{}{}})
		return
	}
	log.Printf("%s failed: %v", op, err)
	writeError(w, http.StatusInternalServerError, ErrorResponse{1, "Внутренняя ошибка сервера", map[string]interface{}{}})
}

// decodeBody декодирует тело запроса в фиксированную структуру,
// неизвестные поля отклоняются
func decodeBody(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// CreateTask обрабатывает POST /tasks
// 1. Требует заголовок User-Bin (БИН вызывающей стороны)
// 2. Декодирует тело запроса в фиксированную структуру
// 3. Валидирует обязательные поля на границе
// 4. Вызывает метод сервиса Create
// 5. При успехе возвращает JSON с идентификатором созданного задания
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	userBin := r.Header.Get("User-Bin")
	if userBin == "" {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "Не указан БИН пользователя", map[string]interface{}{}})
		return
	}
	var req struct {
		DocumentType string  `json:"document_type"`
		Bin          string  `json:"bin"`
		Name         string  `json:"name"`
		Quantity     float64 `json:"quantity"`
		Price        float64 `json:"price"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "Некорректное тело запроса", map[string]interface{}{}})
		return
	}
	if req.DocumentType == "" || req.Bin == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "Не заполнены обязательные поля", map[string]interface{}{}})
		return
	}
	task, err := h.tasks.Create(r.Context(), model.TaskFields{
		UserBin:         userBin,
		DocumentType:    req.DocumentType,
		CounterpartyBin: req.Bin,
		Name:            req.Name,
		Quantity:        req.Quantity,
		Price:           req.Price,
	})
	if err != nil {
		writeServiceError(w, "create task", err)
		return
	}
	writeJSON(w, map[string]interface{}{
		"message": "Задание успешно создано",
		"task_id": task.ID,
	})
}

// TaskResult обрабатывает POST /tasks/result — отчёт 1С о результате обработки
// Поля приходят в доменной лексике 1С: ид_задачи, статус, причина_ошибки
// 1. Валидирует идентификатор и значение статуса на границе
// 2. При статусе "успешно" удаляет задание; указанная причина при этом молча отбрасывается
// 3. При статусе "ошибка" переносит задание в ошибочные
func (h *Handler) TaskResult(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TaskID int    `json:"ид_задачи"`
		Status string `json:"статус"`
		Reason string `json:"причина_ошибки"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "Некорректное тело запроса", map[string]interface{}{}})
		return
	}
	if req.TaskID <= 0 {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "Не указан идентификатор задания", map[string]interface{}{}})
		return
	}
	switch req.Status {
	case "успешно", "success":
		// причина при успешном статусе не передаётся дальше
		if err := h.tasks.Complete(r.Context(), req.TaskID); err != nil {
			writeServiceError(w, "complete task", err)
			return
		}
		writeJSON(w, map[string]interface{}{"message": "Задание успешно завершено"})
	case "ошибка", "failure":
		et, err := h.tasks.Fail(r.Context(), req.TaskID, req.Reason)
		if err != nil {
			writeServiceError(w, "fail task", err)
			return
		}
		writeJSON(w, map[string]interface{}{
			"message":       "Задание перемещено в ошибочные",
			"error_task_id": et.ID,
		})
	default:
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "Некорректный статус задания", map[string]interface{}{}})
	}
}

// RetryTask обрабатывает POST /tasks/retry — повторная отправка исправленного задания
// Все поля задаются заново, из ошибочной записи сохраняется только идентификатор
func (h *Handler) RetryTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TaskID          int     `json:"ид_задачи"`
		UserBin         string  `json:"user_bin"`
		DocumentType    string  `json:"document_type"`
		CounterpartyBin string  `json:"counterparty_bin"`
		Name            string  `json:"name"`
		Quantity        float64 `json:"quantity"`
		Price           float64 `json:"price"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "Некорректное тело запроса", map[string]interface{}{}})
		return
	}
	if req.TaskID <= 0 {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "Не указан идентификатор задания", map[string]interface{}{}})
		return
	}
	if req.UserBin == "" || req.DocumentType == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "Не заполнены обязательные поля", map[string]interface{}{}})
		return
	}
	task, err := h.tasks.Retry(r.Context(), req.TaskID, model.TaskFields{
		UserBin:         req.UserBin,
		DocumentType:    req.DocumentType,
		CounterpartyBin: req.CounterpartyBin,
		Name:            req.Name,
		Quantity:        req.Quantity,
		Price:           req.Price,
	})
	if err != nil {
		writeServiceError(w, "retry task", err)
		return
	}
	writeJSON(w, map[string]interface{}{
		"message":          "Задание восстановлено",
		"restored_task_id": task.ID,
	})
}

// GetTask обрабатывает GET /tasks/{id}
// Возвращает полную запись задания, created_at форматируется как YYYY-MM-DD HH:MM:SS
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "Некорректный идентификатор задания", map[string]interface{}{}})
		return
	}
	task, err := h.tasks.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, "get task", err)
		return
	}
	writeJSON(w, map[string]interface{}{
		"id":               task.ID,
		"user_bin":         task.UserBin,
		"document_type":    task.DocumentType,
		"counterparty_bin": task.CounterpartyBin,
		"name":             task.Name,
		"quantity":         task.Quantity,
		"price":            task.Price,
		"created_at":       task.CreatedAt.Format("2006-01-02 15:04:05"),
	})
}

// CreateShipment обрабатывает POST /shipments
// 1. Требует заголовок User-Bin
// 2. Декодирует фиксированную структуру с товарными позициями
// 3. Вызывает сервис Create (отгрузка и позиции создаются в одной транзакции)
// 4. Возвращает идентификатор созданной отгрузки
func (h *Handler) CreateShipment(w http.ResponseWriter, r *http.Request) {
	userBin := r.Header.Get("User-Bin")
	if userBin == "" {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "Не указан БИН пользователя", map[string]interface{}{}})
		return
	}
	var req struct {
		ContragentBin string `json:"contragent_bin"`
		DctType       string `json:"dct_type"`
		Products      []struct {
			TovarName  string  `json:"tovar_name"`
			TovarCount int     `json:"tovar_count"`
			TovarPrice float64 `json:"tovar_price"`
		} `json:"products"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "Некорректное тело запроса", map[string]interface{}{}})
		return
	}
	if req.ContragentBin == "" || req.DctType == "" {
		writeError(w, http.StatusBadRequest, ErrorResponse{1, "Не заполнены обязательные поля", map[string]interface{}{}})
		return
	}
	products := make([]model.ShipmentProduct, 0, len(req.Products))
	for _, p := range req.Products {
		products = append(products, model.ShipmentProduct{
			TovarName:  p.TovarName,
			TovarCount: p.TovarCount,
			TovarPrice: p.TovarPrice,
		})
	}
	sh, err := h.shipments.Create(r.Context(), userBin, req.ContragentBin, req.DctType, products)
	if err != nil {
		writeServiceError(w, "create shipment", err)
		return
	}
	writeJSON(w, map[string]interface{}{"shipment_id": sh.ID})
}

// Invoice представляет счёт, доступный для проверки статуса оплаты
type Invoice struct {
	ID     string  `json:"id"`
	Status string  `json:"status"`
	Amount float64 `json:"amount"`
	Date   string  `json:"date"`
}

// invoices — справочник счетов; внешнего источника счетов пока нет,
// записи ведутся вручную
var invoices = map[string]Invoice{
	"12345": {ID: "12345", Status: "paid", Amount: 1000.0, Date: "2025-01-18"},
}

// GetInvoice обрабатывает GET /invoices/{id}
// Возвращает запись счёта или 404, если счёт не найден
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	invoice, ok := invoices[mux.Vars(r)["id"]]
	if !ok {
		writeError(w, http.StatusNotFound, ErrorResponse{3, "Счёт не найден", map[string]interface{}{}})
		return
	}
	writeJSON(w, invoice)
}

// Healthz возвращает статус работы сервиса
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Readyz возвращает готовность сервиса
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}
