package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"onec-api/internal/model"
)

// TaskRepo определяет интерфейс репозитория для операций жизненного цикла задания
// Реализация может быть на основе базы данных Postgres
// Методы возвращают сущности model.Task/model.ErrorTask и возможные ошибки
type TaskRepo interface {
	CreateTask(ctx context.Context, f model.TaskFields) (*model.Task, error)
	GetTask(ctx context.Context, id int) (*model.Task, error)
	CompleteTask(ctx context.Context, id int) error
	MoveTaskToError(ctx context.Context, id int, reason string) (*model.ErrorTask, error)
	RestoreTaskFromError(ctx context.Context, taskID int, f model.TaskFields) (*model.Task, error)
}

// Cache определяет интерфейс кэширования результатов операций (Redis)
// Методы позволяют записывать, читать и инвалидировать кэш по ключу
type Cache interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Invalidate(ctx context.Context, key string) error
}

// Logger определяет интерфейс публикации событий аудита (NATS)
// Метод PublishEvent отправляет сообщение в брокер сообщений
type Logger interface {
	PublishEvent(data []byte) error
}

// DefaultErrorReason подставляется, когда вызывающая сторона сообщила об ошибке,
// но не указала причину: пустая причина в error_tasks не допускается
const DefaultErrorReason = "Причина не указана"

// cacheTTL задаёт время жизни записей в кэше (Redis), по умолчанию 1 минута или из REDIS_TTL
var cacheTTL = time.Minute

func init() {
	if v := os.Getenv("REDIS_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cacheTTL = d
		}
	}
}

// TasksService реализует бизнес-логику жизненного цикла задания:
// - проверка входных данных (валидация)
// - вызовы репозитория для переходов активное -> ошибочное -> восстановленное
// - кэширование чтений и инвалидирование при каждом изменении
// - публикация событий аудита в лог
type TasksService struct {
	repo   TaskRepo
	cache  Cache
	logger Logger
}

// NewTasksService создаёт новый сервис заданий
func NewTasksService(r TaskRepo, c Cache, l Logger) *TasksService {
	return &TasksService{repo: r, cache: c, logger: l}
}

// taskKey возвращает ключ кэша для задания
func taskKey(id int) string {
	return fmt.Sprintf("task:%d", id)
}

// publish сериализует событие аудита и отправляет его в лог
func (s *TasksService) publish(action string, taskID int, f model.TaskFields, reason string) {
	data, _ := json.Marshal(model.TaskEvent{
		Action:          action,
		TaskID:          taskID,
		UserBin:         f.UserBin,
		DocumentType:    f.DocumentType,
		CounterpartyBin: f.CounterpartyBin,
		Name:            f.Name,
		Quantity:        f.Quantity,
		Price:           f.Price,
		ErrorReason:     reason,
	})
	_ = s.logger.PublishEvent(data)
}

// fields собирает входные поля из сохранённого задания для события аудита
func fields(t *model.Task) model.TaskFields {
	return model.TaskFields{
		UserBin:         t.UserBin,
		DocumentType:    t.DocumentType,
		CounterpartyBin: t.CounterpartyBin,
		Name:            t.Name,
		Quantity:        t.Quantity,
		Price:           t.Price,
	}
}

// Create создаёт новое задание в базе и возвращает его:
// 1. Валидирует, что обязательные поля не пустые
// 2. Вызывает метод репозитория CreateTask
// 3. Инвалидирует кэш задания
// 4. Публикует событие аудита "created"
func (s *TasksService) Create(ctx context.Context, f model.TaskFields) (*model.Task, error) {
	// валидация: идентификаторы и имя не должны быть пустыми
	if f.UserBin == "" || f.DocumentType == "" || f.Name == "" {
		return nil, errors.New("user_bin, document_type and name cannot be empty")
	}
	// создаём задание в БД
	task, err := s.repo.CreateTask(ctx, f)
	if err != nil {
		return nil, err
	}
	// инвалидируем кэш для этого идентификатора
	_ = s.cache.Invalidate(ctx, taskKey(task.ID))
	// публикуем событие аудита
	s.publish(model.EventTaskCreated, task.ID, f, "")
	return task, nil
}

// Get возвращает задание по id:
// 1. Пытается получить из кэша Redis
// 2. При промахе кэша запрашивает из репозитория
// 3. Сохраняет результат в кэш
func (s *TasksService) Get(ctx context.Context, id int) (*model.Task, error) {
	key := taskKey(id)
	// пытаемся получить из кэша
	bytes, err := s.cache.Get(ctx, key)
	if err == nil {
		var t model.Task
		_ = json.Unmarshal(bytes, &t)
		return &t, nil
	}
	// при промахе кэша получаем из БД
	task, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	// кэшируем результат
	data, _ := json.Marshal(task)
	_ = s.cache.Set(ctx, key, data, cacheTTL)
	return task, nil
}

// Complete удаляет успешно обработанное задание:
// 1. Получает существующее задание для события аудита
// 2. Вызывает CompleteTask для удаления
// 3. Инвалидирует кэш задания
// 4. Публикует событие аудита "completed"
func (s *TasksService) Complete(ctx context.Context, id int) error {
	// получаем существующее задание
	task, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return err
	}
	// удаляем задание
	if err := s.repo.CompleteTask(ctx, id); err != nil {
		return err
	}
	// инвалидируем кэш
	_ = s.cache.Invalidate(ctx, taskKey(id))
	// публикуем событие аудита с полями удалённого задания
	s.publish(model.EventTaskCompleted, id, fields(task), "")
	return nil
}

// Fail переносит задание в ошибочные:
// 1. Подставляет причину по умолчанию, если она не указана
// 2. Получает существующее задание для события аудита
// 3. Вызывает MoveTaskToError (атомарный перенос)
// 4. Инвалидирует кэш и публикует событие "failed"
func (s *TasksService) Fail(ctx context.Context, id int, reason string) (*model.ErrorTask, error) {
	if reason == "" {
		reason = DefaultErrorReason
	}
	// получаем существующее задание
	task, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	// переносим задание в ошибочные
	et, err := s.repo.MoveTaskToError(ctx, id, reason)
	if err != nil {
		return nil, err
	}
	// инвалидируем кэш
	_ = s.cache.Invalidate(ctx, taskKey(id))
	// публикуем событие аудита с причиной
	s.publish(model.EventTaskFailed, id, fields(task), reason)
	return et, nil
}

// Retry восстанавливает задание из ошибочных с исправленными полями:
// 1. Валидирует обязательные поля
// 2. Вызывает RestoreTaskFromError (новая запись получает исходный id)
// 3. Инвалидирует кэш и публикует событие "restored"
func (s *TasksService) Retry(ctx context.Context, taskID int, f model.TaskFields) (*model.Task, error) {
	// валидация: идентификаторы и имя не должны быть пустыми
	if f.UserBin == "" || f.DocumentType == "" || f.Name == "" {
		return nil, errors.New("user_bin, document_type and name cannot be empty")
	}
	task, err := s.repo.RestoreTaskFromError(ctx, taskID, f)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Invalidate(ctx, taskKey(taskID))
	s.publish(model.EventTaskRestored, taskID, f, "")
	return task, nil
}
