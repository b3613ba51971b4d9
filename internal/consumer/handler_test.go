package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"onec-api/internal/model"
)

// mockRepo реализует интерфейс Repo и сохраняет полученные события для проверки
type mockRepo struct {
	received [][]model.TaskEvent // полученные батчи событий
	err      error               // ошибка, которую вернет BatchInsertEvents
}

func (m *mockRepo) BatchInsertEvents(ctx context.Context, events []model.TaskEvent) error {
	// сохраняем копию слайса для проверки
	copyBatch := make([]model.TaskEvent, len(events))
	copy(copyBatch, events)
	m.received = append(m.received, copyBatch)
	return m.err
}

func TestHandleMessage_NoFlush(t *testing.T) {
	// тестируем, что при количестве событий меньше batchSize нет записи в репозиторий
	repo := &mockRepo{}
	cons := NewConsumer(repo, 3)

	// готовим событие
	data, _ := json.Marshal(model.TaskEvent{Action: model.EventTaskCreated, TaskID: 1, UserBin: "123456789012"})
	err := cons.HandleMessage(context.Background(), data)
	require.NoError(t, err)
	// репозиторий не должен был быть вызван
	require.Len(t, repo.received, 0)
}

func TestHandleMessage_FlushOnBatch(t *testing.T) {
	// тестируем, что при достижении batchSize события отправляются репозиторию
	repo := &mockRepo{}
	cons := NewConsumer(repo, 2)

	// два события подряд приводят к одной записи
	for i := 1; i <= 2; i++ {
		e := model.TaskEvent{Action: model.EventTaskCreated, TaskID: i}
		data, _ := json.Marshal(e)
		err := cons.HandleMessage(context.Background(), data)
		require.NoError(t, err)
	}
	// проверяем, что репозиторий был вызван один раз
	require.Len(t, repo.received, 1)
	// проверяем содержимое батча
	require.Len(t, repo.received[0], 2)
	require.Equal(t, repo.received[0][0].TaskID, 1)
	require.Equal(t, repo.received[0][1].TaskID, 2)
}

func TestHandleMessage_BadJSON(t *testing.T) {
	// тестируем, что некорректный JSON возвращает ошибку и не попадает в буфер
	repo := &mockRepo{}
	cons := NewConsumer(repo, 1)
	err := cons.HandleMessage(context.Background(), []byte("{broken"))
	require.Error(t, err)
	require.Len(t, repo.received, 0)
}

func TestFlush_Empty(t *testing.T) {
	// тестируем, что Flush ничего не делает, если буфер пуст
	repo := &mockRepo{}
	cons := NewConsumer(repo, 5)
	err := cons.Flush(context.Background())
	require.NoError(t, err)
	require.Len(t, repo.received, 0)
}

func TestFlush_NonEmpty(t *testing.T) {
	// тестируем, что Flush отправляет накопленные события
	repo := &mockRepo{}
	cons := NewConsumer(repo, 5)

	// добавляем три события через HandleMessage
	for i := 1; i <= 3; i++ {
		e := model.TaskEvent{Action: model.EventTaskFailed, TaskID: i, ErrorReason: "reason"}
		data, _ := json.Marshal(e)
		err := cons.HandleMessage(context.Background(), data)
		require.NoError(t, err)
	}
	err := cons.Flush(context.Background())
	require.NoError(t, err)
	require.Len(t, repo.received, 1)
	require.Len(t, repo.received[0], 3)
	require.Equal(t, repo.received[0][2].TaskID, 3)
}

func TestHandleMessage_RepoError(t *testing.T) {
	// тестируем прокидку ошибки репозитория при сбросе пакета
	repo := &mockRepo{err: errors.New("insert failed")}
	cons := NewConsumer(repo, 1)
	data, _ := json.Marshal(model.TaskEvent{Action: model.EventTaskCompleted, TaskID: 1})
	err := cons.HandleMessage(context.Background(), data)
	require.Error(t, err)
}
