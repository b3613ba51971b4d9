package service

import (
	"context"
	"errors"

	"onec-api/internal/model"
)

// ShipmentRepo определяет интерфейс репозитория отгрузок
type ShipmentRepo interface {
	CreateShipment(ctx context.Context, userBin, contragentBin, dctType string, products []model.ShipmentProduct) (*model.Shipment, error)
}

// ShipmentsService реализует бизнес-логику отгрузок:
// валидация входных данных и создание отгрузки вместе с товарными позициями
type ShipmentsService struct {
	repo ShipmentRepo
}

// NewShipmentsService создаёт новый сервис отгрузок
func NewShipmentsService(r ShipmentRepo) *ShipmentsService {
	return &ShipmentsService{repo: r}
}

// Create создаёт отгрузку с товарными позициями:
// 1. Валидирует, что БИН контрагента и тип документа не пустые
// 2. Вызывает метод репозитория CreateShipment (одна транзакция)
// Пустой список товаров допустим
func (s *ShipmentsService) Create(ctx context.Context, userBin, contragentBin, dctType string, products []model.ShipmentProduct) (*model.Shipment, error) {
	// валидация: БИН контрагента и тип документа не должны быть пустыми
	if contragentBin == "" || dctType == "" {
		return nil, errors.New("contragent_bin and dct_type cannot be empty")
	}
	return s.repo.CreateShipment(ctx, userBin, contragentBin, dctType, products)
}
