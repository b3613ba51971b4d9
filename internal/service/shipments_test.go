package service

import (
	"context"
	"errors"
	"testing"

	"onec-api/internal/model"
)

// mockShipmentRepo реализует ShipmentRepo с настраиваемым поведением
type mockShipmentRepo struct {
	createFn func(ctx context.Context, userBin, contragentBin, dctType string, products []model.ShipmentProduct) (*model.Shipment, error)
}

func (m *mockShipmentRepo) CreateShipment(ctx context.Context, userBin, contragentBin, dctType string, products []model.ShipmentProduct) (*model.Shipment, error) {
	return m.createFn(ctx, userBin, contragentBin, dctType, products)
}

// TestShipmentCreate_Success проверяет успешное создание отгрузки с товарными позициями
func TestShipmentCreate_Success(t *testing.T) {
	products := []model.ShipmentProduct{
		{TovarName: "Ноутбук", TovarCount: 1, TovarPrice: 150000.0},
		{TovarName: "Мышь", TovarCount: 2, TovarPrice: 5000.0},
	}
	repo := &mockShipmentRepo{createFn: func(ctx context.Context, userBin, contragentBin, dctType string, got []model.ShipmentProduct) (*model.Shipment, error) {
		// проверяем, что аргументы дошли до репозитория без изменений
		if userBin != "123456789012" || contragentBin != "987654321098" || dctType != "invoice" {
			t.Fatalf("unexpected args: %s %s %s", userBin, contragentBin, dctType)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 products, got %d", len(got))
		}
		return &model.Shipment{ID: 3, UserBin: userBin, ContragentBin: contragentBin, DctType: dctType}, nil
	}}
	s := NewShipmentsService(repo)
	sh, err := s.Create(context.Background(), "123456789012", "987654321098", "invoice", products)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sh.ID != 3 {
		t.Fatalf("unexpected shipment id: %d", sh.ID)
	}
}

// TestShipmentCreate_EmptyFields проверяет ошибку валидации при пустых обязательных полях
func TestShipmentCreate_EmptyFields(t *testing.T) {
	s := NewShipmentsService(&mockShipmentRepo{})
	if _, err := s.Create(context.Background(), "123456789012", "", "invoice", nil); err == nil {
		t.Fatal("expected validation error for empty contragent_bin")
	}
	if _, err := s.Create(context.Background(), "123456789012", "987654321098", "", nil); err == nil {
		t.Fatal("expected validation error for empty dct_type")
	}
}

// TestShipmentCreate_RepoError проверяет прокидку ошибки репозитория
func TestShipmentCreate_RepoError(t *testing.T) {
	repo := &mockShipmentRepo{createFn: func(ctx context.Context, userBin, contragentBin, dctType string, products []model.ShipmentProduct) (*model.Shipment, error) {
		return nil, errors.New("insert failed")
	}}
	s := NewShipmentsService(repo)
	if _, err := s.Create(context.Background(), "123456789012", "987654321098", "invoice", nil); err == nil {
		t.Fatal("expected repository error")
	}
}
