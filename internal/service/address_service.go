package service

import (
	"context"
	"time"

	"ecommerce-api/internal/domain"
	"ecommerce-api/internal/repository"

	"github.com/google/uuid"
)

// AddressService manages a user's saved shipping addresses
type AddressService interface {
	List(ctx context.Context, principal domain.Principal) ([]*domain.Address, error)
	Create(ctx context.Context, principal domain.Principal, input AddressInput) (*domain.Address, error)
	Update(ctx context.Context, principal domain.Principal, id uuid.UUID, input AddressInput) (*domain.Address, error)
	Delete(ctx context.Context, principal domain.Principal, id uuid.UUID) error
}

type AddressInput struct {
	Title       string
	Line1       string
	Line2       string
	Country     string
	City        string
	PostalCode  string
	Landmark    string
	PhoneNumber string
}

type addressService struct {
	addresses repository.AddressRepository
}

func NewAddressService(addresses repository.AddressRepository) AddressService {
	return &addressService{addresses: addresses}
}

func (s *addressService) List(ctx context.Context, principal domain.Principal) ([]*domain.Address, error) {
	return s.addresses.ListByUser(ctx, principal.UserID)
}

func (s *addressService) Create(ctx context.Context, principal domain.Principal, input AddressInput) (*domain.Address, error) {
	address := &domain.Address{
		ID:        uuid.New(),
		UserID:    principal.UserID,
		CreatedAt: time.Now(),
	}
	input.applyTo(address)

	if err := s.addresses.Create(ctx, address); err != nil {
		return nil, err
	}
	return address, nil
}

func (s *addressService) Update(ctx context.Context, principal domain.Principal, id uuid.UUID, input AddressInput) (*domain.Address, error) {
	address, err := s.owned(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	input.applyTo(address)

	if err := s.addresses.Update(ctx, address); err != nil {
		return nil, err
	}
	return address, nil
}

func (s *addressService) Delete(ctx context.Context, principal domain.Principal, id uuid.UUID) error {
	if _, err := s.owned(ctx, principal, id); err != nil {
		return err
	}
	return s.addresses.Delete(ctx, id)
}

// owned loads the address and rejects callers that do not own it
func (s *addressService) owned(ctx context.Context, principal domain.Principal, id uuid.UUID) (*domain.Address, error) {
	address, err := s.addresses.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !principal.CanAccess(address.UserID) {
		return nil, domain.ErrAccessDenied
	}
	return address, nil
}

func (in AddressInput) applyTo(a *domain.Address) {
	a.Title = in.Title
	a.Line1 = in.Line1
	a.Line2 = in.Line2
	a.Country = in.Country
	a.City = in.City
	a.PostalCode = in.PostalCode
	a.Landmark = in.Landmark
	a.PhoneNumber = in.PhoneNumber
}
