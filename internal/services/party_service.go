package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"greendrake/estate/internal/auth"
	"greendrake/estate/internal/logging"
	"greendrake/estate/internal/models"
	"greendrake/estate/internal/rules"
	"greendrake/estate/internal/store"
	"greendrake/estate/internal/utils"
)

// ErrEmailExists is returned when an attempt is made to use an email that already exists.
var ErrEmailExists = rules.Validation("email", "email already in use by another account")

// ErrBadCredentials is returned by Login for an unknown email or wrong password.
var ErrBadCredentials = errors.New("invalid email or password")

// UserInput creates a salesman. Password is optional; users without one
// cannot log in.
type UserInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	IsAdmin  bool   `json:"is_admin"`
}

// PartnerInput creates an external party.
type PartnerInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// IPartyService manages partners and users.
type IPartyService interface {
	CreatePartner(ctx context.Context, in PartnerInput) (*models.Partner, error)
	GetPartner(ctx context.Context, id utils.SixID) (*models.Partner, error)
	ListPartners(ctx context.Context) ([]models.Partner, error)

	CreateUser(ctx context.Context, in UserInput) (*models.User, error)
	// GetUser loads the user with the properties still available to them.
	GetUser(ctx context.Context, id utils.SixID) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	ListAvailableForSalesman(ctx context.Context, userID utils.SixID) ([]models.Property, error)

	// Login checks the credentials and returns a signed token.
	Login(ctx context.Context, email, password string) (string, *models.User, error)
}

type partyService struct {
	store     store.Store
	jwtSecret string
	jwtTTL    time.Duration
	log       *zap.Logger
}

// NewPartyService creates a new PartyService. jwtSecret may be empty when
// Login is never called.
func NewPartyService(st store.Store, jwtSecret string, jwtTTL time.Duration, logger *zap.Logger) IPartyService {
	return &partyService{
		store:     st,
		jwtSecret: jwtSecret,
		jwtTTL:    jwtTTL,
		log:       logging.OrNop(logger).Named("party"),
	}
}

func (s *partyService) CreatePartner(ctx context.Context, in PartnerInput) (*models.Partner, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, rules.Validation("name", "partner name is required")
	}
	p := &models.Partner{
		Name:      strings.TrimSpace(in.Name),
		Email:     strings.TrimSpace(in.Email),
		Phone:     strings.TrimSpace(in.Phone),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Partners().Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create partner: %w", err)
	}
	s.log.Info("partner created", zap.String("partner_id", p.ID.String()))
	return p, nil
}

func (s *partyService) GetPartner(ctx context.Context, id utils.SixID) (*models.Partner, error) {
	p, err := s.store.Partners().Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "partner", id)
	}
	return p, nil
}

func (s *partyService) ListPartners(ctx context.Context) ([]models.Partner, error) {
	return s.store.Partners().List(ctx)
}

func (s *partyService) CreateUser(ctx context.Context, in UserInput) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" {
		return nil, rules.Validation("name", "user name is required")
	}
	if email != "" {
		_, err := s.store.Users().FindByEmail(ctx, email)
		if err == nil {
			return nil, ErrEmailExists
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
	}

	now := time.Now().UTC()
	u := &models.User{Name: name, Email: email, IsAdmin: in.IsAdmin, CreatedAt: now, UpdatedAt: now}
	if in.Password != "" {
		if email == "" {
			return nil, rules.Validation("email", "a user with a password needs an email")
		}
		hash, err := auth.HashPassword(in.Password)
		if errors.Is(err, auth.ErrPasswordTooShort) {
			return nil, rules.Validation("password", err.Error())
		}
		if err != nil {
			return nil, err
		}
		u.Password = hash
	}
	if err := s.store.Users().Create(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.log.Info("user created", zap.String("user_id", u.ID.String()))
	return u, nil
}

func (s *partyService) GetUser(ctx context.Context, id utils.SixID) (*models.User, error) {
	u, err := s.store.Users().Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "user", id)
	}
	u.Properties, err = s.ListAvailableForSalesman(ctx, id)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *partyService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.store.Users().List(ctx)
}

func (s *partyService) ListAvailableForSalesman(ctx context.Context, userID utils.SixID) ([]models.Property, error) {
	props, err := s.store.Properties().Find(ctx, store.PropertyFilter{
		SalesmanID: &userID,
		States:     []models.PropertyState{models.StateNew, models.StateOfferReceived},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list properties of salesman %s: %w", userID, err)
	}
	for i := range props {
		rules.Decorate(&props[i])
	}
	return props, nil
}

func (s *partyService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	u, err := s.store.Users().FindByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil, ErrBadCredentials
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if !auth.CheckPasswordHash(password, u.Password) {
		s.log.Warn("login failed", zap.String("user_id", u.ID.String()))
		return "", nil, ErrBadCredentials
	}
	token, err := auth.GenerateJWT(u.ID, u.IsAdmin, s.jwtSecret, s.jwtTTL)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}
