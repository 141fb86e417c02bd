package service

import (
	"errors"
	"strconv"

	"starktol/config"
	"starktol/internal/auth"
	"starktol/internal/domain"
	"starktol/internal/models"
	"starktol/internal/repository"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailExists  = errors.New("email already registered")
	ErrInvalidCreds = errors.New("invalid email or password")
)

type AuthService struct {
	cfg      *config.Config
	userRepo *repository.UserRepository
}

func NewAuthService(cfg *config.Config, userRepo *repository.UserRepository) *AuthService {
	return &AuthService{cfg: cfg, userRepo: userRepo}
}

func (s *AuthService) Register(email, phone, fullName, password string) (*models.User, string, string, error) {
	_, err := s.userRepo.GetByEmail(email)
	if err == nil {
		return nil, "", "", ErrEmailExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", "", err
	}
	u := &models.User{
		Email:        email,
		PhoneNumber:  phone,
		FullName:     fullName,
		PasswordHash: string(hash),
		Role:         domain.RoleCustomer,
	}
	if err := s.userRepo.Create(u); err != nil {
		return nil, "", "", err
	}
	access, err := auth.GenerateAccessToken(&s.cfg.JWT, u.ID, u.Email, u.Role)
	if err != nil {
		return u, "", "", err
	}
	refresh, err := auth.GenerateRefreshToken(&s.cfg.JWT, u.ID)
	if err != nil {
		return u, access, "", err
	}
	return u, access, refresh, nil
}

func (s *AuthService) Login(email, password string) (*models.User, string, string, error) {
	u, err := s.userRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", "", ErrInvalidCreds
		}
		return nil, "", "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, "", "", ErrInvalidCreds
	}
	access, _ := auth.GenerateAccessToken(&s.cfg.JWT, u.ID, u.Email, u.Role)
	refresh, _ := auth.GenerateRefreshToken(&s.cfg.JWT, u.ID)
	return u, access, refresh, nil
}

// LoginWithGoogle signs a user in from a verified Google identity. An
// account already linked to the Google ID logs straight in; an account
// with the same email gets the Google ID attached; otherwise a new
// customer account is created with no password. Returns whether the
// account is brand new so callers can run first-login setup.
func (s *AuthService) LoginWithGoogle(googleID, email, fullName string) (*models.User, string, string, bool, error) {
	isNew := false
	u, err := s.userRepo.GetByGoogleID(googleID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", "", false, err
		}
		u, err = s.userRepo.GetByEmail(email)
		if err == nil {
			u.GoogleID = &googleID
			if err := s.userRepo.Update(u); err != nil {
				return nil, "", "", false, err
			}
		} else if errors.Is(err, gorm.ErrRecordNotFound) {
			u = &models.User{
				Email:    email,
				FullName: fullName,
				GoogleID: &googleID,
				Role:     domain.RoleCustomer,
			}
			if err := s.userRepo.Create(u); err != nil {
				return nil, "", "", false, err
			}
			isNew = true
		} else {
			return nil, "", "", false, err
		}
	}
	access, err := auth.GenerateAccessToken(&s.cfg.JWT, u.ID, u.Email, u.Role)
	if err != nil {
		return u, "", "", isNew, err
	}
	refresh, err := auth.GenerateRefreshToken(&s.cfg.JWT, u.ID)
	if err != nil {
		return u, access, "", isNew, err
	}
	return u, access, refresh, isNew, nil
}

// Refresh exchanges a valid refresh token for a new access token.
func (s *AuthService) Refresh(refreshToken string) (string, error) {
	claims, err := auth.ParseRefreshToken(&s.cfg.JWT, refreshToken)
	if err != nil {
		return "", err
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return "", auth.ErrInvalidToken
	}
	u, err := s.userRepo.GetByID(uint(id))
	if err != nil {
		return "", auth.ErrInvalidToken
	}
	return auth.GenerateAccessToken(&s.cfg.JWT, u.ID, u.Email, u.Role)
}
