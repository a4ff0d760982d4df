package transport

import (
	"net/http"

	"ecommerce-api/internal/domain"
	"ecommerce-api/internal/middleware"
	"ecommerce-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"max=100"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries a refresh token for refresh and logout
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type UpdateProfileRequest struct {
	FullName    string `json:"full_name" validate:"max=100"`
	PhoneNumber string `json:"phone_number" validate:"max=20"`
	ImageURL    string `json:"image_url" validate:"omitempty,url"`
	Gender      string `json:"gender" validate:"omitempty,oneof=MALE FEMALE OTHER UNSPECIFIED"`
}

type AddressRequest struct {
	Title       string `json:"title" validate:"required,max=50"`
	Line1       string `json:"line1" validate:"required,max=255"`
	Line2       string `json:"line2" validate:"max=255"`
	Country     string `json:"country" validate:"required,max=100"`
	City        string `json:"city" validate:"required,max=100"`
	PostalCode  string `json:"postal_code" validate:"max=20"`
	Landmark    string `json:"landmark" validate:"max=255"`
	PhoneNumber string `json:"phone_number" validate:"max=20"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         UserProfile `json:"user"`
}

// RefreshResponse represents the token refresh response
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
}

// UserProfile is the public view of a user
type UserProfile struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
	ImageURL    string `json:"image_url"`
	Gender      string `json:"gender"`
	Role        string `json:"role"`
}

func profileOf(user *domain.User) UserProfile {
	return UserProfile{
		ID:          user.ID.String(),
		Username:    user.Username,
		Email:       user.Email,
		FullName:    user.FullName,
		PhoneNumber: user.PhoneNumber,
		ImageURL:    user.ImageURL,
		Gender:      string(user.Gender),
		Role:        string(user.Role),
	}
}

// UserHandler handles authentication, profile and address requests
type UserHandler struct {
	userService    service.UserService
	addressService service.AddressService
	logger         *zap.Logger
}

func NewUserHandler(userService service.UserService, addressService service.AddressService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService:    userService,
		addressService: addressService,
		logger:         logger,
	}
}

// RegisterRoutes registers the auth and user routes
func (h *UserHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.RefreshToken)
		r.Post("/logout", h.Logout)
	})

	r.Route("/users/me", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.GetProfile)
		r.Put("/", h.UpdateProfile)

		r.Get("/addresses", h.ListAddresses)
		r.Post("/addresses", h.CreateAddress)
		r.Put("/addresses/{id}", h.UpdateAddress)
		r.Delete("/addresses/{id}", h.DeleteAddress)
	})
}

// Register handles user registration
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Registration validation failed", zap.Error(err))
		middleware.RespondWithDecodeError(w, r, err)
		return
	}

	user, err := h.userService.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, "user registered", profileOf(user))
}

// Login handles user authentication
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, r, err)
		return
	}

	accessToken, refreshToken, user, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, "login successful", LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         profileOf(user),
	})
}

// Logout revokes the supplied refresh token
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, r, err)
		return
	}

	if err := h.userService.Logout(r.Context(), req.RefreshToken); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, "logged out successfully", nil)
}

// RefreshToken exchanges a refresh token for a new access token
func (h *UserHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, r, err)
		return
	}

	accessToken, err := h.userService.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, "token refreshed", RefreshResponse{AccessToken: accessToken})
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	principal, err := principalOf(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	user, err := h.userService.GetUserByID(r.Context(), principal.UserID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, "profile", profileOf(user))
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	principal, err := principalOf(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var req UpdateProfileRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, r, err)
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), principal.UserID, service.ProfileInput{
		FullName:    req.FullName,
		PhoneNumber: req.PhoneNumber,
		ImageURL:    req.ImageURL,
		Gender:      domain.Gender(req.Gender),
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, "profile updated", profileOf(user))
}

func (h *UserHandler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	principal, err := principalOf(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	addresses, err := h.addressService.List(r.Context(), principal)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, "addresses", addresses)
}

func (h *UserHandler) CreateAddress(w http.ResponseWriter, r *http.Request) {
	principal, err := principalOf(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var req AddressRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, r, err)
		return
	}

	address, err := h.addressService.Create(r.Context(), principal, req.input())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, "address created", address)
}

func (h *UserHandler) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	principal, err := principalOf(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	id, err := uuidParam(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var req AddressRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, r, err)
		return
	}

	address, err := h.addressService.Update(r.Context(), principal, id, req.input())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, "address updated", address)
}

func (h *UserHandler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	principal, err := principalOf(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	id, err := uuidParam(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	if err := h.addressService.Delete(r.Context(), principal, id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, "address deleted", nil)
}

func (req AddressRequest) input() service.AddressInput {
	return service.AddressInput{
		Title:       req.Title,
		Line1:       req.Line1,
		Line2:       req.Line2,
		Country:     req.Country,
		City:        req.City,
		PostalCode:  req.PostalCode,
		Landmark:    req.Landmark,
		PhoneNumber: req.PhoneNumber,
	}
}
