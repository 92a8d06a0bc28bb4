package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/medirx/internal/apperr"
	"github.com/example/medirx/internal/middleware"
	"github.com/example/medirx/internal/models"
	"github.com/example/medirx/internal/services"
	"github.com/example/medirx/internal/utils"
)

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	db     *gorm.DB
	tokens *services.TokenService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, tokens *services.TokenService) *AuthHandler {
	return &AuthHandler{db: db, tokens: tokens}
}

type registerRequest struct {
	UserName  string `json:"user_name"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// Register creates a new user account.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}

	if req.UserName == "" || req.Password == "" || req.FirstName == "" {
		return apperr.BadRequest("user_name, first_name and password are required")
	}

	unique, err := h.isUniqueUserName(c, req.UserName)
	if err != nil {
		return err
	}
	if !unique {
		return apperr.Conflict("username %q already exists", req.UserName)
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		return apperr.Internal(err)
	}

	user := models.User{
		UserName:     req.UserName,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: passwordHash,
		IsActive:     true,
	}

	if err := h.db.WithContext(c.Context()).Create(&user).Error; err != nil {
		return err
	}

	pair, err := h.tokens.Issue(c.Context(), &user)
	if err != nil {
		return err
	}

	return utils.Created(c, fiber.Map{
		"user":   userResponse(&user),
		"tokens": pair,
	}, "account created")
}

type loginRequest struct {
	UserName string `json:"user_name"`
	Password string `json:"password"`
}

// Login authenticates a user by username and issues a token pair.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}

	var user models.User
	err := h.db.WithContext(c.Context()).Preload("Roles").
		Where("LOWER(user_name) = LOWER(?)", req.UserName).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Unauthorized("invalid credentials")
	}
	if err != nil {
		return err
	}

	if !user.IsActive {
		return apperr.Forbidden("user is not active")
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		return apperr.Unauthorized("invalid credentials")
	}

	pair, err := h.tokens.Issue(c.Context(), &user)
	if err != nil {
		return err
	}

	return utils.OK(c, fiber.Map{
		"user":   userResponse(&user),
		"tokens": pair,
	}, "login successful")
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh exchanges a refresh token for a fresh token pair.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return apperr.BadRequest("refresh_token is required")
	}

	pair, err := h.tokens.Refresh(c.Context(), req.RefreshToken)
	if err != nil {
		return err
	}

	return utils.OK(c, pair, "token refreshed")
}

// Logout revokes a single refresh token.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return apperr.BadRequest("refresh_token is required")
	}

	if err := h.tokens.Revoke(c.Context(), req.RefreshToken); err != nil {
		return err
	}

	return utils.OK(c, nil, "logged out")
}

// LogoutAll revokes every refresh token of the authenticated user.
func (h *AuthHandler) LogoutAll(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return apperr.Unauthorized("unauthorized")
	}

	if err := h.tokens.RevokeAll(c.Context(), userID); err != nil {
		return err
	}

	return utils.OK(c, nil, "all sessions revoked")
}

// isUniqueUserName checks that no user holds the name, case-insensitively.
func (h *AuthHandler) isUniqueUserName(c *fiber.Ctx, userName string) (bool, error) {
	var count int64
	err := h.db.WithContext(c.Context()).Model(&models.User{}).
		Where("LOWER(user_name) = LOWER(?)", userName).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

func userResponse(user *models.User) fiber.Map {
	roles := make([]string, 0, len(user.Roles))
	for _, role := range user.Roles {
		roles = append(roles, role.Name)
	}
	return fiber.Map{
		"id":         user.ID,
		"user_name":  user.UserName,
		"first_name": user.FirstName,
		"last_name":  user.LastName,
		"email":      user.Email,
		"roles":      roles,
	}
}
