package admin

import (
	"strings"

	"hemolife-backend/internal/database"
	"hemolife-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

type CreateUserRequest struct {
	Name     string          `json:"name"`
	Username string          `json:"username"`
	Email    string          `json:"email"`
	Password string          `json:"password"`
	Role     models.UserRole `json:"role"`
}

type UpdateUserRequest struct {
	Name  *string          `json:"name"`
	Email *string          `json:"email"`
	Role  *models.UserRole `json:"role"`
}

type ResetPasswordRequest struct {
	Password string `json:"password"`
}

type UserResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	IsActive  bool   `json:"is_active"`
	LastLogin string `json:"last_login,omitempty"`
}

func userResponse(u *models.User) UserResponse {
	resp := UserResponse{
		ID:       u.ID,
		Name:     u.Name,
		Username: u.Username,
		Email:    u.Email,
		Role:     string(u.Role),
		IsActive: u.IsActive,
	}
	if u.LastLogin != nil {
		resp.LastLogin = u.LastLogin.Format("2006-01-02 15:04:05")
	}
	return resp
}

func validRole(r models.UserRole) bool {
	switch r {
	case models.RoleAdmin, models.RoleTechnician, models.RoleDoctor:
		return true
	}
	return false
}

// ----------------------------------------
// GESTÃO DE USUÁRIOS (admin)
// ----------------------------------------

// POST /api/admin/users
func CreateUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateUserRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo da requisição inválido")
		}

		body.Username = strings.TrimSpace(strings.ToLower(body.Username))
		body.Name = strings.TrimSpace(body.Name)

		if body.Name == "" || body.Username == "" || body.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Nome, usuário e senha são obrigatórios")
		}
		if !validRole(body.Role) {
			return fiber.NewError(fiber.StatusBadRequest, "Perfil deve ser admin, technician ou doctor")
		}

		var count int64
		database.DB.Model(&models.User{}).Where("username = ?", body.Username).Count(&count)
		if count > 0 {
			return fiber.NewError(fiber.StatusConflict, "Nome de usuário já cadastrado")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível gerar o hash da senha")
		}

		user := models.User{
			Name:         body.Name,
			Username:     body.Username,
			Email:        strings.TrimSpace(strings.ToLower(body.Email)),
			PasswordHash: string(hash),
			Role:         body.Role,
			IsActive:     true,
		}
		if err := database.DB.Create(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível criar o usuário")
		}

		return c.Status(fiber.StatusCreated).JSON(userResponse(&user))
	}
}

// GET /api/admin/users
func ListUsersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var users []models.User
		if err := database.DB.Order("name ASC").Find(&users).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível listar os usuários")
		}

		resp := make([]UserResponse, 0, len(users))
		for i := range users {
			resp = append(resp, userResponse(&users[i]))
		}
		return c.JSON(resp)
	}
}

// PUT /api/admin/users/:id
func UpdateUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := c.ParamsInt("id")
		if err != nil || userID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "ID inválido")
		}

		var body UpdateUserRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo da requisição inválido")
		}

		var user models.User
		if err := database.DB.First(&user, "id = ?", userID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Usuário não encontrado")
		}

		if body.Name != nil {
			user.Name = strings.TrimSpace(*body.Name)
		}
		if body.Email != nil {
			user.Email = strings.TrimSpace(strings.ToLower(*body.Email))
		}
		if body.Role != nil {
			if !validRole(*body.Role) {
				return fiber.NewError(fiber.StatusBadRequest, "Perfil deve ser admin, technician ou doctor")
			}
			user.Role = *body.Role
		}

		if err := database.DB.Save(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível atualizar o usuário")
		}
		return c.JSON(userResponse(&user))
	}
}

// POST /api/admin/users/:id/toggle-active
func ToggleUserActiveHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := c.ParamsInt("id")
		if err != nil || userID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "ID inválido")
		}

		var user models.User
		if err := database.DB.First(&user, "id = ?", userID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Usuário não encontrado")
		}

		user.IsActive = !user.IsActive
		if err := database.DB.Save(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível atualizar o usuário")
		}
		return c.JSON(userResponse(&user))
	}
}

// POST /api/admin/users/:id/reset-password
func ResetPasswordHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := c.ParamsInt("id")
		if err != nil || userID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "ID inválido")
		}

		var body ResetPasswordRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corpo da requisição inválido")
		}
		if len(body.Password) < 6 {
			return fiber.NewError(fiber.StatusBadRequest, "Senha deve ter no mínimo 6 caracteres")
		}

		var user models.User
		if err := database.DB.First(&user, "id = ?", userID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Usuário não encontrado")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível gerar o hash da senha")
		}

		if err := database.DB.Model(&user).Update("password_hash", string(hash)).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível redefinir a senha")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
