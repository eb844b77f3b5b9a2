package auth

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"hemolife-backend/internal/config"
	"hemolife-backend/internal/database"
	"hemolife-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

// checkerSpy registra as invocações da checagem de estoque no login.
type checkerSpy struct {
	calls int
}

func (s *checkerSpy) CheckAllTypesLowStock() ([]models.Alert, error) {
	s.calls++
	return nil, nil
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret: "chave-de-teste-com-mais-de-32-caracteres",
	}
}

func createUser(t *testing.T, username, password string, role models.UserRole, active bool) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash da senha: %v", err)
	}
	u := models.User{
		Name:         username,
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		Email:        username + "@hemolife.test",
		IsActive:     active,
	}
	if err := database.DB.Create(&u).Error; err != nil {
		t.Fatalf("criação de usuário falhou: %v", err)
	}
}

func loginRequest(t *testing.T, app *fiber.App, username, password string) int {
	t.Helper()
	body, _ := json.Marshal(LoginRequest{Username: username, Password: password})
	req := httptest.NewRequest("POST", "/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("requisição de login: %v", err)
	}
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestLoginHandler(t *testing.T) {
	database.DB = database.OpenTest(t)
	spy := &checkerSpy{}

	app := fiber.New()
	app.Post("/login", LoginHandler(testConfig(), spy))

	createUser(t, "carla", "segredo1", models.RoleAdmin, true)
	createUser(t, "ana", "segredo2", models.RoleDoctor, true)
	createUser(t, "inativo", "segredo3", models.RoleAdmin, false)

	if code := loginRequest(t, app, "carla", "errada"); code != fiber.StatusUnauthorized {
		t.Errorf("senha incorreta: status = %d, esperado 401", code)
	}
	if code := loginRequest(t, app, "ninguem", "segredo1"); code != fiber.StatusUnauthorized {
		t.Errorf("usuário inexistente: status = %d, esperado 401", code)
	}
	if code := loginRequest(t, app, "inativo", "segredo3"); code != fiber.StatusUnauthorized {
		t.Errorf("usuário desativado: status = %d, esperado 401", code)
	}
	if spy.calls != 0 {
		t.Errorf("checagem de estoque disparada em login rejeitado: %d chamadas", spy.calls)
	}

	// médico autentica, mas não dispara a checagem de estoque
	if code := loginRequest(t, app, "ana", "segredo2"); code != fiber.StatusOK {
		t.Errorf("login de médico: status = %d, esperado 200", code)
	}
	if spy.calls != 0 {
		t.Errorf("checagem de estoque disparada em login de médico: %d chamadas", spy.calls)
	}

	// admin autentica e dispara a checagem
	if code := loginRequest(t, app, "carla", "segredo1"); code != fiber.StatusOK {
		t.Errorf("login de admin: status = %d, esperado 200", code)
	}
	if spy.calls != 1 {
		t.Errorf("chamadas da checagem de estoque = %d, esperado 1", spy.calls)
	}
}
