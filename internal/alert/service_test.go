package alert

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"hemolife-backend/internal/apperr"
	"hemolife-backend/internal/config"
	"hemolife-backend/internal/database"
	"hemolife-backend/internal/ledger"
	"hemolife-backend/internal/models"
	"hemolife-backend/internal/notifier"

	"gorm.io/gorm"
)

// transportSpy conta envios; opcionalmente falha para verificar que o erro
// fica no log e não volta para o chamador.
type transportSpy struct {
	mu   sync.Mutex
	sent []string
	fail bool
}

func (s *transportSpy) Send(to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, to)
	if s.fail {
		return errors.New("conexão recusada")
	}
	return nil
}

func newTestService(t *testing.T, suppression time.Duration) (*Service, *ledger.Service, *transportSpy, *gorm.DB) {
	t.Helper()
	db := database.OpenTest(t)
	led := ledger.NewService(db)
	spy := &transportSpy{}
	cfg := &config.Config{LowStockSuppression: suppression}
	return NewService(db, led, notifier.NewDispatcher(spy), cfg), led, spy, db
}

func createUser(t *testing.T, db *gorm.DB, username string, role models.UserRole, active bool) models.User {
	t.Helper()
	u := models.User{
		Name:         username,
		Username:     username,
		PasswordHash: "x",
		Role:         role,
		Email:        username + "@hemolife.test",
		IsActive:     active,
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("criação de usuário falhou: %v", err)
	}
	return u
}

func TestCheckAllTypesLowStock(t *testing.T) {
	svc, led, _, db := newTestService(t, 0)
	admin1 := createUser(t, db, "carla", models.RoleAdmin, true)
	admin2 := createUser(t, db, "mauro", models.RoleAdmin, true)
	createUser(t, db, "inativo", models.RoleAdmin, false)
	createUser(t, db, "bruno", models.RoleTechnician, true)

	now := time.Now()
	// O+ acima do mínimo (40); os demais 7 tipos ficam com saldo zero
	if _, err := led.AddLot("O+", 50, now, now.AddDate(0, 0, 42), nil); err != nil {
		t.Fatalf("AddLot: %v", err)
	}

	created, err := svc.CheckAllTypesLowStock()
	if err != nil {
		t.Fatalf("CheckAllTypesLowStock: %v", err)
	}
	// 7 tipos baixos x 2 admins ativos
	if len(created) != 14 {
		t.Errorf("alertas criados = %d, esperado 14", len(created))
	}

	for _, a := range created {
		if a.Category != models.AlertLowStock {
			t.Errorf("categoria = %s, esperado low_stock", a.Category)
		}
		if a.Status != models.AlertSent {
			t.Errorf("status = %s, esperado sent", a.Status)
		}
		if a.RecipientID != admin1.ID && a.RecipientID != admin2.ID {
			t.Errorf("alerta enviado para destinatário inesperado: %d", a.RecipientID)
		}
	}
}

func TestCheckTypeLowStock(t *testing.T) {
	svc, led, _, db := newTestService(t, 0)
	admin := createUser(t, db, "carla", models.RoleAdmin, true)

	now := time.Now()
	if _, err := led.AddLot("AB-", 4, now, now.AddDate(0, 0, 42), nil); err != nil {
		t.Fatalf("AddLot: %v", err)
	}

	// AB- mínimo semeado = 10, saldo 4: alerta
	created, err := svc.CheckTypeLowStock("AB-")
	if err != nil {
		t.Fatalf("CheckTypeLowStock: %v", err)
	}
	if len(created) != 1 || created[0].RecipientID != admin.ID {
		t.Fatalf("alertas = %+v, esperado 1 para o admin", created)
	}

	// reposição acima do mínimo: sem alerta
	if _, err := led.AddLot("AB-", 20, now, now.AddDate(0, 0, 42), nil); err != nil {
		t.Fatalf("AddLot: %v", err)
	}
	created, err = svc.CheckTypeLowStock("AB-")
	if err != nil {
		t.Fatalf("CheckTypeLowStock: %v", err)
	}
	if len(created) != 0 {
		t.Errorf("alertas com saldo ok = %d, esperado 0", len(created))
	}

	if _, err := svc.CheckTypeLowStock("X+"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("tipo desconhecido erro = %v, esperado ErrNotFound", err)
	}
}

func TestLowStockSuppressionWindow(t *testing.T) {
	svc, _, _, db := newTestService(t, 30*time.Minute)
	createUser(t, db, "carla", models.RoleAdmin, true)

	// AB+ com saldo zero fica abaixo do mínimo semeado
	first, err := svc.CheckTypeLowStock("AB+")
	if err != nil {
		t.Fatalf("CheckTypeLowStock: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("alertas na primeira checagem = %d, esperado 1", len(first))
	}
	if first[0].BloodType != "AB+" {
		t.Errorf("tipo do alerta = %q, esperado AB+", first[0].BloodType)
	}

	// dentro da janela: suprimido mesmo que o texto da mensagem mude
	if err := db.Model(&models.Alert{}).
		Where("id = ?", first[0].ID).
		Update("message", "texto antigo reescrito").Error; err != nil {
		t.Fatalf("ajuste da mensagem: %v", err)
	}
	second, err := svc.CheckTypeLowStock("AB+")
	if err != nil {
		t.Fatalf("CheckTypeLowStock: %v", err)
	}
	if len(second) != 0 {
		t.Errorf("alertas dentro da janela = %d, esperado 0", len(second))
	}

	// supressão é por tipo: outro tipo baixo ainda alerta
	other, err := svc.CheckTypeLowStock("B-")
	if err != nil {
		t.Fatalf("CheckTypeLowStock: %v", err)
	}
	if len(other) != 1 {
		t.Errorf("alertas de outro tipo = %d, esperado 1", len(other))
	}

	// alerta antigo fora da janela não suprime
	if err := db.Model(&models.Alert{}).
		Where("id = ?", first[0].ID).
		Update("sent_date", time.Now().Add(-time.Hour)).Error; err != nil {
		t.Fatalf("ajuste de data: %v", err)
	}
	third, err := svc.CheckTypeLowStock("AB+")
	if err != nil {
		t.Fatalf("CheckTypeLowStock: %v", err)
	}
	if len(third) != 1 {
		t.Errorf("alertas após expirar a janela = %d, esperado 1", len(third))
	}
}

func TestNotifyNewRequestReachesStaff(t *testing.T) {
	svc, _, _, db := newTestService(t, 0)
	admin := createUser(t, db, "carla", models.RoleAdmin, true)
	tech := createUser(t, db, "bruno", models.RoleTechnician, true)
	doctor := createUser(t, db, "ana", models.RoleDoctor, true)
	createUser(t, db, "inativo", models.RoleTechnician, false)

	req := &models.Request{
		ID:        1,
		BloodType: "O+",
		Quantity:  3,
		Urgency:   models.UrgencyUrgent,
	}
	if err := svc.NotifyNewRequest(req); err != nil {
		t.Fatalf("NotifyNewRequest: %v", err)
	}

	var alerts []models.Alert
	if err := db.Where("category = ?", models.AlertNewRequest).Find(&alerts).Error; err != nil {
		t.Fatalf("consulta de alertas: %v", err)
	}
	if len(alerts) != 2 {
		t.Fatalf("alertas = %d, esperado 2 (admin + técnico ativos)", len(alerts))
	}
	recipients := map[uint]bool{}
	for _, a := range alerts {
		recipients[a.RecipientID] = true
	}
	if !recipients[admin.ID] || !recipients[tech.ID] {
		t.Errorf("destinatários = %v, esperado admin e técnico", recipients)
	}
	if recipients[doctor.ID] {
		t.Error("médico não deve receber alerta de nova requisição")
	}
}

func TestNotifyResolutionIncludesReason(t *testing.T) {
	svc, _, _, db := newTestService(t, 0)
	doctor := createUser(t, db, "ana", models.RoleDoctor, true)

	req := &models.Request{
		ID:              7,
		BloodType:       "A+",
		Quantity:        2,
		RequesterID:     doctor.ID,
		Status:          models.RequestRejected,
		RejectionReason: "sem compatibilidade confirmada",
	}
	if err := svc.NotifyResolution(req); err != nil {
		t.Fatalf("NotifyResolution: %v", err)
	}

	var a models.Alert
	if err := db.First(&a, "category = ?", models.AlertRequestResolved).Error; err != nil {
		t.Fatalf("alerta de resolução não gravado: %v", err)
	}
	if a.RecipientID != doctor.ID {
		t.Errorf("destinatário = %d, esperado o solicitante %d", a.RecipientID, doctor.ID)
	}
	if !strings.Contains(a.Message, "sem compatibilidade confirmada") {
		t.Errorf("mensagem sem o motivo da rejeição: %q", a.Message)
	}
}

func TestMarkRead(t *testing.T) {
	svc, _, _, db := newTestService(t, 0)
	admin := createUser(t, db, "carla", models.RoleAdmin, true)
	other := createUser(t, db, "mauro", models.RoleAdmin, true)

	created, err := svc.CheckTypeLowStock("B+")
	if err != nil {
		t.Fatalf("CheckTypeLowStock: %v", err)
	}
	var mine models.Alert
	for _, a := range created {
		if a.RecipientID == admin.ID {
			mine = a
		}
	}
	if mine.ID == 0 {
		t.Fatal("alerta do admin não encontrado")
	}

	if err := svc.MarkRead(mine.ID, other.ID); !errors.Is(err, apperr.ErrPermission) {
		t.Errorf("marcar alerta alheio erro = %v, esperado ErrPermission", err)
	}
	if err := svc.MarkRead(9999, admin.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("marcar inexistente erro = %v, esperado ErrNotFound", err)
	}

	if err := svc.MarkRead(mine.ID, admin.ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	var reloaded models.Alert
	if err := db.First(&reloaded, "id = ?", mine.ID).Error; err != nil {
		t.Fatalf("recarga do alerta: %v", err)
	}
	if reloaded.Status != models.AlertRead {
		t.Errorf("status = %s, esperado read", reloaded.Status)
	}

	unread, err := svc.ListForRecipient(admin.ID, true)
	if err != nil {
		t.Fatalf("ListForRecipient: %v", err)
	}
	for _, a := range unread {
		if a.ID == mine.ID {
			t.Error("alerta lido ainda listado entre não lidos")
		}
	}
}

func TestTransportFailureDoesNotFailCheck(t *testing.T) {
	svc, _, spy, db := newTestService(t, 0)
	spy.fail = true
	createUser(t, db, "carla", models.RoleAdmin, true)

	created, err := svc.CheckTypeLowStock("A-")
	if err != nil {
		t.Fatalf("falha de transporte vazou para o chamador: %v", err)
	}
	if len(created) != 1 {
		t.Errorf("alertas = %d, esperado 1 mesmo com transporte falho", len(created))
	}
}
