// Package notifier entrega mensagens aos usuários fora do sistema (email).
// A entrega é sempre desacoplada da mutação que a originou: transporte lento
// ou indisponível nunca bloqueia nem desfaz uma escrita no ledger/fluxo.
package notifier

import (
	"fmt"
	"log"
	"net/smtp"

	"hemolife-backend/internal/config"
)

// Transport aceita (destinatário, assunto, corpo). Implementações externas
// (SMS, webhook) entram por aqui.
type Transport interface {
	Send(to, subject, body string) error
}

type SMTPTransport struct {
	host     string
	port     string
	from     string
	password string
}

func NewSMTP(cfg *config.Config) *SMTPTransport {
	return &SMTPTransport{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.SMTPFrom,
		password: cfg.SMTPPassword,
	}
}

func (t *SMTPTransport) Send(to, subject, body string) error {
	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", t.from, to, subject, body))
	auth := smtp.PlainAuth("", t.from, t.password, t.host)
	return smtp.SendMail(t.host+":"+t.port, auth, t.from, []string{to}, msg)
}

// Dispatcher dispara envios em background. Transporte nulo (SMTP não
// configurado) vira no-op: os alertas persistidos continuam sendo a fonte
// de verdade.
type Dispatcher struct {
	transport Transport
}

func NewDispatcher(transport Transport) *Dispatcher {
	return &Dispatcher{transport: transport}
}

func (d *Dispatcher) Dispatch(to, subject, body string) {
	if d == nil || d.transport == nil || to == "" {
		return
	}
	go func() {
		if err := d.transport.Send(to, subject, body); err != nil {
			log.Printf("Falha ao enviar email para %s: %v", to, err)
		}
	}()
}
