package mail

import (
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
	"github.com/rs/zerolog"
)

// ISender 寄信介面, 核心流程fire-and-forget不等待結果
type ISender interface {
	SendVerificationCode(to string, code string)
}

type SMTPSender struct {
	from   string
	addr   string
	auth   smtp.Auth
	logger *zerolog.Logger
}

func NewSMTPSender(from, host, port, authKey string, logger *zerolog.Logger) *SMTPSender {
	return &SMTPSender{
		from:   from,
		addr:   fmt.Sprintf("%s:%s", host, port),
		auth:   smtp.PlainAuth("", from, authKey, host),
		logger: logger,
	}
}

// SendVerificationCode 非同步寄出註冊驗證碼, 失敗只記log
func (s *SMTPSender) SendVerificationCode(to string, code string) {
	go func() {
		e := email.NewEmail()
		e.From = s.from
		e.To = []string{to}
		e.Subject = "Signup verification code"
		e.HTML = []byte(fmt.Sprintf("<h1>Your signup verification code</h1><p>%s</p>", code))

		if err := e.Send(s.addr, s.auth); err != nil {
			s.logger.Error().Err(err).Str("to", to).Msg("failed to send verification mail")
		}
	}()
}

var _ ISender = (*SMTPSender)(nil)
