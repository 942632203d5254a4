package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/smtp"

	"github.com/hibiken/asynq"
)

// MailConfig holds SMTP settings for outbound notices.
type MailConfig struct {
	Host string
	Port int
	From string
	To   string
}

// LogisticsNoticeJob delivers logistics notices by email.
type LogisticsNoticeJob struct {
	Mail   MailConfig
	Logger *slog.Logger
	send   func(addr, from string, to []string, msg []byte) error
}

// NewLogisticsNoticeJob wires dependencies for the notice handler.
func NewLogisticsNoticeJob(mail MailConfig, logger *slog.Logger) *LogisticsNoticeJob {
	return &LogisticsNoticeJob{
		Mail:   mail,
		Logger: logger,
		send: func(addr, from string, to []string, msg []byte) error {
			return smtp.SendMail(addr, nil, from, to, msg)
		},
	}
}

// Handle processes TaskTypeLogisticsNotice tasks.
func (j *LogisticsNoticeJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("logistics notice: handler not configured")
	}
	var payload LogisticsNoticePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	logger := j.logger().With(
		slog.String("order_number", payload.OrderNumber),
		slog.String("supplier", payload.SupplierName),
	)

	if j.Mail.Host == "" || j.Mail.To == "" {
		logger.Info("logistics notice skipped, mail not configured")
		return nil
	}

	subject := fmt.Sprintf("Solicitud de logística %s", payload.OrderNumber)
	body := fmt.Sprintf(
		"Orden: %s\r\nProveedor: %s\r\nEstado: %s\r\nTotal: $%.2f\r\nSolicitada: %s\r\n",
		payload.OrderNumber,
		payload.SupplierName,
		payload.Status,
		payload.Total,
		payload.RequestedAt.Format("2006-01-02 15:04"),
	)
	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		j.Mail.From, j.Mail.To, subject, body))

	addr := fmt.Sprintf("%s:%d", j.Mail.Host, j.Mail.Port)
	if err := j.send(addr, j.Mail.From, []string{j.Mail.To}, msg); err != nil {
		logger.Error("send logistics notice", slog.Any("error", err))
		return err
	}
	logger.Info("logistics notice sent")
	return nil
}

func (j *LogisticsNoticeJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
