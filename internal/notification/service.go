// Package notification queues member emails on Redis and drains the
// queue with an SMTP worker. Producers never wait on SMTP; a send
// failure retries twice before landing on the failed queue.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"time"

	"github.com/zyadwael2009/gym/internal/logger"
	"github.com/zyadwael2009/gym/internal/metrics"

	"github.com/redis/go-redis/v9"
)

const (
	queueKey       = "notifications"
	failedQueueKey = "notifications:failed"
	maxAttempts    = 3
)

const (
	TypePaymentReceipt     = "payment_receipt"
	TypeExpiryReminder     = "expiry_reminder"
	TypeFreezeConfirmation = "freeze_confirmation"
	TypeWelcome            = "welcome"
)

type Job struct {
	Type    string    `json:"type"`
	To      string    `json:"to"`
	Name    string    `json:"name"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	Tries   int       `json:"tries"`
	Created time.Time `json:"created"`
}

type Service struct {
	redis    *redis.Client
	from     string
	fromName string
	smtpHost string
	smtpPort string
	smtpUser string
	smtpPass string
}

func New(fromEmail, fromName, smtpHost, smtpPort, smtpUser, smtpPass, redisAddr string) *Service {
	return &Service{
		redis: redis.NewClient(&redis.Options{
			Addr: redisAddr,
		}),
		from:     fromEmail,
		fromName: fromName,
		smtpHost: smtpHost,
		smtpPort: smtpPort,
		smtpUser: smtpUser,
		smtpPass: smtpPass,
	}
}

func (s *Service) Send(ctx context.Context, notificationType, to, name, subject, body string) error {
	job := Job{
		Type:    notificationType,
		To:      to,
		Name:    name,
		Subject: subject,
		Body:    body,
		Tries:   0,
		Created: time.Now(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		logger.Errorf("Failed to marshal notification job: %v", err)
		return err
	}

	if err := s.redis.LPush(ctx, queueKey, data).Err(); err != nil {
		logger.Errorf("Failed to queue %s notification to %s: %v", notificationType, to, err)
		return err
	}

	metrics.RecordNotification(notificationType, "queued")
	logger.Infof("Notification queued: %s to %s", subject, to)
	return nil
}

func (s *Service) Start(ctx context.Context) {
	logger.Info("Notification worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Notification worker stopped")
			return
		default:
			s.processNext(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if err != nil {
		return
	}
	metrics.NotificationQueueLength.Set(float64(s.QueueLength(ctx)))

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Errorf("Bad notification data: %v", err)
		return
	}

	job.Tries++
	logger.Infof("Sending %s to %s (attempt %d)", job.Type, job.To, job.Tries)
	if err := s.sendNow(job); err != nil {
		logger.Errorf("Failed to send %s to %s: %v", job.Type, job.To, err)

		if job.Tries < maxAttempts {
			time.Sleep(5 * time.Second)
			data, _ := json.Marshal(job)
			s.redis.LPush(context.Background(), queueKey, data)
			logger.Infof("Retrying %s to %s (attempt %d)", job.Type, job.To, job.Tries+1)
		} else {
			logger.Errorf("Notification to %s failed after %d attempts", job.To, maxAttempts)
			s.saveFailed(job, err)
			metrics.RecordNotification(job.Type, "failed")
		}
		return
	}

	metrics.RecordNotification(job.Type, "sent")
	logger.Infof("Notification sent to %s", job.To)
}

func (s *Service) sendNow(job Job) error {
	message := fmt.Sprintf("From: %s <%s>\r\n", s.fromName, s.from)
	message += fmt.Sprintf("To: %s\r\n", job.To)
	message += fmt.Sprintf("Subject: %s\r\n", job.Subject)
	message += "\r\n" + job.Body

	var auth smtp.Auth
	if s.smtpUser != "" && s.smtpPass != "" {
		auth = smtp.PlainAuth("", s.smtpUser, s.smtpPass, s.smtpHost)
	}

	addr := s.smtpHost + ":" + s.smtpPort
	return smtp.SendMail(addr, auth, s.from, []string{job.To}, []byte(message))
}

func (s *Service) saveFailed(job Job, err error) {
	failed := map[string]interface{}{
		"job":   job,
		"error": err.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.Background(), failedQueueKey, data)
	logger.Errorf("Notification moved to failed queue: %s", job.To)
}

func (s *Service) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, queueKey).Result()
	return length
}

func (s *Service) Close() error {
	return s.redis.Close()
}

func formatCents(cents int64) string {
	return fmt.Sprintf("%d.%02d EGP", cents/100, cents%100)
}

func (s *Service) SendPaymentReceipt(ctx context.Context, email, name, paymentNumber string, amountCents int64, method string) error {
	subject := "Payment Received - " + paymentNumber
	body := fmt.Sprintf(`Hi %s,

We have received your payment.

Receipt: %s
Amount: %s
Method: %s

Thank you!

- %s`, name, paymentNumber, formatCents(amountCents), method, s.fromName)

	return s.Send(ctx, TypePaymentReceipt, email, name, subject, body)
}

func (s *Service) SendExpiryReminder(ctx context.Context, email, name, planName string, endDate time.Time, daysLeft int) error {
	subject := fmt.Sprintf("Your %s membership expires in %d days", planName, daysLeft)
	body := fmt.Sprintf(`Hi %s,

Your %s membership ends on %s.

Renew at the front desk or online to keep training without a break.

- %s`, name, planName, endDate.Format("Jan 2, 2006"), s.fromName)

	return s.Send(ctx, TypeExpiryReminder, email, name, subject, body)
}

func (s *Service) SendFreezeConfirmation(ctx context.Context, email, name string, days int, newEndDate time.Time) error {
	subject := "Membership Frozen"
	body := fmt.Sprintf(`Hi %s,

Your membership is frozen for %d days. Your new end date is %s.

- %s`, name, days, newEndDate.Format("Jan 2, 2006"), s.fromName)

	return s.Send(ctx, TypeFreezeConfirmation, email, name, subject, body)
}

func (s *Service) SendWelcome(ctx context.Context, email, name, planName string, endDate time.Time) error {
	subject := "Welcome Aboard!"
	body := fmt.Sprintf(`Hi %s,

Your %s membership is active through %s.

See you at the gym!

- %s`, name, planName, endDate.Format("Jan 2, 2006"), s.fromName)

	return s.Send(ctx, TypeWelcome, email, name, subject, body)
}
