package notification

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zyadwael2009/gym/internal/logger"
)

func TestMain(m *testing.M) {
	logger.Init()

	code := m.Run()
	os.Exit(code)
}

func newTestService(rdb *redis.Client) *Service {
	return &Service{
		redis:    rdb,
		from:     "noreply@gym.local",
		fromName: "Gym",
		smtpHost: "smtp.test.com",
		smtpPort: "587",
		smtpUser: "test@example.com",
		smtpPass: "password",
	}
}

func TestSend(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.Regexp().ExpectLPush("notifications", `.*`).SetVal(1)

	svc := newTestService(db)

	err := svc.Send(ctx, TypeWelcome, "member@example.com", "Member", "Hello", "Test body")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSendPaymentReceipt(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.CustomMatch(func(expected, actual []interface{}) error {
		require.Len(t, actual, 3)
		raw, ok := actual[2].([]byte)
		if !ok {
			raw = []byte(actual[2].(string))
		}
		var job Job
		require.NoError(t, json.Unmarshal(raw, &job))
		assert.Equal(t, TypePaymentReceipt, job.Type)
		assert.Equal(t, "member@example.com", job.To)
		assert.Contains(t, job.Body, "PAY260101ABCD")
		assert.Contains(t, job.Body, "500.00 EGP")
		return nil
	}).ExpectLPush("notifications", `.*`).SetVal(1)

	svc := newTestService(db)

	err := svc.SendPaymentReceipt(ctx, "member@example.com", "Member", "PAY260101ABCD", 50000, "cash")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSendExpiryReminder(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.Regexp().ExpectLPush("notifications", `.*`).SetVal(1)

	svc := newTestService(db)

	endDate := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	err := svc.SendExpiryReminder(ctx, "member@example.com", "Member", "Gold Monthly", endDate, 7)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSendFreezeConfirmation(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.Regexp().ExpectLPush("notifications", `.*`).SetVal(1)

	svc := newTestService(db)

	newEnd := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	err := svc.SendFreezeConfirmation(ctx, "member@example.com", "Member", 10, newEnd)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueLength(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.ExpectLLen("notifications").SetVal(5)

	svc := newTestService(db)

	length := svc.QueueLength(ctx)
	assert.Equal(t, int64(5), length)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSendError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.Regexp().ExpectLPush("notifications", `.*`).SetErr(assert.AnError)

	svc := newTestService(db)

	err := svc.Send(ctx, TypeWelcome, "member@example.com", "Member", "Hello", "Test body")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "500.00 EGP", formatCents(50000))
	assert.Equal(t, "0.05 EGP", formatCents(5))
	assert.Equal(t, "123.45 EGP", formatCents(12345))
}
