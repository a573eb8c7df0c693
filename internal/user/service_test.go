package user

import (
	"context"
	"errors"
	"testing"

	"github.com/zyadwael2009/gym/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, req RegisterRequest, passwordHash string) (*User, error) {
	args := m.Called(ctx, req, passwordHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockRepository) FindByID(ctx context.Context, id int) (*User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) Deactivate(ctx context.Context, id int) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func TestService_Register(t *testing.T) {
	tests := []struct {
		name          string
		req           RegisterRequest
		setupMock     func(*MockRepository)
		expectedError error
	}{
		{
			name: "successful registration",
			req: RegisterRequest{
				FullName: "Sara Fahmy",
				Email:    "sara@example.com",
				Password: "password123",
				Role:     RoleReceptionist,
			},
			setupMock: func(m *MockRepository) {
				m.On("EmailExists", mock.Anything, "sara@example.com").Return(false, nil)
				m.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(&User{
					ID:       1,
					FullName: "Sara Fahmy",
					Email:    "sara@example.com",
					Role:     RoleReceptionist,
				}, nil)
			},
		},
		{
			name: "email already exists",
			req: RegisterRequest{
				FullName: "Sara Fahmy",
				Email:    "existing@example.com",
				Password: "password123",
				Role:     RoleReceptionist,
			},
			setupMock: func(m *MockRepository) {
				m.On("EmailExists", mock.Anything, "existing@example.com").Return(true, nil)
			},
			expectedError: ErrEmailExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockRepository)
			tt.setupMock(mockRepo)

			service := NewService(mockRepo, "test-secret", "test-refresh-secret")
			user, accessToken, refreshToken, err := service.Register(context.Background(), tt.req)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, user)
				assert.Empty(t, accessToken)
				assert.Empty(t, refreshToken)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, user)
				assert.NotEmpty(t, accessToken)
				assert.NotEmpty(t, refreshToken)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestService_Login(t *testing.T) {
	passwordHash, err := auth.HashPassword("password123")
	assert.NoError(t, err)

	tests := []struct {
		name          string
		req           LoginRequest
		setupMock     func(*MockRepository)
		expectedError error
	}{
		{
			name: "successful login",
			req:  LoginRequest{Email: "sara@example.com", Password: "password123"},
			setupMock: func(m *MockRepository) {
				m.On("FindByEmail", mock.Anything, "sara@example.com").Return(&User{
					ID:           1,
					Email:        "sara@example.com",
					PasswordHash: passwordHash,
					Role:         RoleReceptionist,
				}, nil)
			},
		},
		{
			name: "user not found",
			req:  LoginRequest{Email: "notfound@example.com", Password: "password123"},
			setupMock: func(m *MockRepository) {
				m.On("FindByEmail", mock.Anything, "notfound@example.com").Return(nil, errors.New("not found"))
			},
			expectedError: ErrInvalidCredentials,
		},
		{
			name: "wrong password",
			req:  LoginRequest{Email: "sara@example.com", Password: "nope"},
			setupMock: func(m *MockRepository) {
				m.On("FindByEmail", mock.Anything, "sara@example.com").Return(&User{
					ID:           1,
					Email:        "sara@example.com",
					PasswordHash: passwordHash,
					Role:         RoleReceptionist,
				}, nil)
			},
			expectedError: ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockRepository)
			tt.setupMock(mockRepo)

			service := NewService(mockRepo, "test-secret", "test-refresh-secret")
			user, accessToken, refreshToken, err := service.Login(context.Background(), tt.req)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, user)
				assert.Empty(t, accessToken)
				assert.Empty(t, refreshToken)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, user)
				assert.NotEmpty(t, accessToken)
				assert.NotEmpty(t, refreshToken)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestService_RefreshToken(t *testing.T) {
	actor := auth.StaffActor(1, RoleManager)
	refreshToken, err := auth.GenerateRefreshToken(actor, "sara@example.com", "test-refresh-secret")
	assert.NoError(t, err)

	mockRepo := new(MockRepository)
	mockRepo.On("FindByID", mock.Anything, 1).Return(&User{
		ID:       1,
		Email:    "sara@example.com",
		Role:     RoleManager,
		IsActive: true,
	}, nil)

	service := NewService(mockRepo, "test-secret", "test-refresh-secret")
	newAccess, user, err := service.RefreshToken(context.Background(), refreshToken)

	assert.NoError(t, err)
	assert.NotEmpty(t, newAccess)
	assert.Equal(t, 1, user.ID)

	claims, err := auth.ValidateToken(newAccess, "test-secret")
	assert.NoError(t, err)
	assert.Equal(t, RoleManager, claims.Role)
	mockRepo.AssertExpectations(t)
}
