package usecase_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/repository"
	"app/internal/usecase"
)

// =====================
// Mocks
// =====================

type AuthUserRepoMock struct{ mock.Mock }

func (m *AuthUserRepoMock) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *AuthUserRepoMock) FindByID(ctx context.Context, userID int64) (*model.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *AuthUserRepoMock) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *AuthUserRepoMock) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

type AuthResetRepoMock struct{ mock.Mock }

func (m *AuthResetRepoMock) Create(ctx context.Context, t model.PasswordResetToken) (model.PasswordResetToken, error) {
	args := m.Called(ctx, t)
	created, _ := args.Get(0).(model.PasswordResetToken)
	return created, args.Error(1)
}

func (m *AuthResetRepoMock) FindByToken(ctx context.Context, token string) (model.PasswordResetToken, error) {
	args := m.Called(ctx, token)
	t, _ := args.Get(0).(model.PasswordResetToken)
	return t, args.Error(1)
}

func (m *AuthResetRepoMock) MarkUsed(ctx context.Context, id int64, usedAt time.Time) error {
	args := m.Called(ctx, id, usedAt)
	return args.Error(0)
}

func newAuthUsecase() (*usecase.AuthUsecase, *AuthUserRepoMock, *AuthResetRepoMock) {
	uRepo := new(AuthUserRepoMock)
	rRepo := new(AuthResetRepoMock)
	cfg := config.Config{JWTSecret: "test-secret"}
	return usecase.NewAuthUsecase(cfg, uRepo, rRepo), uRepo, rRepo
}

func hash(t *testing.T, password string) string {
	t.Helper()
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	assert.NoError(t, err)
	return string(b)
}

// =====================
// Register
// =====================

func TestAuthUsecase_Register_InvalidEmail(t *testing.T) {
	uc, _, _ := newAuthUsecase()

	_, err := uc.Register(context.Background(), usecase.RegisterInput{
		Email: "not-an-email", Password: "s3curePass!",
	})
	assertHTTPStatus(t, err, http.StatusBadRequest)
}

func TestAuthUsecase_Register_ShortPassword(t *testing.T) {
	uc, _, _ := newAuthUsecase()

	_, err := uc.Register(context.Background(), usecase.RegisterInput{
		Email: "a@example.com", Password: "short",
	})
	assertHTTPStatus(t, err, http.StatusBadRequest)
}

func TestAuthUsecase_Register_WeakPassword(t *testing.T) {
	uc, _, _ := newAuthUsecase()

	_, err := uc.Register(context.Background(), usecase.RegisterInput{
		Email: "a@example.com", Password: "password123",
	})
	assertHTTPStatus(t, err, http.StatusBadRequest)
}

func TestAuthUsecase_Register_DuplicateEmail(t *testing.T) {
	uc, uRepo, _ := newAuthUsecase()

	uRepo.On("FindByEmail", mock.Anything, "a@example.com").
		Return(&model.User{ID: 1, Email: "a@example.com"}, nil)

	_, err := uc.Register(context.Background(), usecase.RegisterInput{
		Email: "a@example.com", Password: "s3curePass!",
	})
	assertHTTPStatus(t, err, http.StatusConflict)
}

func TestAuthUsecase_Register_Success(t *testing.T) {
	uc, uRepo, _ := newAuthUsecase()

	uRepo.On("FindByEmail", mock.Anything, "a@example.com").
		Return(nil, repository.ErrUserNotFound)
	uRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		//平文は保存されない
		return u.Email == "a@example.com" &&
			u.PasswordHash != "s3curePass!" &&
			u.Role == model.RoleUser &&
			u.IsActive
	})).Return(nil)

	out, err := uc.Register(context.Background(), usecase.RegisterInput{
		Email: "a@example.com", Password: "s3curePass!", FirstName: " Asha ", LastName: "Rao",
	})

	assert.NoError(t, err)
	assert.Equal(t, "a@example.com", out.Email)
	assert.Equal(t, "Asha", out.FirstName)
	uRepo.AssertExpectations(t)
}

// =====================
// Login
// =====================

func TestAuthUsecase_Login_UnknownEmailIsUnauthorized(t *testing.T) {
	uc, uRepo, _ := newAuthUsecase()

	uRepo.On("FindByEmail", mock.Anything, "a@example.com").
		Return(nil, repository.ErrUserNotFound)

	_, err := uc.Login(context.Background(), usecase.LoginInput{Email: "a@example.com", Password: "whatever1"})
	assertHTTPStatus(t, err, http.StatusUnauthorized)
}

func TestAuthUsecase_Login_WrongPassword(t *testing.T) {
	uc, uRepo, _ := newAuthUsecase()

	uRepo.On("FindByEmail", mock.Anything, "a@example.com").
		Return(&model.User{ID: 7, Email: "a@example.com", PasswordHash: hash(t, "correct-pass"), IsActive: true}, nil)

	_, err := uc.Login(context.Background(), usecase.LoginInput{Email: "a@example.com", Password: "wrong-pass"})
	assertHTTPStatus(t, err, http.StatusUnauthorized)
}

func TestAuthUsecase_Login_InactiveUser(t *testing.T) {
	uc, uRepo, _ := newAuthUsecase()

	uRepo.On("FindByEmail", mock.Anything, "a@example.com").
		Return(&model.User{ID: 7, PasswordHash: hash(t, "correct-pass"), IsActive: false}, nil)

	_, err := uc.Login(context.Background(), usecase.LoginInput{Email: "a@example.com", Password: "correct-pass"})
	assertHTTPStatus(t, err, http.StatusUnauthorized)
}

func TestAuthUsecase_Login_Success(t *testing.T) {
	uc, uRepo, _ := newAuthUsecase()

	uRepo.On("FindByEmail", mock.Anything, "a@example.com").
		Return(&model.User{ID: 7, Email: "a@example.com", Role: model.RoleUser, PasswordHash: hash(t, "correct-pass"), IsActive: true}, nil)
	uRepo.On("Update", mock.Anything, mock.Anything).Return(nil)

	out, err := uc.Login(context.Background(), usecase.LoginInput{Email: "a@example.com", Password: "correct-pass"})

	assert.NoError(t, err)
	assert.Equal(t, int64(7), out.User.ID)
	assert.NotEmpty(t, out.Token.AccessToken)
	assert.Equal(t, 900, out.Token.ExpiresIn)

	//トークンのクレーム検証
	tok, err := jwt.Parse(out.Token.AccessToken, func(t *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	assert.NoError(t, err)
	claims, ok := tok.Claims.(jwt.MapClaims)
	assert.True(t, ok)
	assert.Equal(t, float64(7), claims["sub"])
	assert.Equal(t, "USER", claims["role"])
}

// =====================
// プロフィール
// =====================

func TestAuthUsecase_UpdateProfile_Success(t *testing.T) {
	uc, uRepo, _ := newAuthUsecase()

	uRepo.On("FindByID", mock.Anything, int64(7)).
		Return(&model.User{ID: 7, Email: "a@example.com", IsActive: true}, nil)
	uRepo.On("Update", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return u.FirstName == "Asha" && u.Phone == "9876543210" && u.Address == "12 MG Road"
	})).Return(nil)

	out, err := uc.UpdateProfile(context.Background(), 7, usecase.UpdateProfileInput{
		FirstName: " Asha ", LastName: "Rao", Phone: "9876543210", Address: " 12 MG Road ",
	})

	assert.NoError(t, err)
	assert.Equal(t, "Asha", out.FirstName)
	assert.Equal(t, "12 MG Road", out.Address)
	uRepo.AssertExpectations(t)
}

func TestAuthUsecase_UpdateProfile_UnknownUser(t *testing.T) {
	uc, uRepo, _ := newAuthUsecase()

	uRepo.On("FindByID", mock.Anything, int64(7)).
		Return(nil, repository.ErrUserNotFound)

	_, err := uc.UpdateProfile(context.Background(), 7, usecase.UpdateProfileInput{FirstName: "A"})
	assertHTTPStatus(t, err, http.StatusUnauthorized)
}

// =====================
// パスワード再設定
// =====================

func TestAuthUsecase_RequestPasswordReset_UnknownEmailIsSilent(t *testing.T) {
	uc, uRepo, rRepo := newAuthUsecase()

	uRepo.On("FindByEmail", mock.Anything, "ghost@example.com").
		Return(nil, repository.ErrUserNotFound)

	token, err := uc.RequestPasswordReset(context.Background(), "ghost@example.com")

	assert.NoError(t, err)
	assert.Empty(t, token)
	rRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuthUsecase_RequestPasswordReset_IssuesToken(t *testing.T) {
	uc, uRepo, rRepo := newAuthUsecase()

	uRepo.On("FindByEmail", mock.Anything, "a@example.com").
		Return(&model.User{ID: 7, Email: "a@example.com"}, nil)
	rRepo.On("Create", mock.Anything, mock.MatchedBy(func(tk model.PasswordResetToken) bool {
		return tk.UserID == 7 && tk.Token != "" && tk.ExpiresAt.After(time.Now())
	})).Return(model.PasswordResetToken{ID: 1, UserID: 7, Token: "issued-token"}, nil)

	token, err := uc.RequestPasswordReset(context.Background(), "a@example.com")

	assert.NoError(t, err)
	assert.Equal(t, "issued-token", token)
}

func TestAuthUsecase_ResetPassword_ExpiredToken(t *testing.T) {
	uc, _, rRepo := newAuthUsecase()

	rRepo.On("FindByToken", mock.Anything, "tok").
		Return(model.PasswordResetToken{ID: 1, UserID: 7, Token: "tok", ExpiresAt: time.Now().Add(-time.Minute)}, nil)

	err := uc.ResetPassword(context.Background(), usecase.ResetPasswordInput{Token: "tok", NewPassword: "newPass123!"})
	assertHTTPStatus(t, err, http.StatusBadRequest)
}

func TestAuthUsecase_ResetPassword_UsedToken(t *testing.T) {
	uc, _, rRepo := newAuthUsecase()

	used := time.Now().Add(-time.Minute)
	rRepo.On("FindByToken", mock.Anything, "tok").
		Return(model.PasswordResetToken{ID: 1, UserID: 7, Token: "tok", ExpiresAt: time.Now().Add(time.Hour), UsedAt: &used}, nil)

	err := uc.ResetPassword(context.Background(), usecase.ResetPasswordInput{Token: "tok", NewPassword: "newPass123!"})
	assertHTTPStatus(t, err, http.StatusBadRequest)
}

func TestAuthUsecase_ResetPassword_Success(t *testing.T) {
	uc, uRepo, rRepo := newAuthUsecase()

	rRepo.On("FindByToken", mock.Anything, "tok").
		Return(model.PasswordResetToken{ID: 1, UserID: 7, Token: "tok", ExpiresAt: time.Now().Add(time.Hour)}, nil)
	uRepo.On("FindByID", mock.Anything, int64(7)).
		Return(&model.User{ID: 7, PasswordHash: hash(t, "old-pass")}, nil)
	rRepo.On("MarkUsed", mock.Anything, int64(1), mock.Anything).Return(nil)
	uRepo.On("Update", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("newPass123!")) == nil
	})).Return(nil)

	err := uc.ResetPassword(context.Background(), usecase.ResetPasswordInput{Token: "tok", NewPassword: "newPass123!"})

	assert.NoError(t, err)
	rRepo.AssertExpectations(t)
	uRepo.AssertExpectations(t)
}
